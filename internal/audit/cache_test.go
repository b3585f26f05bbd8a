package audit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
)

func TestRedisCache_UnreachableIsAMiss(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer rdb.Close()

	c := NewRedisCache(rdb, time.Minute)
	ctx := context.Background()

	c.PutRecent(ctx, []Record{{ID: "r1"}})
	_, ok := c.GetRecent(ctx)
	assert.False(t, ok)

	c.PutStats(ctx, time.Hour, Statistics{Total: 3})
	_, ok = c.GetStats(ctx, time.Hour)
	assert.False(t, ok)

	assert.NotPanics(t, func() { c.Invalidate(ctx) })
}

func TestRedisCache_NilClient(t *testing.T) {
	c := NewRedisCache(nil, 0)
	_, ok := c.GetRecent(context.Background())
	assert.False(t, ok)
	assert.Equal(t, time.Minute, c.ttl)
}

func TestService_StatsServedFromCache(t *testing.T) {
	repo := NewMemoryRepo()
	cache := &statsCache{}
	svc, _ := newTestService(repo, ServiceOptions{Cache: cache})

	first, err := svc.Stats(context.Background(), 1)
	assert.NoError(t, err)

	repo.Err = errors.New("db down")
	second, err := svc.Stats(context.Background(), 1)
	assert.NoError(t, err)
	assert.Equal(t, first.From, second.From)
	assert.Equal(t, 24*time.Hour, cache.window)
}

type statsCache struct {
	noopCache
	window time.Duration
	st     *Statistics
}

func (c *statsCache) GetStats(_ context.Context, w time.Duration) (Statistics, bool) {
	if c.st == nil || w != c.window {
		return Statistics{}, false
	}
	return *c.st, true
}

func (c *statsCache) PutStats(_ context.Context, w time.Duration, st Statistics) {
	c.window, c.st = w, &st
}
