package audit

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"entity-audit/pkg/logger"
	"entity-audit/pkg/utils"

	"github.com/redis/go-redis/v9"
)

// Cache holds read-surface results. Every method is best effort: a cache
// failure is a miss, never an error.
type Cache interface {
	GetRecent(ctx context.Context) ([]Record, bool)
	PutRecent(ctx context.Context, recs []Record)
	GetStats(ctx context.Context, window time.Duration) (Statistics, bool)
	PutStats(ctx context.Context, window time.Duration, st Statistics)
	Invalidate(ctx context.Context)
}

type noopCache struct{}

func (noopCache) GetRecent(context.Context) ([]Record, bool) { return nil, false }
func (noopCache) PutRecent(context.Context, []Record)        {}
func (noopCache) GetStats(context.Context, time.Duration) (Statistics, bool) {
	return Statistics{}, false
}
func (noopCache) PutStats(context.Context, time.Duration, Statistics) {}
func (noopCache) Invalidate(context.Context)                          {}

const (
	recentKey = "audit:recent:last-good"
	statsKey  = "audit:stats:"
	// The last good dashboard feed outlives the stats TTL so it can cover
	// a store outage.
	recentTTL = 24 * time.Hour
)

// RedisCache stores JSON-encoded results in Redis.
type RedisCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisCache(rdb *redis.Client, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &RedisCache{rdb: rdb, ttl: ttl}
}

func (c *RedisCache) GetRecent(ctx context.Context) ([]Record, bool) {
	var recs []Record
	if !c.get(ctx, recentKey, &recs) {
		return nil, false
	}
	return recs, true
}

func (c *RedisCache) PutRecent(ctx context.Context, recs []Record) {
	c.put(ctx, recentKey, recs, recentTTL)
}

func (c *RedisCache) GetStats(ctx context.Context, window time.Duration) (Statistics, bool) {
	var st Statistics
	if !c.get(ctx, statsKey+window.String(), &st) {
		return Statistics{}, false
	}
	return st, true
}

func (c *RedisCache) PutStats(ctx context.Context, window time.Duration, st Statistics) {
	c.put(ctx, statsKey+window.String(), st, c.ttl)
}

// Invalidate drops cached statistics. The last good recent feed is kept on
// purpose: it is only read while the store is failing.
func (c *RedisCache) Invalidate(ctx context.Context) {
	if c.rdb == nil {
		return
	}
	if _, err := utils.DeleteByPrefix(ctx, c.rdb, statsKey); err != nil {
		logger.From(ctx).Warn("audit cache invalidate failed", "err", err)
	}
}

func (c *RedisCache) get(ctx context.Context, key string, dst any) bool {
	if c.rdb == nil {
		return false
	}
	b, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			logger.From(ctx).Warn("audit cache read failed", "key", key, "err", err)
		}
		return false
	}
	if err := json.Unmarshal(b, dst); err != nil {
		logger.From(ctx).Warn("audit cache decode failed", "key", key, "err", err)
		return false
	}
	return true
}

func (c *RedisCache) put(ctx context.Context, key string, v any, ttl time.Duration) {
	if c.rdb == nil {
		return
	}
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, key, b, ttl).Err(); err != nil {
		logger.From(ctx).Warn("audit cache write failed", "key", key, "err", err)
	}
}
