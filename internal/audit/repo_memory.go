package audit

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryRepo is an in-memory Repository for tests and local runs.
// It is not intended for production use.
type MemoryRepo struct {
	mu      sync.Mutex
	records []Record

	// Err, when set, is returned by every operation.
	Err error
}

func NewMemoryRepo() *MemoryRepo { return &MemoryRepo{} }

func (r *MemoryRepo) Create(ctx context.Context, rec Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	r.records = append(r.records, rec)
	return nil
}

// newestFirst returns a sorted copy; callers must hold mu.
func (r *MemoryRepo) newestFirst() []Record {
	out := make([]Record, len(r.records))
	copy(out, r.records)
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (r *MemoryRepo) List(ctx context.Context, f Filters, offset, limit int) ([]Record, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return nil, 0, r.Err
	}

	var matched []Record
	for _, rec := range r.newestFirst() {
		if f.matches(rec) {
			matched = append(matched, rec)
		}
	}
	total := len(matched)
	if offset >= total {
		return []Record{}, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return matched[offset:end], total, nil
}

func (f Filters) matches(r Record) bool {
	switch {
	case f.Module != "" && r.Module != f.Module:
		return false
	case f.Action != "" && r.Action != f.Action:
		return false
	case f.EntityType != "" && r.EntityType != f.EntityType:
		return false
	case f.ActorID != "" && r.ActorID != f.ActorID:
		return false
	case f.RelatedEntityID != "" && r.RelatedEntityID != f.RelatedEntityID:
		return false
	}
	return true
}

func (r *MemoryRepo) Get(ctx context.Context, id string) (Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return Record{}, r.Err
	}
	for _, rec := range r.records {
		if rec.ID == id {
			return rec, nil
		}
	}
	return Record{}, ErrNotFound
}

func (r *MemoryRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	for i, rec := range r.records {
		if rec.ID == id {
			r.records = append(r.records[:i], r.records[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

func (r *MemoryRepo) Recent(ctx context.Context, limit int) ([]Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return nil, r.Err
	}
	out := r.newestFirst()
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *MemoryRepo) Stats(ctx context.Context, from, to time.Time) (Statistics, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return Statistics{}, r.Err
	}
	st := Statistics{ByModule: map[Module]int{}, ByAction: map[Action]int{}}
	for _, rec := range r.records {
		if rec.CreatedAt.Before(from) || rec.CreatedAt.After(to) {
			continue
		}
		st.Total++
		st.ByModule[rec.Module]++
		st.ByAction[rec.Action]++
	}
	return st, nil
}

// Records returns a copy of everything stored, in insertion order.
func (r *MemoryRepo) Records() []Record {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Record, len(r.records))
	copy(out, r.records)
	return out
}
