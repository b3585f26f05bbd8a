package audit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"entity-audit/pkg/logger"

	"github.com/google/uuid"
)

// Repository is the persistence contract for audit records.
//
// Records are append-only: there is no Update. Delete exists for
// administrative cleanup only and is never called by the engine.
type Repository interface {
	Create(ctx context.Context, r Record) error
	List(ctx context.Context, f Filters, offset, limit int) ([]Record, int, error)
	Get(ctx context.Context, id string) (Record, error)
	Delete(ctx context.Context, id string) error
	Recent(ctx context.Context, limit int) ([]Record, error)
	Stats(ctx context.Context, from, to time.Time) (Statistics, error)
}

var (
	ErrNotFound         = errors.New("audit: record not found")
	ErrInvalidRecord    = errors.New("audit: invalid record")
	ErrStoreUnavailable = errors.New("audit: store unavailable")
)

const (
	DefaultPageLimit = 20
	MaxPageLimit     = 100
)

// ServiceOptions tunes the query surface. Zero values select defaults.
type ServiceOptions struct {
	RecentLimit       int
	StatsWindow       time.Duration
	DashboardFallback bool
	Cache             Cache
	Metrics           *Metrics
}

// Service owns record creation (ids, timestamps) and the read surface.
type Service struct {
	repo     Repository
	cache    Cache
	metrics  *Metrics
	clock    func() time.Time
	newID    func() string
	recent   int
	window   time.Duration
	fallback bool
}

func NewService(repo Repository, opts ServiceOptions) *Service {
	s := &Service{
		repo:     repo,
		cache:    opts.Cache,
		metrics:  opts.Metrics,
		clock:    time.Now,
		newID:    uuid.NewString,
		recent:   opts.RecentLimit,
		window:   opts.StatsWindow,
		fallback: opts.DashboardFallback,
	}
	if s.cache == nil {
		s.cache = noopCache{}
	}
	if s.recent <= 0 {
		s.recent = 10
	}
	if s.window <= 0 {
		s.window = 30 * 24 * time.Hour
	}
	return s
}

// Create assigns id and createdAt and appends the record.
func (s *Service) Create(ctx context.Context, r Record) (Record, error) {
	if s.repo == nil {
		return Record{}, ErrStoreUnavailable
	}
	if r.ActorID == "" || r.Module == "" || r.Action == "" {
		return Record{}, ErrInvalidRecord
	}
	if r.ID == "" {
		r.ID = s.newID()
	}
	r.CreatedAt = s.clock().UTC()
	if r.EntityType == "" {
		r.EntityType = r.Module
	}
	if err := s.repo.Create(ctx, r); err != nil {
		return Record{}, fmt.Errorf("create audit record: %w", err)
	}
	s.metrics.recorded(r.Module, r.Action)
	return r, nil
}

// List returns one page of records, newest first. page is 1-based; limit is
// clamped to [1, MaxPageLimit].
func (s *Service) List(ctx context.Context, f Filters, page, limit int) (ListResult, error) {
	if page < 1 {
		page = 1
	}
	switch {
	case limit <= 0:
		limit = DefaultPageLimit
	case limit > MaxPageLimit:
		limit = MaxPageLimit
	}

	recs, total, err := s.repo.List(ctx, f, (page-1)*limit, limit)
	if err != nil {
		return ListResult{}, fmt.Errorf("list audit records: %w", err)
	}
	if recs == nil {
		recs = []Record{}
	}
	pages := (total + limit - 1) / limit
	return ListResult{
		Records: recs,
		Pagination: Pagination{
			CurrentPage:  page,
			TotalPages:   pages,
			TotalItems:   total,
			ItemsPerPage: limit,
		},
	}, nil
}

func (s *Service) Get(ctx context.Context, id string) (Record, error) {
	if id == "" {
		return Record{}, ErrNotFound
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) Delete(ctx context.Context, id string) error {
	if id == "" {
		return ErrNotFound
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.cache.Invalidate(ctx)
	return nil
}

// Recent returns the dashboard feed. When the store fails it serves the last
// cached feed and, if enabled, canned placeholder records.
func (s *Service) Recent(ctx context.Context) (RecentResult, error) {
	recs, err := s.repo.Recent(ctx, s.recent)
	if err == nil {
		if recs == nil {
			recs = []Record{}
		}
		s.cache.PutRecent(ctx, recs)
		return RecentResult{Records: recs}, nil
	}

	log := logger.From(ctx)
	log.Warn("audit recent: store failed", "err", err)
	if cached, ok := s.cache.GetRecent(ctx); ok {
		return RecentResult{Records: cached, Stale: true}, nil
	}
	if s.fallback {
		return RecentResult{Records: placeholderRecords(s.clock().UTC()), Placeholder: true}, nil
	}
	return RecentResult{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
}

// Stats aggregates over the last `days` days, or the configured window when
// days <= 0. Results are cached per window.
func (s *Service) Stats(ctx context.Context, days int) (Statistics, error) {
	window := s.window
	if days > 0 {
		window = time.Duration(days) * 24 * time.Hour
	}
	if st, ok := s.cache.GetStats(ctx, window); ok {
		return st, nil
	}

	to := s.clock().UTC()
	from := to.Add(-window)
	st, err := s.repo.Stats(ctx, from, to)
	if err != nil {
		return Statistics{}, fmt.Errorf("audit statistics: %w", err)
	}
	st.From, st.To = from, to
	if st.ByModule == nil {
		st.ByModule = map[Module]int{}
	}
	if st.ByAction == nil {
		st.ByAction = map[Action]int{}
	}
	s.cache.PutStats(ctx, window, st)
	return st, nil
}

// placeholderRecords keeps the dashboard populated while the store is down.
// Every record is marked as a placeholder by the caller's envelope.
func placeholderRecords(now time.Time) []Record {
	return []Record{
		{ID: "placeholder-1", ActorID: "system", Module: ModuleEmployee, Action: ActionUpdate, EntityType: ModuleEmployee,
			Description: "Audit history is temporarily unavailable", CreatedAt: now},
		{ID: "placeholder-2", ActorID: "system", Module: ModuleLeave, Action: ActionCreate, EntityType: ModuleLeave,
			Description: "Recent leave activity will appear here", CreatedAt: now.Add(-time.Minute)},
		{ID: "placeholder-3", ActorID: "system", Module: ModulePayroll, Action: ActionUpdate, EntityType: ModulePayroll,
			Description: "Recent payroll activity will appear here", CreatedAt: now.Add(-2 * time.Minute)},
	}
}
