package audit

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"entity-audit/pkg/logger"
	"entity-audit/pkg/utils"
)

// SnapshotFetcher reads the audited projection of one entity before it is
// mutated. Implementations return nil on any failure and never block longer
// than their own timeout.
type SnapshotFetcher interface {
	Fetch(ctx context.Context, m Module, entityID string) map[string]any
}

// snapshotSource names the table backing a module and whether its rows
// reference an employee.
type snapshotSource struct {
	table       string
	hasEmployee bool
}

var snapshotSources = map[Module]snapshotSource{
	ModuleEmployee:        {table: "employees"},
	ModuleLeave:           {table: "leaves", hasEmployee: true},
	ModuleLeaveResumption: {table: "leave_resumptions", hasEmployee: true},
	ModuleLoan:            {table: "loans", hasEmployee: true},
	ModuleAdvance:         {table: "salary_advances", hasEmployee: true},
	ModuleDeduction:       {table: "deductions", hasEmployee: true},
	ModuleResignation:     {table: "resignations", hasEmployee: true},
	ModulePayroll:         {table: "payrolls", hasEmployee: true},
	ModuleUser:            {table: "users"},
}

var errInvalidEntityID = errors.New("audit: entity id is not numeric")

// SQLSnapshotFetcher fetches snapshots from the business database with one
// bounded SELECT per call. Queries are precomputed per module.
type SQLSnapshotFetcher struct {
	db      *sql.DB
	queries map[Module]string
	timeout time.Duration
	metrics *Metrics
}

func NewSQLSnapshotFetcher(db *sql.DB, fields *FieldTable, timeout time.Duration, metrics *Metrics) *SQLSnapshotFetcher {
	if fields == nil {
		fields = NewFieldTable()
	}
	f := &SQLSnapshotFetcher{
		db:      db,
		queries: make(map[Module]string, len(snapshotSources)),
		timeout: timeout,
		metrics: metrics,
	}
	for m, src := range snapshotSources {
		cols := []string{"id"}
		if src.hasEmployee {
			cols = append(cols, "employee_id")
		}
		for _, c := range fields.Columns(m) {
			cols = append(cols, strings.ToLower(c))
		}
		f.queries[m] = fmt.Sprintf("SELECT %s FROM %s WHERE id = $1 LIMIT 1", strings.Join(dedupe(cols), ", "), src.table)
	}
	return f
}

func (f *SQLSnapshotFetcher) Fetch(ctx context.Context, m Module, entityID string) map[string]any {
	log := logger.From(ctx).With("module", string(m), "entity_id", entityID)

	q, ok := f.queries[m]
	if !ok || f.db == nil {
		return nil
	}
	id, err := strconv.ParseInt(strings.TrimSpace(entityID), 10, 64)
	if err != nil {
		log.Debug("audit snapshot skipped", "err", errInvalidEntityID)
		return nil
	}

	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	start := time.Now()
	snap, err := utils.QueryRowMap(ctx, f.db, q, id)
	f.metrics.observeSnapshot(time.Since(start))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("audit snapshot: entity not found")
			return nil
		}
		f.metrics.fail(StageSnapshot)
		log.Warn("audit snapshot failed", "err", err)
		return nil
	}

	out := make(map[string]any, len(snap))
	for k, v := range snap {
		out[strings.ToUpper(k)] = v
	}
	return out
}

func dedupe(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := in[:0]
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
