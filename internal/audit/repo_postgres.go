package audit

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"entity-audit/pkg/utils"
)

// PostgresRepo stores records in the audit_logs table through database/sql
// (pgx stdlib driver in production).
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS audit_logs (
		id                TEXT PRIMARY KEY,
		actor_id          TEXT NOT NULL,
		related_entity_id TEXT,
		module            TEXT NOT NULL,
		action            TEXT NOT NULL,
		entity_type       TEXT NOT NULL,
		entity_id         TEXT,
		entity_name       TEXT,
		description       TEXT NOT NULL,
		old_values        JSONB,
		new_values        JSONB,
		ip_address        TEXT,
		user_agent        TEXT,
		created_at        TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_audit_logs_created_at ON audit_logs (created_at DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_audit_logs_module ON audit_logs (module)`,
	`CREATE INDEX IF NOT EXISTS idx_audit_logs_action ON audit_logs (action)`,
	`CREATE INDEX IF NOT EXISTS idx_audit_logs_entity_type ON audit_logs (entity_type)`,
	`CREATE INDEX IF NOT EXISTS idx_audit_logs_actor_id ON audit_logs (actor_id)`,
	`CREATE INDEX IF NOT EXISTS idx_audit_logs_related_entity_id ON audit_logs (related_entity_id)`,
}

// EnsureSchema creates the table and indexes if missing, in one transaction.
func (r *PostgresRepo) EnsureSchema(ctx context.Context) error {
	return utils.WithTx(ctx, r.db, nil, func(ctx context.Context, tx *sql.Tx) error {
		for _, stmt := range schemaStatements {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("ensure audit schema: %w", err)
			}
		}
		return nil
	})
}

const recordColumns = `id, actor_id, related_entity_id, module, action, entity_type, entity_id,
	entity_name, description, old_values, new_values, ip_address, user_agent, created_at`

func (r *PostgresRepo) Create(ctx context.Context, rec Record) error {
	query := `INSERT INTO audit_logs (` + recordColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

	_, err := r.db.ExecContext(ctx, query,
		rec.ID,
		rec.ActorID,
		nullString(rec.RelatedEntityID),
		string(rec.Module),
		string(rec.Action),
		string(rec.EntityType),
		nullString(rec.EntityID),
		nullString(rec.EntityName),
		rec.Description,
		nullJSON(rec.OldValues),
		nullJSON(rec.NewValues),
		nullString(rec.IPAddress),
		nullString(rec.UserAgent),
		rec.CreatedAt,
	)
	return err
}

// whereClause renders the filter conditions starting at placeholder $1.
func (f Filters) whereClause() (string, []any) {
	var (
		conds []string
		args  []any
	)
	add := func(col, val string) {
		if val == "" {
			return
		}
		args = append(args, val)
		conds = append(conds, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	add("module", string(f.Module))
	add("action", string(f.Action))
	add("entity_type", string(f.EntityType))
	add("actor_id", f.ActorID)
	add("related_entity_id", f.RelatedEntityID)

	where := " WHERE 1=1"
	if len(conds) > 0 {
		where += " AND " + strings.Join(conds, " AND ")
	}
	return where, args
}

func (r *PostgresRepo) List(ctx context.Context, f Filters, offset, limit int) ([]Record, int, error) {
	where, args := f.whereClause()

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM audit_logs`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + recordColumns + ` FROM audit_logs` + where +
		fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	recs, err := r.query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	return recs, total, nil
}

func (r *PostgresRepo) Get(ctx context.Context, id string) (Record, error) {
	recs, err := r.query(ctx, `SELECT `+recordColumns+` FROM audit_logs WHERE id = $1`, id)
	if err != nil {
		return Record{}, err
	}
	if len(recs) == 0 {
		return Record{}, ErrNotFound
	}
	return recs[0], nil
}

func (r *PostgresRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM audit_logs WHERE id = $1`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepo) Recent(ctx context.Context, limit int) ([]Record, error) {
	return r.query(ctx, `SELECT `+recordColumns+` FROM audit_logs ORDER BY created_at DESC LIMIT $1`, limit)
}

func (r *PostgresRepo) Stats(ctx context.Context, from, to time.Time) (Statistics, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT module, action, COUNT(*)
		FROM audit_logs
		WHERE created_at >= $1 AND created_at <= $2
		GROUP BY module, action`, from, to)
	if err != nil {
		return Statistics{}, err
	}
	defer rows.Close()

	st := Statistics{ByModule: map[Module]int{}, ByAction: map[Action]int{}}
	for rows.Next() {
		var (
			mod, action string
			n           int
		)
		if err := rows.Scan(&mod, &action, &n); err != nil {
			return Statistics{}, err
		}
		st.Total += n
		st.ByModule[Module(mod)] += n
		st.ByAction[Action(action)] += n
	}
	return st, rows.Err()
}

func (r *PostgresRepo) query(ctx context.Context, query string, args ...any) ([]Record, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Record, 0)
	for rows.Next() {
		var (
			rec                           Record
			mod, action, entityType       string
			related, entityID, entityName sql.NullString
			ip, ua                        sql.NullString
			oldValues, newValues          []byte
		)
		if err := rows.Scan(
			&rec.ID,
			&rec.ActorID,
			&related,
			&mod,
			&action,
			&entityType,
			&entityID,
			&entityName,
			&rec.Description,
			&oldValues,
			&newValues,
			&ip,
			&ua,
			&rec.CreatedAt,
		); err != nil {
			return nil, err
		}
		rec.Module, rec.Action, rec.EntityType = Module(mod), Action(action), Module(entityType)
		rec.RelatedEntityID = related.String
		rec.EntityID = entityID.String
		rec.EntityName = entityName.String
		rec.IPAddress = ip.String
		rec.UserAgent = ua.String
		if len(oldValues) > 0 {
			rec.OldValues = oldValues
		}
		if len(newValues) > 0 {
			rec.NewValues = newValues
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// nullJSON keeps absent snapshots as SQL NULL rather than the JSON literal null.
func nullJSON(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}

var (
	_ Repository = (*PostgresRepo)(nil)
	_ Repository = (*MemoryRepo)(nil)
)
