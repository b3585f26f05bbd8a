package audit

import (
	"context"
	"encoding/json"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var recordRowColumns = []string{
	"id", "actor_id", "related_entity_id", "module", "action", "entity_type", "entity_id",
	"entity_name", "description", "old_values", "new_values", "ip_address", "user_agent", "created_at",
}

func TestPostgresRepo_EnsureSchema(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS audit_logs").WillReturnResult(sqlmock.NewResult(0, 0))
	for range schemaStatements[1:] {
		mock.ExpectExec("CREATE INDEX IF NOT EXISTS").WillReturnResult(sqlmock.NewResult(0, 0))
	}
	mock.ExpectCommit()

	require.NoError(t, NewPostgresRepo(db).EnsureSchema(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepo_Create(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	rec := Record{
		ID:          "rec-1",
		ActorID:     "u1",
		Module:      ModuleEmployee,
		Action:      ActionUpdate,
		EntityType:  ModuleEmployee,
		EntityID:    "42",
		Description: "Jane Doe updated name for John",
		NewValues:   json.RawMessage(`{"firstName":"John"}`),
		CreatedAt:   now,
	}

	mock.ExpectExec("INSERT INTO audit_logs").
		WithArgs("rec-1", "u1", nil, "EMPLOYEE", "UPDATE", "EMPLOYEE", "42", nil,
			"Jane Doe updated name for John", nil, `{"firstName":"John"}`, nil, nil, now).
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, NewPostgresRepo(db).Create(context.Background(), rec))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepo_ListAppliesFiltersAndPaging(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Now().UTC()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM audit_logs WHERE 1=1 AND module = $1 AND related_entity_id = $2")).
		WithArgs("LEAVE", "7").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))
	mock.ExpectQuery(regexp.QuoteMeta("AND module = $1 AND related_entity_id = $2 ORDER BY created_at DESC LIMIT $3 OFFSET $4")).
		WithArgs("LEAVE", "7", 2, 2).
		WillReturnRows(sqlmock.NewRows(recordRowColumns).
			AddRow("r3", "u1", "7", "LEAVE", "CREATE", "LEAVE", "311", nil, "Jane Doe submitted a leave request",
				nil, []byte(`{"status":"PENDING"}`), "10.0.0.1", nil, now))

	recs, total, err := NewPostgresRepo(db).List(context.Background(), Filters{Module: ModuleLeave, RelatedEntityID: "7"}, 2, 2)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, recs, 1)
	assert.Equal(t, "r3", recs[0].ID)
	assert.Equal(t, ModuleLeave, recs[0].Module)
	assert.Equal(t, "", recs[0].EntityName)
	assert.Nil(t, recs[0].OldValues)
	assert.JSONEq(t, `{"status":"PENDING"}`, string(recs[0].NewValues))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepo_GetNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("FROM audit_logs WHERE id = \\$1").WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(recordRowColumns))

	_, err = NewPostgresRepo(db).Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPostgresRepo_Delete(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("DELETE FROM audit_logs").WithArgs("r1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM audit_logs").WithArgs("r2").WillReturnResult(sqlmock.NewResult(0, 0))

	repo := NewPostgresRepo(db)
	require.NoError(t, repo.Delete(context.Background(), "r1"))
	assert.ErrorIs(t, repo.Delete(context.Background(), "r2"), ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepo_Stats(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	to := from.Add(30 * 24 * time.Hour)
	mock.ExpectQuery("GROUP BY module, action").
		WithArgs(from, to).
		WillReturnRows(sqlmock.NewRows([]string{"module", "action", "count"}).
			AddRow("EMPLOYEE", "UPDATE", 4).
			AddRow("EMPLOYEE", "CREATE", 1).
			AddRow("LEAVE", "CREATE", 2))

	st, err := NewPostgresRepo(db).Stats(context.Background(), from, to)
	require.NoError(t, err)
	assert.Equal(t, 7, st.Total)
	assert.Equal(t, map[Module]int{ModuleEmployee: 5, ModuleLeave: 2}, st.ByModule)
	assert.Equal(t, map[Action]int{ActionUpdate: 4, ActionCreate: 3}, st.ByAction)
}

func TestFilters_WhereClauseEmpty(t *testing.T) {
	where, args := Filters{}.whereClause()
	assert.Equal(t, " WHERE 1=1", where)
	assert.Empty(t, args)
}

func TestPostgresRepo_RecentOrdersNewestFirst(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY created_at DESC LIMIT $1")).
		WithArgs(10).
		WillReturnRows(sqlmock.NewRows(recordRowColumns).
			AddRow("r2", "u1", nil, "LOAN", "DELETE", "LOAN", "5", nil, "d", nil, nil, nil, nil, time.Now()))

	recs, err := NewPostgresRepo(db).Recent(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, ActionDelete, recs[0].Action)
	require.NoError(t, mock.ExpectationsWereMet())
}
