package reports

import (
	"context"
	"errors"
	"testing"
	"time"

	"webpage-auditor/db"
	"webpage-auditor/internal/audit"

	"github.com/jmoiron/sqlx"
	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	_ "modernc.org/sqlite"
)

func newTestSQLiteDB(t *testing.T) *sqlx.DB {
	t.Helper()

	conn, err := sqlx.Open("sqlite", ":memory:")
	require.NoError(t, err)
	conn.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = conn.Close() })

	applied, err := db.Migrate(context.Background(), conn.DB, goose.DialectSQLite3, zap.NewNop().Sugar())
	require.NoError(t, err)
	require.Equal(t, 1, applied)

	return conn
}

func sampleReport() audit.Report {
	started := time.Date(2026, 10, 1, 8, 0, 0, 0, time.UTC)
	return audit.Report{
		URL:        "https://example.com",
		StartedAt:  started,
		FinishedAt: started.Add(2 * time.Second),
		Results: map[audit.CheckKind]audit.Result{
			audit.CheckValidate: {
				Check:    audit.CheckValidate,
				Status:   audit.StatusOK,
				Findings: []audit.Finding{},
			},
			audit.CheckSEO: {
				Check:    audit.CheckSEO,
				Status:   audit.StatusFailed,
				Findings: []audit.Finding{},
				Failure:  &audit.Failure{Category: audit.EvaluationError, Message: "evaluation failed"},
			},
		},
	}
}

func TestStore_QueueThenSave(t *testing.T) {
	t.Parallel()

	store := NewStoreWithConn(newTestSQLiteDB(t), zap.NewNop().Sugar())
	ctx := context.Background()

	id, err := store.CreateQueued(ctx, CreateInput{
		EventID:   "evt-1",
		URL:       "https://example.com",
		Checks:    []string{"validate", " seo ", ""},
		CreatedBy: "enqueue",
	})
	require.NoError(t, err)
	require.Equal(t, "evt-1", id)

	rec, err := store.Get(ctx, id)
	require.NoError(t, err)
	require.Equal(t, StatusQueued, rec.Status)
	require.Equal(t, []string{"validate", "seo"}, rec.Checks)
	require.Nil(t, rec.Report)
	require.NotNil(t, rec.CreatedBy)
	require.Equal(t, "enqueue", *rec.CreatedBy)

	// Redelivery keeps the original row.
	again, err := store.CreateQueued(ctx, CreateInput{EventID: "evt-1", URL: "https://other.example"})
	require.NoError(t, err)
	require.Equal(t, id, again)

	report := sampleReport()
	require.NoError(t, store.Save(ctx, SaveInput{ID: id, URL: report.URL, Report: &report}))

	rec, err = store.Get(ctx, id)
	require.NoError(t, err)
	require.Equal(t, StatusDone, rec.Status)
	require.Equal(t, "https://example.com", rec.URL)
	require.Nil(t, rec.Error)
	require.NotNil(t, rec.Report)
	require.Len(t, rec.Report.Results, 2)
	require.Equal(t, audit.EvaluationError, rec.Report.Results[audit.CheckSEO].Failure.Category)
	require.True(t, rec.Report.StartedAt.Equal(report.StartedAt))
}

func TestStore_SaveFailureWithoutQueuedRow(t *testing.T) {
	t.Parallel()

	store := NewStoreWithConn(newTestSQLiteDB(t), zap.NewNop().Sugar())
	ctx := context.Background()

	err := store.Save(ctx, SaveInput{
		ID:  "run-2",
		URL: "https://example.com",
		Err: audit.NewError(audit.InvalidRequest, "URL is required", errors.New("dsn=secret")),
	})
	require.NoError(t, err)

	rec, err := store.Get(ctx, "run-2")
	require.NoError(t, err)
	require.Equal(t, StatusFailed, rec.Status)
	require.NotNil(t, rec.Error)
	require.Equal(t, "URL is required", *rec.Error)
	require.Nil(t, rec.Report)
}

func TestStore_GetMissing(t *testing.T) {
	t.Parallel()

	store := NewStoreWithConn(newTestSQLiteDB(t), zap.NewNop().Sugar())
	_, err := store.Get(context.Background(), "nope")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestStore_Validation(t *testing.T) {
	t.Parallel()

	store := NewStoreWithConn(newTestSQLiteDB(t), zap.NewNop().Sugar())
	_, err := store.CreateQueued(context.Background(), CreateInput{})
	require.Error(t, err)
	require.Error(t, store.Save(context.Background(), SaveInput{URL: "https://example.com"}))
}

func TestStore_Disabled(t *testing.T) {
	t.Parallel()

	store := NewStore(NewStoreParams{Logger: zap.NewNop().Sugar()})
	require.False(t, store.Enabled())

	_, err := store.Get(context.Background(), "x")
	require.ErrorIs(t, err, db.ErrSQLiteDisabled)
}
