package reports

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"webpage-auditor/db"
	"webpage-auditor/internal/audit"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Status string

const (
	StatusQueued Status = "QUEUED"
	StatusDone   Status = "DONE"
	StatusFailed Status = "FAILED"
)

var ErrNotFound = errors.New("audit report not found")

// Record is one row of audit_reports.
type Record struct {
	ID        string        `json:"id"`
	URL       string        `json:"url"`
	Checks    []string      `json:"checks"`
	Status    Status        `json:"status"`
	Report    *audit.Report `json:"report"`
	Error     *string       `json:"error"`
	CreatedBy *string       `json:"created_by"`
	CreatedAt string        `json:"created_at"`
	UpdatedAt string        `json:"updated_at"`
}

type row struct {
	ID        string         `db:"id"`
	URL       string         `db:"url"`
	Checks    string         `db:"checks"`
	Status    string         `db:"status"`
	Report    sql.NullString `db:"report"`
	Error     sql.NullString `db:"error"`
	CreatedBy sql.NullString `db:"created_by"`
	CreatedAt sql.NullString `db:"created_at"`
	UpdatedAt sql.NullString `db:"updated_at"`
}

// Store persists audit reports. Postgres is used when configured, otherwise
// the sqlite/Turso connection.
type Store struct {
	conn      db.Conn
	enabled   bool
	logger    *zap.SugaredLogger
	validator *validator.Validate
}

type NewStoreParams struct {
	fx.In

	Postgres *sqlx.DB `optional:"true"`
	SQLiteDB *sqlx.DB `name:"sqlite" optional:"true"`
	SQLite   db.Conn  `name:"sqlite" optional:"true"`
	Logger   *zap.SugaredLogger
}

func NewStore(p NewStoreParams) *Store {
	s := &Store{
		logger:    p.Logger,
		validator: validator.New(),
	}
	switch {
	case p.Postgres != nil:
		s.conn, s.enabled = p.Postgres, true
	case p.SQLiteDB != nil:
		s.conn, s.enabled = p.SQLiteDB, true
	default:
		s.conn = p.SQLite
	}
	return s
}

// NewStoreWithConn builds a store on an explicit connection.
func NewStoreWithConn(conn db.Conn, logger *zap.SugaredLogger) *Store {
	return &Store{
		conn:      conn,
		enabled:   conn != nil,
		logger:    logger,
		validator: validator.New(),
	}
}

// Enabled reports whether a history database is configured.
func (s *Store) Enabled() bool {
	return s != nil && s.enabled
}

type CreateInput struct {
	EventID   string
	URL       string `validate:"required"`
	Checks    []string
	CreatedBy string
}

// CreateQueued records a pending audit and returns its id. Re-delivering the
// same event id is a no-op.
func (s *Store) CreateQueued(ctx context.Context, in CreateInput) (string, error) {
	if err := s.validator.Struct(in); err != nil {
		return "", fmt.Errorf("validate create input: %w", err)
	}
	if !s.Enabled() {
		return "", db.ErrSQLiteDisabled
	}

	id := in.EventID
	if id == "" {
		id = uuid.NewString()
	}

	checks, err := json.Marshal(normalizeChecks(in.Checks))
	if err != nil {
		return "", fmt.Errorf("marshal checks: %w", err)
	}

	q := s.conn.Rebind(`
INSERT INTO audit_reports (
  id,
  event_id,
  url,
  checks,
  status,
  created_by
) VALUES (
  ?,
  ?,
  ?,
  ?,
  ?,
  ?
)
ON CONFLICT(id) DO NOTHING
`)
	if _, err := s.conn.ExecContext(ctx, q, id, nullString(in.EventID), in.URL, string(checks), string(StatusQueued), nullString(in.CreatedBy)); err != nil {
		return "", fmt.Errorf("insert audit_reports: %w", err)
	}

	s.logger.Infow("audit_report_queued", "id", id, "url", in.URL)
	return id, nil
}

type SaveInput struct {
	ID        string `validate:"required"`
	URL       string `validate:"required"`
	Checks    []string
	Report    *audit.Report
	Err       error
	CreatedBy string
}

// Save stores the outcome of an audit run. A nil Report marks the row FAILED
// with Err's caller-safe message.
func (s *Store) Save(ctx context.Context, in SaveInput) error {
	if err := s.validator.Struct(in); err != nil {
		return fmt.Errorf("validate save input: %w", err)
	}
	if !s.Enabled() {
		return db.ErrSQLiteDisabled
	}

	checks, err := json.Marshal(normalizeChecks(in.Checks))
	if err != nil {
		return fmt.Errorf("marshal checks: %w", err)
	}

	status := StatusDone
	reportCol := sql.NullString{}
	errorCol := sql.NullString{}
	if in.Report != nil {
		b, err := json.Marshal(in.Report)
		if err != nil {
			return fmt.Errorf("marshal report: %w", err)
		}
		reportCol = sql.NullString{String: string(b), Valid: true}
	} else {
		status = StatusFailed
		msg := "audit did not produce a report"
		if in.Err != nil {
			msg = audit.SafeMessage(in.Err)
		}
		errorCol = sql.NullString{String: msg, Valid: true}
	}

	q := s.conn.Rebind(`
INSERT INTO audit_reports (
  id,
  url,
  checks,
  status,
  report,
  error,
  created_by
) VALUES (
  ?,
  ?,
  ?,
  ?,
  ?,
  ?,
  ?
)
ON CONFLICT(id) DO UPDATE SET
  status = excluded.status,
  report = excluded.report,
  error = excluded.error,
  updated_at = CURRENT_TIMESTAMP
`)
	if _, err := s.conn.ExecContext(ctx, q, in.ID, in.URL, string(checks), string(status), reportCol, errorCol, nullString(in.CreatedBy)); err != nil {
		return fmt.Errorf("upsert audit_reports: %w", err)
	}

	s.logger.Infow("audit_report_saved", "id", in.ID, "status", status)
	return nil
}

// Get loads a stored report. Missing ids return ErrNotFound.
func (s *Store) Get(ctx context.Context, id string) (Record, error) {
	if !s.Enabled() {
		return Record{}, db.ErrSQLiteDisabled
	}

	var r row
	q := s.conn.Rebind(`
SELECT id, url, checks, status, report, error, created_by, created_at, updated_at
FROM audit_reports
WHERE id = ?
`)
	if err := s.conn.QueryRowxContext(ctx, q, id).StructScan(&r); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Record{}, ErrNotFound
		}
		return Record{}, fmt.Errorf("select audit_reports: %w", err)
	}

	rec := Record{
		ID:        r.ID,
		URL:       r.URL,
		Status:    Status(r.Status),
		Error:     nullablePtr(r.Error),
		CreatedBy: nullablePtr(r.CreatedBy),
		CreatedAt: r.CreatedAt.String,
		UpdatedAt: r.UpdatedAt.String,
	}
	if err := json.Unmarshal([]byte(r.Checks), &rec.Checks); err != nil {
		return Record{}, fmt.Errorf("decode checks: %w", err)
	}
	if r.Report.Valid && r.Report.String != "" {
		var report audit.Report
		if err := json.Unmarshal([]byte(r.Report.String), &report); err != nil {
			return Record{}, fmt.Errorf("decode report: %w", err)
		}
		rec.Report = &report
	}
	return rec, nil
}

func normalizeChecks(checks []string) []string {
	out := make([]string, 0, len(checks))
	for _, c := range checks {
		if c = strings.TrimSpace(c); c != "" {
			out = append(out, c)
		}
	}
	return out
}

func nullString(s string) sql.NullString {
	s = strings.TrimSpace(s)
	return sql.NullString{String: s, Valid: s != ""}
}

func nullablePtr(s sql.NullString) *string {
	if !s.Valid || strings.TrimSpace(s.String) == "" {
		return nil
	}
	v := s.String
	return &v
}
