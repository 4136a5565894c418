package db

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
)

// Conn is the subset of *sqlx.DB the report store needs. The disabled sqlite
// connection satisfies it too, so callers never branch on a nil handle.
type Conn interface {
	Exec(query string, args ...any) (sql.Result, error)
	Query(query string, args ...any) (*sql.Rows, error)
	Queryx(query string, args ...any) (*sqlx.Rows, error)
	QueryRow(query string, args ...any) *sql.Row
	QueryRowx(query string, args ...any) *sqlx.Row
	Prepare(query string) (*sql.Stmt, error)
	Preparex(query string) (*sqlx.Stmt, error)
	Rebind(query string) string

	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowxContext(ctx context.Context, query string, args ...any) *sqlx.Row
}

var (
	_ Conn = (*sqlx.DB)(nil)
	_ Conn = disabledSQLiteConn{}
)
