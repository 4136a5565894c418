package db

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"webpage-auditor/config"

	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/reflectx"
	"go.uber.org/fx"
	"go.uber.org/zap"

	// Turso remote driver (libsql://, https://).
	_ "github.com/tursodatabase/libsql-client-go/libsql"
	// Local sqlite files (file:..., plain paths, :memory:).
	_ "modernc.org/sqlite"
)

var ErrSQLiteDisabled = errors.New("sqlite disabled: set TURSO_SQLITE_DSN or TURSO_SQLITE_PATH")

// --- disabled connection (keeps app booting, but fails fast when used) ---

type sqliteErrConnector struct{}

func (sqliteErrConnector) Connect(context.Context) (driver.Conn, error) {
	return nil, ErrSQLiteDisabled
}
func (sqliteErrConnector) Driver() driver.Driver { return sqliteErrDriver{} }

type sqliteErrDriver struct{}

func (sqliteErrDriver) Open(string) (driver.Conn, error) { return nil, ErrSQLiteDisabled }

type disabledSQLiteConn struct {
	db *sql.DB
	x  *sqlx.DB
}

func newDisabledSQLiteConn() disabledSQLiteConn {
	db := sql.OpenDB(sqliteErrConnector{})
	return disabledSQLiteConn{
		db: db,
		x:  sqlx.NewDb(db, "sqlite"),
	}
}

func (c disabledSQLiteConn) Exec(query string, args ...any) (sql.Result, error) {
	return nil, ErrSQLiteDisabled
}
func (c disabledSQLiteConn) Query(query string, args ...any) (*sql.Rows, error) {
	return nil, ErrSQLiteDisabled
}
func (c disabledSQLiteConn) Queryx(query string, args ...any) (*sqlx.Rows, error) {
	return nil, ErrSQLiteDisabled
}
func (c disabledSQLiteConn) QueryRow(query string, args ...any) *sql.Row {
	return c.db.QueryRow(query, args...)
}
func (c disabledSQLiteConn) QueryRowx(query string, args ...any) *sqlx.Row {
	return c.x.QueryRowx(query, args...)
}
func (c disabledSQLiteConn) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return nil, ErrSQLiteDisabled
}
func (c disabledSQLiteConn) QueryRowxContext(ctx context.Context, query string, args ...any) *sqlx.Row {
	return c.x.QueryRowxContext(ctx, query, args...)
}
func (c disabledSQLiteConn) Prepare(query string) (*sql.Stmt, error)   { return nil, ErrSQLiteDisabled }
func (c disabledSQLiteConn) Preparex(query string) (*sqlx.Stmt, error) { return nil, ErrSQLiteDisabled }
func (c disabledSQLiteConn) Rebind(query string) string                { return c.x.Rebind(query) }

// --- Fx output ---

type SQLiteSQLXOut struct {
	fx.Out

	DB   *sqlx.DB `name:"sqlite"`
	Conn Conn     `name:"sqlite"`
}

type NewSQLXSQLiteDBParams struct {
	fx.In

	Lc     fx.Lifecycle
	Cfg    *config.Config
	Logger *zap.SugaredLogger
}

// NewSQLXSQLiteDB opens the report history database. Remote Turso DSNs go
// through libsql-client-go; local files and :memory: go through modernc sqlite.
func NewSQLXSQLiteDB(p NewSQLXSQLiteDBParams) (SQLiteSQLXOut, error) {
	dsn := SQLiteDSN(p.Cfg)
	if dsn == "" {
		p.Logger.Infow("sqlite_disabled")
		return SQLiteSQLXOut{DB: nil, Conn: newDisabledSQLiteConn()}, nil
	}

	driverName := SQLiteDriver(dsn)
	db, err := sqlx.Open(driverName, dsn)
	if err != nil {
		return SQLiteSQLXOut{}, fmt.Errorf("open sqlite db: %w", err)
	}

	if driverName == "libsql" {
		db.SetMaxOpenConns(5)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(30 * time.Minute)
	} else {
		// modernc serialises writers; a single connection also keeps :memory: alive.
		db.SetMaxOpenConns(1)
	}
	db.Mapper = reflectx.NewMapperFunc("db", strings.ToLower)

	p.Lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			defer cancel()
			if err := db.PingContext(pingCtx); err != nil {
				_ = db.Close()
				return fmt.Errorf("ping sqlite db: %w", err)
			}
			p.Logger.Infow("sqlite_enabled", "driver", driverName)
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return db.Close()
		},
	})

	return SQLiteSQLXOut{DB: db, Conn: db}, nil
}

// SQLiteDSN returns the configured DSN with the Turso auth token applied, or
// "" when sqlite is not configured.
func SQLiteDSN(cfg *config.Config) string {
	dsn := strings.TrimSpace(cfg.Turso.DSN)
	if dsn == "" {
		dsn = strings.TrimSpace(cfg.Turso.Path)
	}
	if dsn == "" {
		return ""
	}
	return ensureAuthTokenQuery(dsn, strings.TrimSpace(cfg.Turso.Token))
}

// SQLiteDriver picks the database/sql driver name for dsn.
func SQLiteDriver(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil || u.Scheme == "" {
		return "sqlite"
	}
	switch strings.ToLower(u.Scheme) {
	case "libsql", "http", "https", "ws", "wss":
		return "libsql"
	default:
		return "sqlite"
	}
}

func ensureAuthTokenQuery(dsn, token string) string {
	if token == "" {
		return dsn
	}

	u, err := url.Parse(dsn)
	if err != nil || u.Scheme == "" {
		return dsn
	}

	// Don't add tokens to local sqlite/file DSNs.
	if strings.EqualFold(u.Scheme, "file") || strings.EqualFold(u.Scheme, "sqlite") {
		return dsn
	}

	q := u.Query()
	if q.Get("authToken") != "" {
		return dsn
	}

	q.Set("authToken", token)
	u.RawQuery = q.Encode()
	return u.String()
}
