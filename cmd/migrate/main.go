package main

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"webpage-auditor/config"
	"webpage-auditor/db"
	"webpage-auditor/db/migrations"
	appfx "webpage-auditor/internal/app/fx"

	"github.com/jmoiron/sqlx"
	"github.com/pressly/goose/v3"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	_ "github.com/jackc/pgx/v5/stdlib"
)

type MigrateCmd string

func main() {
	cmd := "up"
	if len(os.Args) > 1 {
		cmd = os.Args[1]
	}

	app := fx.New(
		fx.WithLogger(func(logger *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: logger}
		}),
		appfx.CoreAppOptions,
		fx.Supply(MigrateCmd(cmd)),
		fx.Invoke(registerMigrateHook),
	)

	startCtx, startCancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer startCancel()
	if err := app.Start(startCtx); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer stopCancel()
	if err := app.Stop(stopCtx); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}

type migrateHookParams struct {
	fx.In

	Lc     fx.Lifecycle
	Cfg    *config.Config
	Logger *zap.SugaredLogger

	Cmd MigrateCmd
}

// target is the database the report history lives in. Postgres wins when both
// are configured, matching the report store.
type target struct {
	driver  string
	dialect string
	dsn     string
}

func resolveTarget(cfg *config.Config) (target, error) {
	if strings.TrimSpace(cfg.DBHost) != "" && strings.TrimSpace(cfg.DBName) != "" {
		return target{driver: "pgx", dialect: "postgres", dsn: postgresDSN(cfg)}, nil
	}
	if dsn := db.SQLiteDSN(cfg); dsn != "" {
		return target{driver: db.SQLiteDriver(dsn), dialect: "sqlite3", dsn: dsn}, nil
	}
	return target{}, errors.New("no database configured: set DB_HOST/DB_NAME or TURSO_SQLITE_DSN/TURSO_SQLITE_PATH")
}

func registerMigrateHook(p migrateHookParams) {
	p.Lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			t, err := resolveTarget(p.Cfg)
			if err != nil {
				return err
			}

			if err := goose.SetDialect(t.dialect); err != nil {
				return fmt.Errorf("set goose dialect: %w", err)
			}
			goose.SetBaseFS(migrations.FS)

			conn, err := sqlx.Open(t.driver, t.dsn)
			if err != nil {
				return fmt.Errorf("open %s: %w", t.driver, err)
			}
			defer func() {
				_ = conn.Close()
			}()

			pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
			defer pingCancel()
			if err := conn.PingContext(pingCtx); err != nil {
				return fmt.Errorf("ping %s: %w", t.driver, err)
			}
			p.Logger.Infow("migrate_connection_ok", append([]any{"driver", t.driver}, dsnLogFields(t.dsn)...)...)

			p.Logger.Infow("goose_run_start", "cmd", string(p.Cmd), "dialect", t.dialect)
			if err := goose.RunContext(ctx, string(p.Cmd), conn.DB, "."); err != nil {
				return fmt.Errorf("goose run %q: %w", p.Cmd, err)
			}
			p.Logger.Infow("goose_run_done", "cmd", string(p.Cmd))
			return nil
		},
	})
}

func postgresDSN(cfg *config.Config) string {
	u := &url.URL{
		Scheme: "postgres",
		Host:   fmt.Sprintf("%s:%d", cfg.DBHost, cfg.DBPort),
		Path:   cfg.DBName,
	}
	if strings.TrimSpace(cfg.DBUser) != "" {
		u.User = url.UserPassword(cfg.DBUser, cfg.DBPassword)
	}
	return u.String()
}

func dsnLogFields(dsn string) []any {
	u, err := url.Parse(dsn)
	if err != nil || u.Scheme == "" {
		return []any{"dsn", "local"}
	}
	return []any{"scheme", u.Scheme, "host", u.Host}
}
