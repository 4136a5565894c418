package db

import (
	"context"
	"database/sql"
	"fmt"

	"webpage-auditor/config"
	"webpage-auditor/db/migrations"

	"github.com/jmoiron/sqlx"
	"github.com/pressly/goose/v3"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Migrate applies the embedded migrations to conn and returns the number of
// migrations that ran.
func Migrate(ctx context.Context, conn *sql.DB, dialect goose.Dialect, logger *zap.SugaredLogger) (int, error) {
	provider, err := goose.NewProvider(dialect, conn, migrations.FS)
	if err != nil {
		return 0, fmt.Errorf("goose provider: %w", err)
	}

	results, err := provider.Up(ctx)
	if err != nil {
		return 0, fmt.Errorf("goose up: %w", err)
	}
	for _, r := range results {
		logger.Infow("migration_applied",
			"version", r.Source.Version,
			"path", r.Source.Path,
			"duration_ms", r.Duration.Milliseconds(),
		)
	}
	return len(results), nil
}

type AutoMigrateParams struct {
	fx.In

	Lc       fx.Lifecycle
	Cfg      *config.Config
	Logger   *zap.SugaredLogger
	Postgres *sqlx.DB `optional:"true"`
	SQLite   *sqlx.DB `name:"sqlite" optional:"true"`
}

// RegisterAutoMigrate migrates every configured database on start when
// DB_AUTO_MIGRATE is set.
func RegisterAutoMigrate(p AutoMigrateParams) {
	if !p.Cfg.DBAutoMigrate {
		return
	}

	p.Lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if p.Postgres != nil {
				n, err := Migrate(ctx, p.Postgres.DB, goose.DialectPostgres, p.Logger)
				if err != nil {
					return fmt.Errorf("migrate postgres: %w", err)
				}
				p.Logger.Infow("auto_migrate_done", "db", "postgres", "applied", n)
			}
			if p.SQLite != nil {
				n, err := Migrate(ctx, p.SQLite.DB, goose.DialectSQLite3, p.Logger)
				if err != nil {
					return fmt.Errorf("migrate sqlite: %w", err)
				}
				p.Logger.Infow("auto_migrate_done", "db", "sqlite", "applied", n)
			}
			return nil
		},
	})
}
