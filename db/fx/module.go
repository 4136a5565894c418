package fx

import (
	"webpage-auditor/db"

	"go.uber.org/fx"
)

var Module = fx.Module(
	"sqlx-postgres-db",
	fx.Provide(db.NewSQLXPostgresDB),
)

var SQLiteModule = fx.Module(
	"sqlx-sqlite-db",
	fx.Provide(db.NewSQLXSQLiteDB),
)

// MigrateModule runs the embedded migrations on start when DB_AUTO_MIGRATE is set.
var MigrateModule = fx.Module(
	"db-auto-migrate",
	fx.Invoke(db.RegisterAutoMigrate),
)
