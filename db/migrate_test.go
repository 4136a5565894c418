package db

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/fx/fxtest"
	"go.uber.org/zap"

	"webpage-auditor/config"
)

func TestRegisterAutoMigrate_SQLite(t *testing.T) {
	t.Parallel()

	cfg := &config.Config{
		DBAutoMigrate: true,
		Turso:         config.TursoConfig{Path: ":memory:"},
	}
	logger := zap.NewNop().Sugar()
	lc := fxtest.NewLifecycle(t)

	out, err := NewSQLXSQLiteDB(NewSQLXSQLiteDBParams{Lc: lc, Cfg: cfg, Logger: logger})
	require.NoError(t, err)
	RegisterAutoMigrate(AutoMigrateParams{Lc: lc, Cfg: cfg, Logger: logger, SQLite: out.DB})

	lc.RequireStart()
	defer lc.RequireStop()

	var n int
	require.NoError(t, out.DB.Get(&n, "SELECT COUNT(*) FROM audit_reports"))
	require.Equal(t, 0, n)
}

func TestRegisterAutoMigrate_Disabled(t *testing.T) {
	t.Parallel()

	cfg := &config.Config{Turso: config.TursoConfig{Path: ":memory:"}}
	logger := zap.NewNop().Sugar()
	lc := fxtest.NewLifecycle(t)

	out, err := NewSQLXSQLiteDB(NewSQLXSQLiteDBParams{Lc: lc, Cfg: cfg, Logger: logger})
	require.NoError(t, err)
	RegisterAutoMigrate(AutoMigrateParams{Lc: lc, Cfg: cfg, Logger: logger, SQLite: out.DB})

	lc.RequireStart()
	defer lc.RequireStop()

	var n int
	require.Error(t, out.DB.Get(&n, "SELECT COUNT(*) FROM audit_reports"))
}
