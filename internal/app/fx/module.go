package fx

import (
	"go.uber.org/fx"

	cachefx "webpage-auditor/cache/fx"
	dbfx "webpage-auditor/db/fx"
	reportsfx "webpage-auditor/internal/app/reports/fx"
	auditfx "webpage-auditor/internal/audit/fx"
	browserfx "webpage-auditor/internal/browser/fx"
)

// Module is the audit engine shared by the server and the worker: config,
// logging, optional stores, the browser session and the orchestrator.
var Module = fx.Options(
	CoreAppOptions,
	dbfx.Module,
	dbfx.SQLiteModule,
	dbfx.MigrateModule,
	cachefx.Module,
	browserfx.Module,
	auditfx.Module,
	reportsfx.Module,
)
