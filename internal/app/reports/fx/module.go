package fx

import (
	"webpage-auditor/internal/app/reports"
	"webpage-auditor/internal/router"

	"go.uber.org/fx"
)

var Module = fx.Module(
	"reports",
	fx.Provide(
		reports.NewStore,
		router.AsRoute(reports.NewGetByIDHandler),
	),
)
