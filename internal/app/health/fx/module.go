package fx

import (
	"go.uber.org/fx"

	"webpage-auditor/internal/app/health"
	"webpage-auditor/internal/router"
)

// Module serves GET /health.
var Module = fx.Module(
	"health",
	fx.Provide(router.AsRoute(health.NewHandler)),
)
