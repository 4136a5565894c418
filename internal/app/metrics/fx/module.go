package fx

import (
	"webpage-auditor/internal/app/metrics"
	"webpage-auditor/internal/router"

	"go.uber.org/fx"
)

var Module = fx.Options(
	fx.Provide(router.AsRoute(metrics.NewHandler)),
)
