package fx

import (
	"go.uber.org/fx"

	"webpage-auditor/internal/app/qa"
	"webpage-auditor/internal/router"
)

var Module = fx.Module(
	"qa",
	fx.Provide(
		router.AsRoute(qa.NewValidateHandler),
		router.AsRoute(qa.NewAccessibilityHandler),
		router.AsRoute(qa.NewHTMLValidationHandler),
		router.AsRoute(qa.NewPerformanceHandler),
		router.AsRoute(qa.NewSEOHandler),
		router.AsRoute(qa.NewReportHandler),
	),
)
