package main

import (
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	enqueuefx "webpage-auditor/internal/app/amqp/enqueue/fx"
	appfx "webpage-auditor/internal/app/fx"
	healthfx "webpage-auditor/internal/app/health/fx"
	inngestfx "webpage-auditor/internal/app/inngest/fx"
	metricsfx "webpage-auditor/internal/app/metrics/fx"
	qafx "webpage-auditor/internal/app/qa/fx"
	routerfx "webpage-auditor/internal/router/fx"
	serverfx "webpage-auditor/internal/server/fx"
)

func main() {
	app := fx.New(
		fx.WithLogger(func(logger *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: logger}
		}),
		appfx.Module,
		routerfx.CoreRouterOptions,
		serverfx.Module,
		healthfx.Module,
		metricsfx.Module,
		qafx.Module,
		inngestfx.Module,
		enqueuefx.Module,
	)

	app.Run()
}
