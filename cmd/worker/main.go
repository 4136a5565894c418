package main

import (
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	auditworkerfx "webpage-auditor/internal/app/amqp/auditworker/fx"
	appfx "webpage-auditor/internal/app/fx"
)

func main() {
	app := fx.New(
		fx.WithLogger(func(logger *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: logger}
		}),
		appfx.Module,
		auditworkerfx.Module,
	)

	app.Run()
}
