package fx

import (
	"context"

	"webpage-auditor/internal/app/amqp/auditworker"
	"webpage-auditor/internal/pkg/amqpclient"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module(
	"amqp-auditworker",
	fx.Provide(
		amqpclient.NewAMQP,
		fx.Annotate(
			auditworker.NewAuditHandler,
			fx.As(new(auditworker.Handler)),
		),
		auditworker.NewConsumer,
	),
	fx.Invoke(registerLifecycleHooks),
)

type hooksParams struct {
	fx.In

	Lifecycle fx.Lifecycle
	Consumer  *auditworker.Consumer
	Logger    *zap.SugaredLogger
}

func registerLifecycleHooks(p hooksParams) {
	runCtx, cancel := context.WithCancel(context.Background())

	p.Lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			p.Logger.Infow("auditworker_starting")
			return p.Consumer.Start(runCtx)
		},
		OnStop: func(ctx context.Context) error {
			p.Logger.Infow("auditworker_stopping")
			err := p.Consumer.Stop(ctx)
			cancel()
			return err
		},
	})
}
