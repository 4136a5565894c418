package fx

import (
	"webpage-auditor/internal/app/amqp/enqueue"
	"webpage-auditor/internal/pkg/amqpclient"
	"webpage-auditor/internal/router"

	"go.uber.org/fx"
)

var Module = fx.Options(
	fx.Provide(
		amqpclient.NewAMQP,
		router.AsRoute(enqueue.NewHandler),
	),
)
