package fx

import (
	"webpage-auditor/config"
	"webpage-auditor/internal/app/inngest"
	"webpage-auditor/internal/app/inngest/auditrun"
	pkginngest "webpage-auditor/internal/pkg/inngest"
	"webpage-auditor/internal/router"

	"github.com/inngest/inngestgo"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Options(
	fx.Provide(
		pkginngest.NewInngestClient,
		auditrun.NewAuditFunction,
		router.AsRoute(inngest.NewInngestHandler),
	),
	fx.Invoke(registerFunctions),
)

func registerFunctions(
	cfg *config.Config,
	client inngestgo.Client,
	auditFunc *auditrun.AuditFunction,
	logger *zap.SugaredLogger,
) error {
	if !pkginngest.Enabled(cfg) {
		logger.Infow("inngest_disabled", "reason", "missing INNGEST_APP_ID")
		return nil
	}

	_, err := inngestgo.CreateFunction(
		client,
		inngestgo.FunctionOpts{
			ID:      "audit-url",
			Retries: inngestgo.IntPtr(0),
		},
		inngestgo.EventTrigger(auditrun.AuditRequestedEventName, nil),
		auditFunc.Handle,
	)
	if err != nil {
		logger.Errorw("inngest_create_function_failed", "err", err)
		return err
	}

	logger.Infow("inngest_enabled",
		"path", pkginngest.ServePath(cfg),
		"event", auditrun.AuditRequestedEventName,
	)
	return nil
}
