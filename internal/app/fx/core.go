package fx

import (
	"webpage-auditor/config"
	"webpage-auditor/internal/logs"

	"go.uber.org/fx"
)

// CoreAppOptions provides configuration and logging.
var CoreAppOptions = fx.Options(
	fx.Provide(
		config.NewViper,
		config.NewConfig,
		logs.NewLogger,
		logs.NewSugaredLogger,
	),
	fx.Invoke(logs.RegisterLifecycle),
)
