package fx

import (
	"webpage-auditor/cache"

	"go.uber.org/fx"
)

var Module = fx.Module(
	"redis",
	fx.Provide(
		cache.NewRedis,
		cache.NewResultCache,
	),
)
