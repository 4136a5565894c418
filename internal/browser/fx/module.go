package fx

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"webpage-auditor/config"
	"webpage-auditor/internal/browser"
)

var Module = fx.Module(
	"browser",
	fx.Provide(
		NewDriver,
		NewManager,
	),
	fx.Invoke(registerLifecycle),
)

type NewDriverParams struct {
	fx.In

	Cfg    *config.Config
	Logger *zap.SugaredLogger
}

func NewDriver(p NewDriverParams) browser.Driver {
	return browser.NewPlaywrightDriver(browser.PlaywrightConfig{
		Headless:          p.Cfg.Browser.Headless,
		SkipInstall:       p.Cfg.Browser.SkipInstall,
		CDPEndpoint:       p.Cfg.Browser.CDPEndpoint,
		DebugHost:         p.Cfg.Browser.DebugHost,
		DebugPort:         p.Cfg.Browser.DebugPort,
		NavigationTimeout: p.Cfg.Browser.NavigationTimeout,
		ScriptTimeout:     p.Cfg.Browser.ScriptTimeout,
		Logger:            p.Logger,
	})
}

type NewManagerParams struct {
	fx.In

	Cfg    *config.Config
	Logger *zap.SugaredLogger
	Driver browser.Driver
}

func NewManager(p NewManagerParams) *browser.Manager {
	return browser.NewManager(p.Driver, browser.ManagerConfig{
		LaunchTimeout:  p.Cfg.Browser.LaunchTimeout,
		AcquireTimeout: p.Cfg.Browser.AcquireTimeout,
		Logger:         p.Logger,
	})
}

// registerLifecycle kicks off the launch without holding up app start.
func registerLifecycle(lc fx.Lifecycle, m *browser.Manager) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			m.Start()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return m.Shutdown(ctx)
		},
	})
}
