package fx

import (
	"go.uber.org/fx"
	"go.uber.org/zap"

	"webpage-auditor/config"
	"webpage-auditor/internal/audit"
	"webpage-auditor/internal/audit/accessibility"
	"webpage-auditor/internal/audit/htmlvalidator"
	"webpage-auditor/internal/audit/performance"
	"webpage-auditor/internal/audit/reachability"
	"webpage-auditor/internal/audit/seo"
	"webpage-auditor/internal/browser"
	"webpage-auditor/internal/pkg/upstream"
)

// AsAuditor registers constructor's result in the auditors group.
func AsAuditor(constructor any) fx.Option {
	return fx.Provide(
		fx.Annotate(
			constructor,
			fx.As(new(audit.Auditor)),
			fx.ResultTags(`group:"auditors"`),
		),
	)
}

var Module = fx.Module(
	"audit",
	fx.Provide(
		NewUpstreamClient,
		NewScriptLoader,
		fx.Annotate(NewEvaluator, fx.As(new(seo.Evaluator))),
		audit.NewAuditors,
		NewOrchestrator,
	),
	AsAuditor(NewReachabilityAuditor),
	AsAuditor(NewAccessibilityAuditor),
	AsAuditor(NewPerformanceAuditor),
	AsAuditor(NewHTMLValidatorAuditor),
	AsAuditor(NewSEOAuditor),
)

func NewUpstreamClient(cfg *config.Config) *upstream.Client {
	return upstream.New(upstream.Config{
		Timeout:           cfg.Upstream.Timeout,
		RequestsPerSecond: cfg.Upstream.RequestsPerSecond,
		UserAgent:         cfg.Upstream.UserAgent,
		MaxBodyBytes:      cfg.SEO.MaxDocumentBytes,
	})
}

func NewScriptLoader(cfg *config.Config, client *upstream.Client) *accessibility.ScriptLoader {
	return accessibility.NewScriptLoader(cfg.Axe.ScriptPath, cfg.Axe.ScriptURL, client)
}

func NewEvaluator(cfg *config.Config) *seo.OpenAIEvaluator {
	return seo.NewOpenAIEvaluator(seo.OpenAIConfig{
		APIKey:    cfg.OpenAI.APIKey,
		BaseURL:   cfg.OpenAI.BaseURL,
		Model:     cfg.OpenAI.Model,
		MaxTokens: cfg.OpenAI.MaxTokens,
	})
}

type AuditorParams struct {
	fx.In

	Cfg      *config.Config
	Logger   *zap.SugaredLogger
	Browser  *browser.Manager
	Upstream *upstream.Client
}

func NewReachabilityAuditor(p AuditorParams) *reachability.Auditor {
	return reachability.New(p.Browser, p.Cfg.Browser.NavigationTimeout, p.Logger)
}

func NewAccessibilityAuditor(p AuditorParams, script *accessibility.ScriptLoader) *accessibility.Auditor {
	return accessibility.New(p.Browser, script, accessibility.Config{
		NavigationTimeout: p.Cfg.Browser.NavigationTimeout,
		ScriptTimeout:     p.Cfg.Browser.ScriptTimeout,
		Logger:            p.Logger,
	})
}

func NewPerformanceAuditor(p AuditorParams) *performance.Auditor {
	return performance.New(p.Upstream, performance.Config{
		Endpoint: p.Cfg.Upstream.PageSpeedURL,
		APIKey:   p.Cfg.Upstream.PageSpeedAPIKey,
		Strategy: p.Cfg.Upstream.PageSpeedStrategy,
		Logger:   p.Logger,
	})
}

func NewHTMLValidatorAuditor(p AuditorParams) *htmlvalidator.Auditor {
	return htmlvalidator.New(p.Upstream, p.Cfg.Upstream.ValidatorURL)
}

func NewSEOAuditor(p AuditorParams, evaluator seo.Evaluator) *seo.Auditor {
	return seo.New(p.Upstream, evaluator, seo.Config{
		MaxParagraphs: p.Cfg.SEO.MaxParagraphs,
		Logger:        p.Logger,
	})
}

type NewOrchestratorParams struct {
	fx.In

	Cfg      *config.Config
	Logger   *zap.SugaredLogger
	Auditors map[audit.CheckKind]audit.Auditor
	Cache    audit.ResultCache `optional:"true"`
}

func NewOrchestrator(p NewOrchestratorParams) *audit.Orchestrator {
	if p.Cache != nil {
		p.Logger.Infow("audit_result_cache_enabled", "ttl", p.Cfg.Audit.CacheTTL)
	}
	return audit.NewOrchestrator(p.Auditors, audit.OrchestratorConfig{
		MaxParallel: p.Cfg.Audit.MaxParallel,
		Logger:      p.Logger,
		Cache:       p.Cache,
	})
}
