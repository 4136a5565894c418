// Package accessibility runs axe-core inside a live page and reports its violations.
package accessibility

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"webpage-auditor/internal/audit"
	"webpage-auditor/internal/browser"
)

const (
	probeScript = `() => typeof window.axe !== 'undefined' && typeof window.axe.run === 'function'`

	// Node handles are not serializable, so only the count leaves the page.
	runScript = `async () => {
  const results = await window.axe.run(document, { resultTypes: ['violations'] });
  return results.violations.map((v) => ({
    id: v.id,
    impact: v.impact || '',
    description: v.description,
    help: v.help,
    helpUrl: v.helpUrl,
    tags: v.tags,
    nodeCount: Array.isArray(v.nodes) ? v.nodes.length : 0,
  }));
}`
)

type PageSource interface {
	AcquirePage(ctx context.Context) (browser.Page, error)
}

// Violation is one axe rule failure without per-node detail.
type Violation struct {
	ID          string   `json:"id"`
	Impact      string   `json:"impact"`
	Description string   `json:"description"`
	Help        string   `json:"help"`
	HelpURL     string   `json:"helpUrl"`
	Tags        []string `json:"tags"`
	NodeCount   int      `json:"nodeCount"`
}

type Config struct {
	NavigationTimeout time.Duration
	ScriptTimeout     time.Duration
	Logger            *zap.SugaredLogger
}

type Auditor struct {
	pages  PageSource
	script *ScriptLoader
	cfg    Config
	logger *zap.SugaredLogger
}

func New(pages PageSource, script *ScriptLoader, cfg Config) *Auditor {
	if cfg.NavigationTimeout <= 0 {
		cfg.NavigationTimeout = browser.DefaultNavigationTimeout
	}
	if cfg.ScriptTimeout <= 0 {
		cfg.ScriptTimeout = browser.DefaultScriptTimeout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Auditor{pages: pages, script: script, cfg: cfg, logger: logger}
}

func (a *Auditor) Kind() audit.CheckKind { return audit.CheckAccessibility }

func (a *Auditor) Audit(ctx context.Context, url string) ([]audit.Finding, error) {
	violations, err := a.Violations(ctx, url)
	if err != nil {
		return nil, err
	}
	findings := make([]audit.Finding, 0, len(violations))
	for _, v := range violations {
		findings = append(findings, audit.Finding{
			Severity:    severity(v.Impact),
			Category:    "accessibility",
			Title:       v.Help,
			Description: v.Description,
			HelpURL:     v.HelpURL,
			Data:        v,
		})
	}
	return findings, nil
}

// Violations navigates to url, runs axe and returns the violations. The page is closed on every path.
func (a *Auditor) Violations(ctx context.Context, url string) ([]Violation, error) {
	source, err := a.script.Load(ctx)
	if err != nil {
		return nil, audit.NewError(audit.ScriptError, "accessibility engine is unavailable", err)
	}

	page, err := a.pages.AcquirePage(ctx)
	if err != nil {
		return nil, err
	}
	defer page.Close()

	navCtx, cancel := context.WithTimeout(ctx, a.cfg.NavigationTimeout)
	_, err = page.Goto(navCtx, url)
	cancel()
	if err != nil {
		a.logger.Infow("accessibility_navigation_failed", "url", url, "err", err)
		return nil, audit.NewError(audit.NavigationError, "invalid URL: page did not load", err)
	}

	scriptCtx, cancel := context.WithTimeout(ctx, a.cfg.ScriptTimeout)
	defer cancel()

	if err := page.InjectScript(scriptCtx, source); err != nil {
		return nil, scriptFailure("could not inject accessibility engine", err)
	}

	loaded, err := page.Evaluate(scriptCtx, probeScript, nil)
	if err != nil {
		return nil, scriptFailure("could not inject accessibility engine", err)
	}
	if ok, _ := loaded.(bool); !ok {
		return nil, audit.Errorf(audit.ScriptError, "accessibility engine was blocked by the page")
	}

	raw, err := page.Evaluate(scriptCtx, runScript, nil)
	if err != nil {
		return nil, scriptFailure("accessibility analysis failed", err)
	}

	violations, err := decodeViolations(raw)
	if err != nil {
		return nil, audit.NewError(audit.ScriptError, "accessibility analysis returned an unexpected result", err)
	}
	return violations, nil
}

func scriptFailure(msg string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return audit.NewError(audit.ScriptError, msg+": timed out", err)
	}
	return audit.NewError(audit.ScriptError, msg, err)
}

// decodeViolations converts the generic value returned by the automation bridge.
func decodeViolations(raw any) ([]Violation, error) {
	if raw == nil {
		return []Violation{}, nil
	}
	b, err := json.Marshal(raw)
	if err != nil {
		return nil, err
	}
	var out []Violation
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, fmt.Errorf("decode violations: %w", err)
	}
	return out, nil
}

func severity(impact string) audit.Severity {
	switch impact {
	case "critical", "serious":
		return audit.SeverityError
	case "moderate":
		return audit.SeverityWarning
	default:
		return audit.SeverityInfo
	}
}
