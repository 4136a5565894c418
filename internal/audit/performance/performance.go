// Package performance reports Core Web Vitals field data from PageSpeed Insights.
package performance

import (
	"context"
	"errors"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"webpage-auditor/internal/audit"
	"webpage-auditor/internal/pkg/upstream"
)

type Config struct {
	Endpoint string
	APIKey   string
	Strategy string
	Logger   *zap.SugaredLogger
}

type Auditor struct {
	client *upstream.Client
	cfg    Config
	logger *zap.SugaredLogger
}

func New(client *upstream.Client, cfg Config) *Auditor {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Auditor{client: client, cfg: cfg, logger: logger}
}

func (a *Auditor) Kind() audit.CheckKind { return audit.CheckPerformance }

func (a *Auditor) Audit(ctx context.Context, target string) ([]audit.Finding, error) {
	metrics, err := a.Metrics(ctx, target)
	if err != nil {
		return nil, err
	}
	return Findings(metrics), nil
}

func (a *Auditor) Metrics(ctx context.Context, target string) ([]Metric, error) {
	q := url.Values{"url": {target}}
	if key := strings.TrimSpace(a.cfg.APIKey); key != "" {
		q.Set("key", key)
	}
	if s := strings.TrimSpace(a.cfg.Strategy); s != "" {
		q.Set("strategy", s)
	}

	var resp Response
	if err := a.client.GetJSON(ctx, a.cfg.Endpoint, q, &resp); err != nil {
		switch {
		case errors.Is(err, upstream.ErrDecode):
			return nil, audit.NewError(audit.UpstreamFailure, "pagespeed returned a malformed response", err)
		case errors.Is(err, upstream.ErrTooLarge):
			return nil, audit.NewError(audit.UpstreamFailure, "pagespeed response too large", err)
		}
		return nil, audit.NewError(audit.UpstreamFailure, "pagespeed request failed", err)
	}
	metrics := Extract(resp)

	missing := 0
	for _, m := range metrics {
		if !m.Available {
			missing++
		}
	}
	if missing > 0 {
		a.logger.Infow("pagespeed_metrics_missing", "url", target, "missing", missing)
	}
	return metrics, nil
}

// Findings turns metrics into findings; an omitted metric becomes a MetricUnavailable finding.
func Findings(metrics []Metric) []audit.Finding {
	out := make([]audit.Finding, 0, len(metrics))
	for _, m := range metrics {
		f := audit.Finding{
			Severity:    audit.SeverityInfo,
			Category:    "performance",
			Title:       m.ID,
			Description: m.Description,
			HelpURL:     m.LearnMore,
			Data:        m,
		}
		if !m.Available {
			f.Severity = audit.SeverityWarning
			f.Category = string(audit.MetricUnavailable)
			f.Description = m.Short + " has no field data for this page"
		} else if sev, ok := categorySeverity[m.Category]; ok {
			f.Severity = sev
		}
		out = append(out, f)
	}
	return out
}

var categorySeverity = map[string]audit.Severity{
	"FAST":    audit.SeverityInfo,
	"AVERAGE": audit.SeverityWarning,
	"SLOW":    audit.SeverityError,
}
