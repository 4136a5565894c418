// Package reachability answers whether a URL loads in the browser.
package reachability

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"webpage-auditor/internal/audit"
	"webpage-auditor/internal/browser"
)

// PageSource hands out isolated pages; *browser.Manager implements it.
type PageSource interface {
	AcquirePage(ctx context.Context) (browser.Page, error)
}

// Result is the payload of the single reachability finding.
type Result struct {
	Reachable  bool   `json:"reachable"`
	StatusCode int    `json:"statusCode,omitempty"`
	Reason     string `json:"reason,omitempty"`
}

type Auditor struct {
	pages      PageSource
	navTimeout time.Duration
	logger     *zap.SugaredLogger
}

func New(pages PageSource, navTimeout time.Duration, logger *zap.SugaredLogger) *Auditor {
	if navTimeout <= 0 {
		navTimeout = browser.DefaultNavigationTimeout
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Auditor{pages: pages, navTimeout: navTimeout, logger: logger}
}

func (a *Auditor) Kind() audit.CheckKind { return audit.CheckValidate }

// Audit never fails because of the target: a page that does not load is reported as unreachable.
// Only a missing browser session is an error.
func (a *Auditor) Audit(ctx context.Context, url string) ([]audit.Finding, error) {
	res, err := a.Check(ctx, url)
	if err != nil {
		return nil, err
	}
	return []audit.Finding{toFinding(res)}, nil
}

func (a *Auditor) Check(ctx context.Context, url string) (Result, error) {
	page, err := a.pages.AcquirePage(ctx)
	if err != nil {
		return Result{}, err
	}
	defer page.Close()

	navCtx, cancel := context.WithTimeout(ctx, a.navTimeout)
	defer cancel()

	status, err := page.Goto(navCtx, url)
	if err != nil {
		a.logger.Infow("reachability_navigation_failed", "url", url, "err", err)
		return Result{Reachable: false, Reason: "navigation failed"}, nil
	}
	if status >= http.StatusBadRequest {
		return Result{Reachable: false, StatusCode: status, Reason: fmt.Sprintf("HTTP %d", status)}, nil
	}
	return Result{Reachable: true, StatusCode: status}, nil
}

func toFinding(r Result) audit.Finding {
	f := audit.Finding{
		Severity: audit.SeverityInfo,
		Category: "reachability",
		Title:    "Page is reachable",
		Data:     r,
	}
	if !r.Reachable {
		f.Severity = audit.SeverityError
		f.Title = "Page is not reachable"
		f.Description = r.Reason
	}
	return f
}
