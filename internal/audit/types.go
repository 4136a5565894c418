package audit

import (
	"context"
	"fmt"
	"strings"
	"time"
)

type CheckKind string

const (
	CheckValidate       CheckKind = "validate"
	CheckAccessibility  CheckKind = "accessibility"
	CheckHTMLValidation CheckKind = "html-validation"
	CheckPerformance    CheckKind = "performance"
	CheckSEO            CheckKind = "seo"
)

// AllChecks lists every check kind in report order.
func AllChecks() []CheckKind {
	return []CheckKind{
		CheckValidate,
		CheckAccessibility,
		CheckHTMLValidation,
		CheckPerformance,
		CheckSEO,
	}
}

func ParseCheckKind(raw string) (CheckKind, error) {
	k := CheckKind(strings.ToLower(strings.TrimSpace(raw)))
	for _, known := range AllChecks() {
		if k == known {
			return k, nil
		}
	}
	return "", Errorf(InvalidRequest, "unknown check %q", raw)
}

type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// Finding is one normalized observation. Data carries the auditor specific payload.
type Finding struct {
	Severity    Severity `json:"severity"`
	Category    string   `json:"category"`
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	HelpURL     string   `json:"helpUrl,omitempty"`
	Data        any      `json:"data,omitempty"`
}

type Status string

const (
	StatusOK     Status = "ok"
	StatusFailed Status = "failed"
)

// Failure is the caller-safe marker stored in place of findings.
type Failure struct {
	Category Category `json:"category"`
	Message  string   `json:"message"`
}

type Result struct {
	Check      CheckKind `json:"check"`
	Status     Status    `json:"status"`
	Findings   []Finding `json:"findings"`
	Failure    *Failure  `json:"failure,omitempty"`
	DurationMs int64     `json:"durationMs"`
	Cached     bool      `json:"cached,omitempty"`
}

func (r Result) OK() bool { return r.Status == StatusOK }

type Report struct {
	URL        string               `json:"url"`
	StartedAt  time.Time            `json:"startedAt"`
	FinishedAt time.Time            `json:"finishedAt"`
	Results    map[CheckKind]Result `json:"results"`
}

// Request is a normalized audit request.
type Request struct {
	URL    string
	Checks []CheckKind
}

// Auditor performs one check kind against a URL.
type Auditor interface {
	Kind() CheckKind
	Audit(ctx context.Context, url string) ([]Finding, error)
}

// AuditorFunc adapts a function into an Auditor.
type AuditorFunc struct {
	Check CheckKind
	Fn    func(ctx context.Context, url string) ([]Finding, error)
}

func (f AuditorFunc) Kind() CheckKind { return f.Check }

func (f AuditorFunc) Audit(ctx context.Context, url string) ([]Finding, error) {
	if f.Fn == nil {
		return nil, fmt.Errorf("auditor %s has no func", f.Check)
	}
	return f.Fn(ctx, url)
}
