package audit

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ResultCache stores findings of successful checks. Implementations must be safe for concurrent use.
type ResultCache interface {
	Get(ctx context.Context, kind CheckKind, url string) ([]Finding, bool)
	Set(ctx context.Context, kind CheckKind, url string, findings []Finding)
}

type NewAuditorsParams struct {
	fx.In

	Auditors []Auditor `group:"auditors"`
}

func NewAuditors(p NewAuditorsParams) (map[CheckKind]Auditor, error) {
	m := make(map[CheckKind]Auditor, len(p.Auditors))
	for _, a := range p.Auditors {
		if _, exists := m[a.Kind()]; exists {
			return nil, fmt.Errorf("duplicate auditor for check: %s", a.Kind())
		}
		m[a.Kind()] = a
	}
	return m, nil
}

type OrchestratorConfig struct {
	MaxParallel int
	Logger      *zap.SugaredLogger
	// Cache is optional.
	Cache ResultCache
}

type Orchestrator struct {
	auditors    map[CheckKind]Auditor
	maxParallel int
	logger      *zap.SugaredLogger
	cache       ResultCache
	now         func() time.Time
}

func NewOrchestrator(auditors map[CheckKind]Auditor, cfg OrchestratorConfig) *Orchestrator {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Orchestrator{
		auditors:    auditors,
		maxParallel: cfg.MaxParallel,
		logger:      logger,
		cache:       cfg.Cache,
		now:         time.Now,
	}
}

// Run normalizes rawURL and checks, then runs every requested check concurrently.
// Only an invalid request returns an error; per-check failures are recorded in the Report.
func (o *Orchestrator) Run(ctx context.Context, rawURL string, checks []string) (Report, error) {
	req, err := NormalizeRequest(rawURL, checks)
	if err != nil {
		return Report{}, err
	}
	return o.RunRequest(ctx, req), nil
}

func (o *Orchestrator) RunRequest(ctx context.Context, req Request) Report {
	report := Report{
		URL:       req.URL,
		StartedAt: o.now().UTC(),
		Results:   make(map[CheckKind]Result, len(req.Checks)),
	}

	results := make([]Result, len(req.Checks))

	// Auditors never return errors to the group, so one failing check does not cancel the rest.
	var g errgroup.Group
	if o.maxParallel > 0 {
		g.SetLimit(o.maxParallel)
	}
	for i, kind := range req.Checks {
		g.Go(func() error {
			results[i] = o.runCheck(ctx, kind, req.URL)
			return nil
		})
	}
	_ = g.Wait()

	for _, res := range results {
		report.Results[res.Check] = res
	}
	report.FinishedAt = o.now().UTC()

	o.logger.Infow("audit_finished",
		"url", report.URL,
		"checks", len(report.Results),
		"duration", report.FinishedAt.Sub(report.StartedAt),
	)
	return report
}

// RunCheck runs a single check and returns its result. rawURL is normalized first.
func (o *Orchestrator) RunCheck(ctx context.Context, rawURL string, kind CheckKind) (Result, error) {
	u, err := NormalizeURL(rawURL)
	if err != nil {
		return Result{}, err
	}
	return o.runCheck(ctx, kind, u), nil
}

func (o *Orchestrator) runCheck(ctx context.Context, kind CheckKind, url string) (res Result) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			o.logger.Errorw("auditor_panic",
				"check", kind,
				"url", url,
				"panic", r,
				"stack", string(debug.Stack()),
			)
			res = failedResult(kind, Errorf(Internal, "%s check crashed", kind))
		}
		res.DurationMs = time.Since(start).Milliseconds()
		recordCheck(kind, res, time.Since(start))
	}()

	auditor, ok := o.auditors[kind]
	if !ok {
		return failedResult(kind, Errorf(Internal, "%s check is not configured", kind))
	}

	if o.cache != nil {
		if findings, hit := o.cache.Get(ctx, kind, url); hit {
			recordCacheHit(kind)
			return Result{Check: kind, Status: StatusOK, Findings: findings, Cached: true}
		}
	}

	findings, err := auditor.Audit(ctx, url)
	if err != nil {
		o.logger.Warnw("audit_check_failed",
			"check", kind,
			"url", url,
			"category", CategoryOf(err),
			"err", err,
		)
		return failedResult(kind, err)
	}

	if findings == nil {
		findings = []Finding{}
	}
	if o.cache != nil {
		o.cache.Set(ctx, kind, url, findings)
	}
	return Result{Check: kind, Status: StatusOK, Findings: findings}
}

func failedResult(kind CheckKind, err error) Result {
	return Result{
		Check:  kind,
		Status: StatusFailed,
		Failure: &Failure{
			Category: CategoryOf(err),
			Message:  SafeMessage(err),
		},
	}
}
