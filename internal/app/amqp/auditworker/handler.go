package auditworker

import (
	"context"
	"fmt"
	"strings"

	"webpage-auditor/internal/app/reports"
	"webpage-auditor/internal/audit"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

type reportRunner interface {
	Run(ctx context.Context, rawURL string, checks []string) (audit.Report, error)
}

type reportSaver interface {
	Enabled() bool
	Save(ctx context.Context, in reports.SaveInput) error
}

// AuditHandler runs the requested checks and stores the report.
type AuditHandler struct {
	runner reportRunner
	store  reportSaver
	logger *zap.SugaredLogger
}

type NewAuditHandlerParams struct {
	fx.In

	Orchestrator *audit.Orchestrator
	Store        *reports.Store
	Logger       *zap.SugaredLogger
}

func NewAuditHandler(p NewAuditHandlerParams) *AuditHandler {
	return &AuditHandler{
		runner: p.Orchestrator,
		store:  p.Store,
		logger: p.Logger,
	}
}

func (h *AuditHandler) Handle(ctx context.Context, msg AuditRequestedEnvelope) error {
	url := strings.TrimSpace(msg.Data.URL)
	if url == "" {
		return fmt.Errorf("missing url")
	}
	if strings.TrimSpace(msg.EventID) == "" {
		return fmt.Errorf("missing event_id")
	}
	if strings.TrimSpace(msg.EventName) != "" && msg.EventName != EventName {
		return fmt.Errorf("unexpected event_name: %s", msg.EventName)
	}

	report, err := h.runner.Run(ctx, url, msg.Data.Checks)
	in := reports.SaveInput{
		ID:        msg.EventID,
		URL:       url,
		Checks:    msg.Data.Checks,
		CreatedBy: "rabbitmq",
	}
	if err != nil {
		// Invalid requests are permanent; record them instead of dead-lettering.
		if audit.CategoryOf(err) != audit.InvalidRequest {
			return err
		}
		h.logger.Warnw("auditworker_invalid_request",
			"event_id", msg.EventID,
			"url", url,
			"err", err,
		)
		in.Err = err
	} else {
		in.Report = &report
	}

	failed := 0
	for _, res := range report.Results {
		if !res.OK() {
			failed++
		}
	}

	if !h.store.Enabled() {
		h.logger.Infow("auditworker_finished_not_persisted",
			"event_id", msg.EventID,
			"url", url,
			"checks", len(report.Results),
			"failed", failed,
		)
		return nil
	}

	if err := h.store.Save(ctx, in); err != nil {
		h.logger.Errorw("auditworker_persist_report_failed",
			"event_id", msg.EventID,
			"url", url,
			"err", err,
		)
		return err
	}

	h.logger.Infow("auditworker_finished",
		"event_id", msg.EventID,
		"url", url,
		"checks", len(report.Results),
		"failed", failed,
	)
	return nil
}

var _ Handler = (*AuditHandler)(nil)
