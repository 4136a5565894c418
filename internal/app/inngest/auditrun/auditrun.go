package auditrun

import (
	"context"
	"strings"

	"webpage-auditor/internal/app/reports"
	"webpage-auditor/internal/audit"

	"github.com/google/uuid"
	"github.com/inngest/inngestgo"
	"github.com/inngest/inngestgo/step"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const AuditRequestedEventName = "auditor/url.requested"

type AuditRequestedEventData struct {
	URL    string   `json:"url"`
	Checks []string `json:"checks,omitempty"`
}

type reportRunner interface {
	Run(ctx context.Context, rawURL string, checks []string) (audit.Report, error)
}

type reportSaver interface {
	Enabled() bool
	Save(ctx context.Context, in reports.SaveInput) error
}

type AuditFunction struct {
	runner reportRunner
	store  reportSaver
	logger *zap.SugaredLogger
}

type NewAuditFunctionParams struct {
	fx.In

	Orchestrator *audit.Orchestrator
	Store        *reports.Store
	Logger       *zap.SugaredLogger
}

func NewAuditFunction(p NewAuditFunctionParams) *AuditFunction {
	return &AuditFunction{
		runner: p.Orchestrator,
		store:  p.Store,
		logger: p.Logger,
	}
}

// Outcome is what the run-audit step memoizes.
type Outcome struct {
	Report  *audit.Report  `json:"report,omitempty"`
	Failure *audit.Failure `json:"failure,omitempty"`
}

func (f *AuditFunction) Handle(ctx context.Context, input inngestgo.Input[AuditRequestedEventData]) (any, error) {
	data := input.Event.Data
	eventID := ""
	if input.Event.ID != nil {
		eventID = strings.TrimSpace(*input.Event.ID)
	}

	outcome, err := step.Run(ctx, "run-audit", func(ctx context.Context) (Outcome, error) {
		f.logger.Infow("inngest_step", "step", "run-audit", "url", data.URL)
		return f.RunAudit(ctx, data)
	})
	if err != nil {
		return nil, err
	}

	id, err := step.Run(ctx, "persist-report", func(ctx context.Context) (string, error) {
		f.logger.Infow("inngest_step", "step", "persist-report", "event_id", eventID)
		return f.Persist(ctx, eventID, data, outcome)
	})
	if err != nil {
		return nil, inngestgo.NoRetryError(err)
	}

	f.logger.Infow("inngest_audit_finished", "url", data.URL, "report_id", id)
	return map[string]any{
		"report_id": id,
		"report":    outcome.Report,
		"failure":   outcome.Failure,
	}, nil
}

// RunAudit runs the orchestrator. An invalid request becomes a failure outcome
// wrapped so Inngest does not retry it.
func (f *AuditFunction) RunAudit(ctx context.Context, data AuditRequestedEventData) (Outcome, error) {
	report, err := f.runner.Run(ctx, data.URL, data.Checks)
	if err != nil {
		f.logger.Warnw("inngest_audit_invalid_request", "url", data.URL, "err", err)
		return Outcome{Failure: &audit.Failure{
			Category: audit.CategoryOf(err),
			Message:  audit.SafeMessage(err),
		}}, nil
	}
	return Outcome{Report: &report}, nil
}

// Persist stores the outcome when history is enabled and returns the report id.
func (f *AuditFunction) Persist(ctx context.Context, eventID string, data AuditRequestedEventData, outcome Outcome) (string, error) {
	if !f.store.Enabled() {
		f.logger.Infow("inngest_audit_not_persisted", "reason", "report history disabled")
		return "", nil
	}

	if strings.TrimSpace(data.URL) == "" {
		f.logger.Warnw("inngest_audit_not_persisted", "reason", "missing url")
		return "", nil
	}

	id := eventID
	if id == "" {
		id = uuid.NewString()
	}

	in := reports.SaveInput{
		ID:        id,
		URL:       data.URL,
		Checks:    data.Checks,
		Report:    outcome.Report,
		CreatedBy: "inngest",
	}
	if outcome.Failure != nil {
		in.Err = audit.NewError(outcome.Failure.Category, outcome.Failure.Message, nil)
	}

	if err := f.store.Save(ctx, in); err != nil {
		f.logger.Errorw("inngest_step_failed", "step", "persist-report", "err", err)
		return "", err
	}
	return id, nil
}
