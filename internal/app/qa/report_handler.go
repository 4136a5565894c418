package qa

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/fx"

	"webpage-auditor/internal/audit"
	"webpage-auditor/internal/pkg/render"
	"webpage-auditor/internal/router"
)

type reportRunner interface {
	Run(ctx context.Context, rawURL string, checks []string) (audit.Report, error)
}

// ReportHandler serves GET /v1/audits?url=&check=a&check=b with the full Report.
type ReportHandler struct {
	runner reportRunner
}

type NewReportHandlerParams struct {
	fx.In

	Orchestrator *audit.Orchestrator
}

func NewReportHandler(p NewReportHandlerParams) *ReportHandler {
	return &ReportHandler{runner: p.Orchestrator}
}

func (h *ReportHandler) RegisterRoute(r *chi.Mux) {
	r.Get("/v1/audits", h.Handle)
}

func (h *ReportHandler) Handle(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	report, err := h.runner.Run(r.Context(), q.Get("url"), q["check"])
	if err != nil {
		writeAuditErr(w, err)
		return
	}
	render.ChiJSON(w, http.StatusOK, report)
}

var _ router.Handler = (*ReportHandler)(nil)
