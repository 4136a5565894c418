package qa

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"webpage-auditor/internal/audit"
	"webpage-auditor/internal/audit/accessibility"
	"webpage-auditor/internal/audit/htmlvalidator"
	"webpage-auditor/internal/audit/performance"
	"webpage-auditor/internal/audit/reachability"
	"webpage-auditor/internal/audit/seo"
	"webpage-auditor/internal/pkg/render"
	"webpage-auditor/internal/router"
)

type checkRunner interface {
	RunCheck(ctx context.Context, rawURL string, kind audit.CheckKind) (audit.Result, error)
}

// CheckHandler serves GET /qa/<check>?url= with the check's own response shape.
type CheckHandler struct {
	kind   audit.CheckKind
	runner checkRunner
	logger *zap.SugaredLogger
	shape  func([]audit.Finding) (any, error)
}

type NewCheckHandlerParams struct {
	fx.In

	Orchestrator *audit.Orchestrator
	Logger       *zap.SugaredLogger
}

func NewValidateHandler(p NewCheckHandlerParams) *CheckHandler {
	return newCheckHandler(audit.CheckValidate, p, shapeValidate)
}

func NewAccessibilityHandler(p NewCheckHandlerParams) *CheckHandler {
	return newCheckHandler(audit.CheckAccessibility, p, shapeList[accessibility.Violation])
}

func NewHTMLValidationHandler(p NewCheckHandlerParams) *CheckHandler {
	return newCheckHandler(audit.CheckHTMLValidation, p, shapeList[htmlvalidator.Message])
}

func NewPerformanceHandler(p NewCheckHandlerParams) *CheckHandler {
	return newCheckHandler(audit.CheckPerformance, p, shapeList[performance.Metric])
}

func NewSEOHandler(p NewCheckHandlerParams) *CheckHandler {
	return newCheckHandler(audit.CheckSEO, p, shapeSEO)
}

func newCheckHandler(kind audit.CheckKind, p NewCheckHandlerParams, shape func([]audit.Finding) (any, error)) *CheckHandler {
	return &CheckHandler{kind: kind, runner: p.Orchestrator, logger: p.Logger, shape: shape}
}

func (h *CheckHandler) RegisterRoute(r *chi.Mux) {
	r.Get("/qa/"+string(h.kind), h.Handle)
}

func (h *CheckHandler) Handle(w http.ResponseWriter, r *http.Request) {
	res, err := h.runner.RunCheck(r.Context(), r.URL.Query().Get("url"), h.kind)
	if err != nil {
		writeAuditErr(w, err)
		return
	}

	if !res.OK() {
		render.ChiCategoryErr(w, audit.HTTPStatus(res.Failure.Category), string(res.Failure.Category), res.Failure.Message)
		return
	}

	body, err := h.shape(res.Findings)
	if err != nil {
		h.logger.Errorw("qa_response_shape_failed", "check", h.kind, "err", err)
		render.ChiErr(w, http.StatusInternalServerError, "failed to render result")
		return
	}
	render.ChiJSON(w, http.StatusOK, body)
}

func writeAuditErr(w http.ResponseWriter, err error) {
	c := audit.CategoryOf(err)
	render.ChiCategoryErr(w, audit.HTTPStatus(c), string(c), audit.SafeMessage(err))
}

type validateResponse struct {
	Valid bool `json:"valid"`
}

func shapeValidate(findings []audit.Finding) (any, error) {
	if len(findings) == 0 {
		return nil, fmt.Errorf("validate produced no findings")
	}
	res, err := decodeData[reachability.Result](findings[0])
	if err != nil {
		return nil, err
	}
	return validateResponse{Valid: res.Reachable}, nil
}

func shapeSEO(findings []audit.Finding) (any, error) {
	if len(findings) == 0 {
		return nil, fmt.Errorf("seo produced no findings")
	}
	return decodeData[seo.Report](findings[0])
}

func shapeList[T any](findings []audit.Finding) (any, error) {
	out := make([]T, 0, len(findings))
	for _, f := range findings {
		v, err := decodeData[T](f)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// decodeData reads a finding payload as T. Payloads served from the result
// cache arrive as generic JSON values, so this goes through encoding/json.
func decodeData[T any](f audit.Finding) (T, error) {
	var out T
	if v, ok := f.Data.(T); ok {
		return v, nil
	}
	b, err := json.Marshal(f.Data)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(b, &out); err != nil {
		return out, fmt.Errorf("decode %T payload: %w", out, err)
	}
	return out, nil
}

var _ router.Handler = (*CheckHandler)(nil)
