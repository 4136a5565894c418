package reports

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"webpage-auditor/internal/pkg/render"
	"webpage-auditor/internal/router"

	"github.com/go-chi/chi/v5"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type recordGetter interface {
	Enabled() bool
	Get(ctx context.Context, id string) (Record, error)
}

type GetByIDHandler struct {
	store  recordGetter
	logger *zap.SugaredLogger
}

type NewGetByIDHandlerParams struct {
	fx.In

	Store  *Store
	Logger *zap.SugaredLogger
}

func NewGetByIDHandler(p NewGetByIDHandlerParams) *GetByIDHandler {
	return &GetByIDHandler{
		store:  p.Store,
		logger: p.Logger,
	}
}

func (h *GetByIDHandler) RegisterRoute(r *chi.Mux) {
	r.Get("/v1/audits/{id}", h.Handle)
}

func (h *GetByIDHandler) Handle(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if id == "" {
		render.ChiErr(w, http.StatusBadRequest, "missing id")
		return
	}

	if !h.store.Enabled() {
		render.ChiErr(w, http.StatusServiceUnavailable, "report history disabled")
		return
	}

	rec, err := h.store.Get(r.Context(), id)
	if errors.Is(err, ErrNotFound) {
		render.ChiErr(w, http.StatusNotFound, "not found")
		return
	}
	if err != nil {
		h.logger.Errorw("audit_report_get_by_id_failed", "id", id, "err", err)
		render.ChiErr(w, http.StatusInternalServerError, "failed to fetch audit report")
		return
	}

	render.ChiJSON(w, http.StatusOK, rec)
}

var _ router.Handler = (*GetByIDHandler)(nil)
