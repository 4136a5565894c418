package metrics

import (
	"net/http"

	"webpage-auditor/internal/router"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler exposes the default Prometheus registry on GET /metrics.
type Handler struct {
	h http.Handler
}

func NewHandler() *Handler {
	return &Handler{h: promhttp.HandlerFor(prometheus.DefaultGatherer, promhttp.HandlerOpts{})}
}

func (h *Handler) RegisterRoute(r *chi.Mux) {
	r.Get("/metrics", h.Handle)
}

func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	h.h.ServeHTTP(w, r)
}

var _ router.Handler = (*Handler)(nil)
