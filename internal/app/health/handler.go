package health

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"webpage-auditor/internal/browser"
	"webpage-auditor/internal/pkg/render"
)

type sessionState interface {
	State() browser.State
	CreatedAt() time.Time
	OpenPages() int
}

type Handler struct {
	browser sessionState
}

func NewHandler(m *browser.Manager) *Handler { return &Handler{browser: m} }

func (h *Handler) RegisterRoute(r *chi.Mux) {
	r.Get("/health", h.Handle)
}

type healthResponse struct {
	OK      bool          `json:"ok"`
	Browser browserHealth `json:"browser"`
}

type browserHealth struct {
	State     browser.State `json:"state"`
	ReadyAt   *time.Time    `json:"ready_at,omitempty"`
	OpenPages int           `json:"open_pages"`
}

// Handle reports liveness. The process is healthy while the browser is still
// starting; only a failed or closed session is unhealthy.
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	state := h.browser.State()
	resp := healthResponse{
		OK: state != browser.StateFailed && state != browser.StateClosed,
		Browser: browserHealth{
			State:     state,
			OpenPages: h.browser.OpenPages(),
		},
	}
	if at := h.browser.CreatedAt(); !at.IsZero() {
		resp.Browser.ReadyAt = &at
	}

	status := http.StatusOK
	if !resp.OK {
		status = http.StatusServiceUnavailable
	}
	render.ChiJSON(w, status, resp)
}
