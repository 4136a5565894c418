package fx

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"webpage-auditor/config"
	"webpage-auditor/internal/router"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewMux_CORSPreflight_AllowsLocalhost5173_InDev(t *testing.T) {
	cfg := &config.Config{}
	cfg.ENV = config.Dev

	r := NewMux(muxParams{
		Cfg:      cfg,
		Logger:   zap.NewNop().Sugar(),
		Handlers: nil,
	})

	req := httptest.NewRequest(http.MethodOptions, "/v1/audits/enqueue", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", "POST")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:5173" {
		t.Fatalf("allow-origin=%q", got)
	}
	if got := w.Header().Get("Access-Control-Allow-Methods"); got == "" {
		t.Fatalf("missing allow-methods")
	}
}

func TestNewMux_ProductionWithoutOriginsSkipsCORS(t *testing.T) {
	cfg := &config.Config{ENV: config.Production}

	r := NewMux(muxParams{Cfg: cfg, Logger: zap.NewNop().Sugar()})

	req := httptest.NewRequest(http.MethodOptions, "/v1/audits", nil)
	req.Header.Set("Origin", "https://evil.example")
	req.Header.Set("Access-Control-Request-Method", "GET")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

type pingHandler struct{}

func (pingHandler) RegisterRoute(r *chi.Mux) { r.Get("/ping", pingHandler{}.Handle) }

func (pingHandler) Handle(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusTeapot) }

func TestNewMux_RegistersHandlers(t *testing.T) {
	r := NewMux(muxParams{
		Cfg:      &config.Config{ENV: config.Test},
		Logger:   zap.NewNop().Sugar(),
		Handlers: []router.Handler{pingHandler{}},
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	require.Equal(t, http.StatusTeapot, w.Code)
}
