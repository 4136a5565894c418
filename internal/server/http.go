package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"webpage-auditor/config"
)

// NewHTTPServer allows long writes: a full audit waits on PageSpeed and the language model.
func NewHTTPServer(cfg *config.Config, mux *chi.Mux) *http.Server {
	return &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.AppPort),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      3 * time.Minute,
		IdleTimeout:       60 * time.Second,
	}
}
