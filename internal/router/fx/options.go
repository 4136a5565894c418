package fx

import (
	"net/http"
	"time"

	"webpage-auditor/config"
	"webpage-auditor/internal/router"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var CoreRouterOptions = fx.Options(
	fx.Provide(NewMux),
)

type muxParams struct {
	fx.In

	Cfg      *config.Config
	Logger   *zap.SugaredLogger
	Handlers []router.Handler `group:"handlers"`
}

func NewMux(p muxParams) *chi.Mux {
	r := chi.NewRouter()

	corsEnabled := false
	var allowedOrigins []string
	if p.Cfg != nil {
		allowedOrigins = append(allowedOrigins, p.Cfg.CORSAllowedOrigins...)
		switch p.Cfg.ENV {
		case config.Dev, config.Test:
			allowedOrigins = append(allowedOrigins,
				"http://localhost:5173",
				"http://127.0.0.1:5173",
			)
			corsEnabled = true
		case config.Production, config.Preview:
			corsEnabled = len(allowedOrigins) > 0
		}
	}
	if corsEnabled {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   allowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
			ExposedHeaders:   []string{"X-Request-Id"},
			AllowCredentials: false,
			MaxAge:           300,
		}))
	}

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(zapRequestLogger(p.Logger))

	if corsEnabled {
		// Preflights never reach a handler.
		r.Options("/*", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		})
	}

	routes, err := router.Mount(r, p.Handlers)
	if err != nil {
		p.Logger.Warnw("route_walk_failed", "err", err)
	}
	p.Logger.Debugw("routes_mounted", "count", len(routes), "routes", routes)

	return r
}

func zapRequestLogger(logger *zap.SugaredLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()

			next.ServeHTTP(ww, r)

			logger.Infow("http_request",
				"method", r.Method,
				"path", r.URL.Path,
				"query", r.URL.RawQuery,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"request_id", middleware.GetReqID(r.Context()),
			)
		})
	}
}
