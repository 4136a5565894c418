package fx

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"webpage-auditor/internal/server"
)

var Module = fx.Module(
	"http-server",
	fx.Provide(server.NewHTTPServer),
	fx.Invoke(RegisterHTTPServerLifecycle),
)

// In-flight audits get this long to finish before the server drops them.
const shutdownGrace = 30 * time.Second

// RegisterHTTPServerLifecycle binds the listener during start so a taken port
// fails the boot instead of surfacing later from the serve goroutine.
func RegisterHTTPServerLifecycle(
	lc fx.Lifecycle,
	srv *http.Server,
	log *zap.SugaredLogger,
) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			ln, err := (&net.ListenConfig{}).Listen(ctx, "tcp", srv.Addr)
			if err != nil {
				return fmt.Errorf("listen %s: %w", srv.Addr, err)
			}
			log.Infow("http_server_listening", "addr", ln.Addr().String())

			go func() {
				if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Errorw("http_server_crashed", "err", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Infow("http_server_stopping", "addr", srv.Addr)
			shutdownCtx, cancel := context.WithTimeout(ctx, shutdownGrace)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}
