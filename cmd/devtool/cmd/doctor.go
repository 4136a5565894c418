package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"webpage-auditor/internal/pkg/chromedevtools"
)

func newDoctorCmd() *cobra.Command {
	var (
		host string
		port string
	)

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check a DevTools endpoint is reachable and exposes a websocket URL",
		RunE: func(cmd *cobra.Command, args []string) error {
			url := chromedevtools.VersionURL(host, port)
			fmt.Fprintln(cmd.OutOrStdout(), "Checking:", url)

			info, err := chromedevtools.ReadVersion(context.Background(), url, 3*time.Second)
			if err != nil {
				return fmt.Errorf("Chrome DevTools not usable (is Chrome running with --remote-debugging-port=%s?): %w", port, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "OK: %s (protocol %s)\n", info.Browser, info.ProtocolVersion)
			fmt.Fprintln(cmd.OutOrStdout(), "WebSocket:", info.WebSocketDebuggerURL)
			return nil
		},
	}

	cmd.Flags().StringVar(&host, "host", envOr("CHROME_DEBUG_HOST", chromedevtools.DefaultHost), "Chrome DevTools host")
	cmd.Flags().StringVar(&port, "port", envOr("CHROME_DEBUG_PORT", "9222"), "Chrome DevTools remote debugging port")
	return cmd
}
