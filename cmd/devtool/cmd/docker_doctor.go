package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"webpage-auditor/internal/pkg/chromedevtools"
)

func newDockerDoctorCmd() *cobra.Command {
	var (
		host      string
		port      string
		axeScript string
	)

	cmd := &cobra.Command{
		Use:   "docker-doctor",
		Short: "Check host Chrome and the axe-core bundle for containerised runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			ctx := context.Background()

			url, effectiveHost := chromedevtools.VersionURLResolved(ctx, host, port)
			if effectiveHost != host {
				fmt.Fprintf(out, "Resolved DevTools host %q -> %q\n", host, effectiveHost)
			}
			info, err := chromedevtools.ReadVersion(ctx, url, 3*time.Second)
			if err != nil {
				return fmt.Errorf("host Chrome DevTools not usable at %s (start it via `devtool chrome --addr 0.0.0.0`): %w", url, err)
			}
			fmt.Fprintf(out, "Chrome ready: %s at %s\n", info.Browser, url)

			if strings.TrimSpace(axeScript) == "" {
				fmt.Fprintln(out, "axe-core: AXE_SCRIPT_PATH unset, the bundle will be downloaded from AXE_SCRIPT_URL")
				return nil
			}
			st, err := os.Stat(axeScript)
			if err != nil {
				return fmt.Errorf("axe-core bundle missing at %s: %w", axeScript, err)
			}
			if st.Size() == 0 {
				return fmt.Errorf("axe-core bundle is empty at %s", axeScript)
			}
			fmt.Fprintf(out, "axe-core ready: %s (%d bytes)\n", axeScript, st.Size())
			return nil
		},
	}

	cmd.Flags().StringVar(&host, "host", envOr("CHROME_DEBUG_HOST", chromedevtools.DefaultHost), "Chrome DevTools host as seen from the container")
	cmd.Flags().StringVar(&port, "port", envOr("CHROME_DEBUG_PORT", "9222"), "Chrome DevTools remote debugging port on the host")
	cmd.Flags().StringVar(&axeScript, "axe-script", envOr("AXE_SCRIPT_PATH", ""), "Local axe-core bundle the accessibility check injects")
	return cmd
}
