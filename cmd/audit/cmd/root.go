package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/inngest/inngestgo"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"webpage-auditor/config"
	appfx "webpage-auditor/internal/app/fx"
	"webpage-auditor/internal/app/inngest/auditrun"
	"webpage-auditor/internal/app/reports"
	"webpage-auditor/internal/audit"
	"webpage-auditor/internal/browser"
	pkginngest "webpage-auditor/internal/pkg/inngest"
)

type options struct {
	url     string
	checks  []string
	out     string
	compact bool
	save    bool
	timeout time.Duration
}

// runLocal boots the audit engine, runs one report and shuts everything down.
var runLocal = func(ctx context.Context, opts options) (audit.Report, string, error) {
	var (
		orchestrator *audit.Orchestrator
		store        *reports.Store
		manager      *browser.Manager
	)

	app := fx.New(
		fx.WithLogger(func(logger *zap.Logger) fxevent.Logger {
			l := &fxevent.ZapLogger{Logger: logger}
			l.UseLogLevel(zap.DebugLevel)
			return l
		}),
		appfx.Module,
		fx.Populate(&orchestrator, &store, &manager),
	)

	startCtx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()
	if err := app.Start(startCtx); err != nil {
		return audit.Report{}, "", err
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		_ = app.Stop(stopCtx)
	}()

	// The server lets early requests fail fast while Chrome launches; a one-shot
	// run waits instead. A failed launch still shows up in the browser checks.
	if err := manager.WaitReady(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "WARN:", audit.SafeMessage(err))
	}

	report, err := orchestrator.Run(ctx, opts.url, opts.checks)
	if err != nil {
		return audit.Report{}, "", err
	}

	id := ""
	if opts.save && store.Enabled() {
		id = uuid.NewString()
		if err := store.Save(ctx, reports.SaveInput{
			ID:        id,
			URL:       report.URL,
			Checks:    opts.checks,
			Report:    &report,
			CreatedBy: "cli",
		}); err != nil {
			return report, "", fmt.Errorf("save report: %w", err)
		}
	}
	return report, id, nil
}

// sendEvent publishes an audit request to Inngest instead of running locally.
var sendEvent = func(ctx context.Context, opts options) (string, error) {
	cfg, err := config.NewConfig(config.NewViper())
	if err != nil {
		return "", err
	}
	client, err := pkginngest.NewInngestClient(cfg)
	if err != nil {
		return "", err
	}
	data := map[string]any{"url": opts.url}
	if len(opts.checks) > 0 {
		data["checks"] = opts.checks
	}
	return client.Send(ctx, inngestgo.Event{
		ID:   inngestgo.StrPtr(uuid.NewString()),
		Name: auditrun.AuditRequestedEventName,
		Data: data,
	})
}

func newRootCmd() *cobra.Command {
	var (
		opts    options
		inngest bool
	)

	rootCmd := &cobra.Command{
		Use:           "audit",
		Short:         "Audit one web page and print the JSON report",
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(opts.url) == "" {
				_ = cmd.Help()
				return errUsage
			}
			if _, err := audit.NormalizeRequest(opts.url, opts.checks); err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), "ERROR:", audit.SafeMessage(err))
				return errUsage
			}

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			if opts.timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, opts.timeout)
				defer cancel()
			}

			if inngest {
				id, err := sendEvent(ctx, opts)
				if err != nil {
					return fmt.Errorf("send inngest event: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), id)
				return nil
			}

			report, id, err := runLocal(ctx, opts)
			if err != nil {
				return err
			}
			if id != "" {
				fmt.Fprintln(cmd.ErrOrStderr(), "saved report:", id)
			}

			if err := writeReport(cmd.OutOrStdout(), opts, report); err != nil {
				return err
			}

			for _, res := range report.Results {
				if !res.OK() {
					return errChecksFailed
				}
			}
			return nil
		},
	}

	rootCmd.Flags().StringVar(&opts.url, "url", "", "Page URL to audit")
	rootCmd.Flags().StringSliceVar(&opts.checks, "check", nil, "Check to run (repeatable; default all): validate, accessibility, html-validation, performance, seo")
	rootCmd.Flags().StringVar(&opts.out, "out", "", "Also write the report to this file")
	rootCmd.Flags().BoolVar(&opts.compact, "compact", false, "Print single-line JSON")
	rootCmd.Flags().BoolVar(&opts.save, "save", false, "Store the report in the history database when configured")
	rootCmd.Flags().DurationVar(&opts.timeout, "timeout", 5*time.Minute, "Overall deadline for the audit")
	rootCmd.Flags().BoolVar(&inngest, "inngest", false, "Send an auditor/url.requested event to Inngest instead of running locally")

	return rootCmd
}

func writeReport(w io.Writer, opts options, report audit.Report) error {
	var (
		b   []byte
		err error
	)
	if opts.compact {
		b, err = json.Marshal(report)
	} else {
		b, err = json.MarshalIndent(report, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	b = append(b, '\n')

	if _, err := w.Write(b); err != nil {
		return err
	}
	if opts.out != "" {
		if err := os.WriteFile(opts.out, b, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", opts.out, err)
		}
	}
	return nil
}
