package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"webpage-auditor/internal/audit"
)

func stubRunLocal(t *testing.T, fn func(ctx context.Context, opts options) (audit.Report, string, error)) {
	t.Helper()
	prev := runLocal
	runLocal = fn
	t.Cleanup(func() { runLocal = prev })
}

func stubSendEvent(t *testing.T, fn func(ctx context.Context, opts options) (string, error)) {
	t.Helper()
	prev := sendEvent
	sendEvent = fn
	t.Cleanup(func() { sendEvent = prev })
}

func execRoot(args ...string) (string, string, error) {
	root := newRootCmd()
	var stdout, stderr bytes.Buffer
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(args)
	err := root.Execute()
	return stdout.String(), stderr.String(), err
}

func okReport(url string) audit.Report {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	return audit.Report{
		URL:        url,
		StartedAt:  now,
		FinishedAt: now,
		Results: map[audit.CheckKind]audit.Result{
			audit.CheckSEO: {Check: audit.CheckSEO, Status: audit.StatusOK, Findings: []audit.Finding{}},
		},
	}
}

func TestRoot_MissingURLIsUsage(t *testing.T) {
	_, _, err := execRoot()
	require.ErrorIs(t, err, errUsage)
	require.Equal(t, 2, exitCode(err))
}

func TestRoot_InvalidCheckIsUsage(t *testing.T) {
	stubRunLocal(t, func(context.Context, options) (audit.Report, string, error) {
		t.Fatal("runLocal must not be called")
		return audit.Report{}, "", nil
	})

	_, stderr, err := execRoot("--url", "https://example.com", "--check", "lighthouse")
	require.ErrorIs(t, err, errUsage)
	require.Contains(t, stderr, "unknown check")
}

func TestRoot_PrintsAndWritesReport(t *testing.T) {
	var got options
	stubRunLocal(t, func(_ context.Context, opts options) (audit.Report, string, error) {
		got = opts
		return okReport(opts.url), "", nil
	})

	out := filepath.Join(t.TempDir(), "report.json")
	stdout, _, err := execRoot("--url", "https://example.com", "--check", "seo", "--out", out, "--compact")
	require.NoError(t, err)
	require.Equal(t, []string{"seo"}, got.checks)

	var printed audit.Report
	require.NoError(t, json.Unmarshal([]byte(stdout), &printed))
	require.Equal(t, "https://example.com", printed.URL)

	b, err := os.ReadFile(out)
	require.NoError(t, err)
	require.Equal(t, stdout, string(b))
}

func TestRoot_FailedCheckExitCode(t *testing.T) {
	stubRunLocal(t, func(_ context.Context, opts options) (audit.Report, string, error) {
		r := okReport(opts.url)
		r.Results[audit.CheckSEO] = audit.Result{
			Check:   audit.CheckSEO,
			Status:  audit.StatusFailed,
			Failure: &audit.Failure{Category: audit.UpstreamFailure, Message: "model unavailable"},
		}
		return r, "", nil
	})

	_, _, err := execRoot("--url", "https://example.com")
	require.ErrorIs(t, err, errChecksFailed)
	require.Equal(t, 3, exitCode(err))
}

func TestRoot_RunErrorPropagates(t *testing.T) {
	boom := errors.New("fx start failed")
	stubRunLocal(t, func(context.Context, options) (audit.Report, string, error) {
		return audit.Report{}, "", boom
	})

	_, _, err := execRoot("--url", "https://example.com")
	require.ErrorIs(t, err, boom)
}

func TestRoot_InngestSendsEvent(t *testing.T) {
	stubRunLocal(t, func(context.Context, options) (audit.Report, string, error) {
		t.Fatal("runLocal must not be called")
		return audit.Report{}, "", nil
	})
	var got options
	stubSendEvent(t, func(_ context.Context, opts options) (string, error) {
		got = opts
		return "01J0EVENT", nil
	})

	stdout, _, err := execRoot("--url", "https://example.com", "--check", "validate", "--inngest")
	require.NoError(t, err)
	require.Equal(t, "01J0EVENT\n", stdout)
	require.Equal(t, "https://example.com", got.url)
	require.Equal(t, []string{"validate"}, got.checks)
}
