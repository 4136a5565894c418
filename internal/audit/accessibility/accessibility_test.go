package accessibility

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"webpage-auditor/internal/audit"
	"webpage-auditor/internal/browser/browsertest"
	"webpage-auditor/internal/pkg/upstream"
)

const fakeAxe = "window.axe = { run: async () => ({ violations: [] }) };"

func violationsPayload() any {
	// Shape of what playwright hands back after JSON transfer.
	return []any{
		map[string]any{
			"id":          "image-alt",
			"impact":      "critical",
			"description": "Ensures <img> elements have alternate text",
			"help":        "Images must have alternate text",
			"helpUrl":     "https://dequeuniversity.com/rules/axe/4.10/image-alt",
			"tags":        []any{"wcag2a", "wcag111"},
			"nodeCount":   float64(3),
		},
		map[string]any{
			"id":          "region",
			"impact":      "moderate",
			"description": "Ensures all page content is contained by landmarks",
			"help":        "All page content should be contained by landmarks",
			"helpUrl":     "https://dequeuniversity.com/rules/axe/4.10/region",
			"tags":        []any{"best-practice"},
			"nodeCount":   float64(1),
		},
	}
}

func axePage() *browsertest.Page {
	return &browsertest.Page{
		EvaluateFunc: func(ctx context.Context, expr string, arg any) (any, error) {
			if expr == probeScript {
				return true, nil
			}
			return violationsPayload(), nil
		},
	}
}

func newAuditor(t *testing.T, page func() *browsertest.Page, cfg Config) (*Auditor, *browsertest.Session) {
	t.Helper()

	sess := &browsertest.Session{NewPageFunc: page}
	m := browsertest.NewManager(&browsertest.Driver{Session: sess})
	t.Cleanup(func() { _ = m.Shutdown(context.Background()) })
	return New(m, StaticScript(fakeAxe), cfg), sess
}

func TestAudit_MapsViolations(t *testing.T) {
	t.Parallel()

	a, sess := newAuditor(t, axePage, Config{})

	findings, err := a.Audit(context.Background(), "http://example.com")
	require.NoError(t, err)
	require.Len(t, findings, 2)

	require.Equal(t, audit.SeverityError, findings[0].Severity)
	require.Equal(t, "Images must have alternate text", findings[0].Title)
	require.Equal(t, "https://dequeuniversity.com/rules/axe/4.10/image-alt", findings[0].HelpURL)
	v := findings[0].Data.(Violation)
	require.Equal(t, 3, v.NodeCount)
	require.Equal(t, []string{"wcag2a", "wcag111"}, v.Tags)
	require.Equal(t, audit.SeverityWarning, findings[1].Severity)

	page := sess.Pages()[0]
	require.Equal(t, []string{fakeAxe}, page.Injected())
	require.Equal(t, 1, page.Closed())
}

func TestAudit_NavigationHangIsNavigationError(t *testing.T) {
	t.Parallel()

	hanging := func() *browsertest.Page {
		p := axePage()
		p.GotoFunc = func(ctx context.Context, url string) (int, error) {
			<-ctx.Done()
			return 0, ctx.Err()
		}
		return p
	}
	a, sess := newAuditor(t, hanging, Config{NavigationTimeout: 30 * time.Millisecond})

	_, err := a.Audit(context.Background(), "http://slow.example")
	require.Equal(t, audit.NavigationError, audit.CategoryOf(err))
	require.Equal(t, 1, sess.Pages()[0].Closed())
	require.Empty(t, sess.Pages()[0].Injected())
}

func TestAudit_BlockedInjectionIsScriptError(t *testing.T) {
	t.Parallel()

	blocked := func() *browsertest.Page {
		return &browsertest.Page{
			EvaluateFunc: func(ctx context.Context, expr string, arg any) (any, error) {
				return false, nil
			},
		}
	}
	a, sess := newAuditor(t, blocked, Config{})

	_, err := a.Audit(context.Background(), "http://csp.example")
	require.Equal(t, audit.ScriptError, audit.CategoryOf(err))
	require.Equal(t, 1, sess.Pages()[0].Closed())
}

func TestAudit_InjectFailureIsScriptError(t *testing.T) {
	t.Parallel()

	refused := func() *browsertest.Page {
		return &browsertest.Page{
			InjectFunc: func(ctx context.Context, source string) error {
				return errors.New("Refused to execute inline script because it violates the following Content Security Policy directive")
			},
		}
	}
	a, sess := newAuditor(t, refused, Config{})

	_, err := a.Audit(context.Background(), "http://csp.example")
	require.Equal(t, audit.ScriptError, audit.CategoryOf(err))
	require.Equal(t, 1, sess.Pages()[0].Closed())
}

func TestAudit_ScriptHangTimesOut(t *testing.T) {
	t.Parallel()

	stuck := func() *browsertest.Page {
		return &browsertest.Page{
			EvaluateFunc: func(ctx context.Context, expr string, arg any) (any, error) {
				if expr == probeScript {
					return true, nil
				}
				<-ctx.Done()
				return nil, ctx.Err()
			},
		}
	}
	a, _ := newAuditor(t, stuck, Config{ScriptTimeout: 30 * time.Millisecond})

	_, err := a.Audit(context.Background(), "http://example.com")
	require.Equal(t, audit.ScriptError, audit.CategoryOf(err))
	require.Contains(t, audit.SafeMessage(err), "timed out")
}

func TestScriptLoader_FetchesOnce(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		time.Sleep(20 * time.Millisecond)
		_, _ = w.Write([]byte(fakeAxe))
	}))
	t.Cleanup(srv.Close)

	l := NewScriptLoader("", srv.URL+"/axe.min.js", upstream.New(upstream.Config{Timeout: time.Second}))

	done := make(chan string, 8)
	for i := 0; i < 8; i++ {
		go func() {
			src, err := l.Load(context.Background())
			if err != nil {
				done <- "err: " + err.Error()
				return
			}
			done <- src
		}()
	}
	for i := 0; i < 8; i++ {
		require.Equal(t, fakeAxe, <-done)
	}

	src, err := l.Load(context.Background())
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(src, "window.axe"))
	require.Equal(t, int32(1), hits.Load())
}

func TestScriptLoader_NoSource(t *testing.T) {
	t.Parallel()

	_, err := NewScriptLoader("", "", nil).Load(context.Background())
	require.Error(t, err)
}

func TestScriptLoader_CallerCancelDoesNotFailOthers(t *testing.T) {
	t.Parallel()

	started := make(chan struct{}, 1)
	unblock := make(chan struct{})
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		started <- struct{}{}
		<-unblock
		_, _ = w.Write([]byte(fakeAxe))
	}))
	t.Cleanup(srv.Close)

	l := NewScriptLoader("", srv.URL+"/axe.min.js", upstream.New(upstream.Config{Timeout: 5 * time.Second}))

	firstCtx, cancelFirst := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := l.Load(firstCtx)
		firstErr <- err
	}()
	<-started

	second := make(chan string, 1)
	go func() {
		src, err := l.Load(context.Background())
		if err != nil {
			second <- "err: " + err.Error()
			return
		}
		second <- src
	}()

	cancelFirst()
	require.ErrorIs(t, <-firstErr, context.Canceled)

	close(unblock)
	require.Equal(t, fakeAxe, <-second)
	require.Equal(t, int32(1), hits.Load())
}
