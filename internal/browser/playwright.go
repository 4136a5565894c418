package browser

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/playwright-community/playwright-go"
	"go.uber.org/zap"

	"webpage-auditor/internal/pkg/chromedevtools"
)

const (
	DefaultNavigationTimeout = 30 * time.Second
	DefaultScriptTimeout     = 30 * time.Second
)

type PlaywrightConfig struct {
	Headless    bool
	SkipInstall bool

	// CDPEndpoint attaches to a running Chrome instead of launching one. It may be a
	// ws:// debugger URL or an http:// DevTools base. DebugHost/DebugPort are probed
	// through chromedevtools when CDPEndpoint is empty and DebugPort is set.
	CDPEndpoint string
	DebugHost   string
	DebugPort   string

	NavigationTimeout time.Duration
	ScriptTimeout     time.Duration
	Logger            *zap.SugaredLogger
}

// PlaywrightDriver launches Chromium through playwright-go.
type PlaywrightDriver struct {
	cfg PlaywrightConfig
}

func NewPlaywrightDriver(cfg PlaywrightConfig) *PlaywrightDriver {
	if cfg.NavigationTimeout <= 0 {
		cfg.NavigationTimeout = DefaultNavigationTimeout
	}
	if cfg.ScriptTimeout <= 0 {
		cfg.ScriptTimeout = DefaultScriptTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop().Sugar()
	}
	return &PlaywrightDriver{cfg: cfg}
}

func (d *PlaywrightDriver) Launch(ctx context.Context) (Session, error) {
	runOpts := &playwright.RunOptions{
		Browsers: []string{"chromium"},
		Verbose:  false,
		Stdout:   io.Discard,
		Stderr:   io.Discard,
	}

	endpoint, err := d.cdpEndpoint(ctx)
	if err != nil {
		return nil, err
	}

	if !d.cfg.SkipInstall && endpoint == "" {
		if err := playwright.Install(runOpts); err != nil {
			return nil, fmt.Errorf("install playwright: %w", err)
		}
	}

	pw, err := playwright.Run(runOpts)
	if err != nil {
		return nil, fmt.Errorf("start playwright: %w", err)
	}

	var b playwright.Browser
	if endpoint != "" {
		d.cfg.Logger.Infow("browser_connect_over_cdp", "endpoint", endpoint)
		b, err = pw.Chromium.ConnectOverCDP(endpoint)
	} else {
		b, err = pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
			Headless: playwright.Bool(d.cfg.Headless),
		})
	}
	if err != nil {
		_ = pw.Stop()
		return nil, fmt.Errorf("launch chromium: %w", err)
	}

	if ctx.Err() != nil {
		_ = b.Close()
		_ = pw.Stop()
		return nil, ctx.Err()
	}

	return &playwrightSession{pw: pw, browser: b, cfg: d.cfg}, nil
}

func (d *PlaywrightDriver) cdpEndpoint(ctx context.Context) (string, error) {
	endpoint := strings.TrimSpace(d.cfg.CDPEndpoint)
	if strings.HasPrefix(endpoint, "ws://") || strings.HasPrefix(endpoint, "wss://") {
		return endpoint, nil
	}

	var versionURL string
	switch {
	case endpoint != "":
		versionURL = strings.TrimSuffix(endpoint, "/") + "/json/version"
	case d.cfg.DebugPort != "":
		versionURL, _ = chromedevtools.VersionURLResolved(ctx, d.cfg.DebugHost, d.cfg.DebugPort)
	default:
		return "", nil
	}

	info, err := chromedevtools.ReadVersion(ctx, versionURL, 5*time.Second)
	if err != nil {
		return "", fmt.Errorf("probe chrome devtools: %w", err)
	}
	return info.WebSocketDebuggerURL, nil
}

type playwrightSession struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	cfg     PlaywrightConfig
}

func (s *playwrightSession) Connected() bool {
	return s.browser.IsConnected()
}

// NewPage creates a fresh BrowserContext per page so cookies and storage never leak between audits.
func (s *playwrightSession) NewPage(ctx context.Context) (Page, error) {
	bctx, err := s.browser.NewContext()
	if err != nil {
		return nil, fmt.Errorf("new browser context: %w", err)
	}
	p, err := bctx.NewPage()
	if err != nil {
		_ = bctx.Close()
		return nil, fmt.Errorf("new page: %w", err)
	}
	p.SetDefaultNavigationTimeout(float64(s.cfg.NavigationTimeout.Milliseconds()))
	p.SetDefaultTimeout(float64(s.cfg.ScriptTimeout.Milliseconds()))
	return &playwrightPage{ctx: bctx, page: p, cfg: s.cfg}, nil
}

func (s *playwrightSession) Close() error {
	err := s.browser.Close()
	if stopErr := s.pw.Stop(); stopErr != nil && err == nil {
		err = stopErr
	}
	return err
}

type playwrightPage struct {
	ctx  playwright.BrowserContext
	page playwright.Page
	cfg  PlaywrightConfig
}

func (p *playwrightPage) Goto(ctx context.Context, url string) (int, error) {
	timeout := float64(p.cfg.NavigationTimeout.Milliseconds())
	return withContext(ctx, p, func() (int, error) {
		resp, err := p.page.Goto(url, playwright.PageGotoOptions{
			WaitUntil: playwright.WaitUntilStateLoad,
			Timeout:   &timeout,
		})
		if err != nil {
			return 0, err
		}
		if resp == nil {
			return 0, nil
		}
		return resp.Status(), nil
	})
}

func (p *playwrightPage) InjectScript(ctx context.Context, source string) error {
	_, err := withContext(ctx, p, func() (struct{}, error) {
		_, err := p.page.AddScriptTag(playwright.PageAddScriptTagOptions{Content: &source})
		return struct{}{}, err
	})
	return err
}

func (p *playwrightPage) Evaluate(ctx context.Context, expr string, arg any) (any, error) {
	return withContext(ctx, p, func() (any, error) {
		if arg == nil {
			return p.page.Evaluate(expr)
		}
		return p.page.Evaluate(expr, arg)
	})
}

func (p *playwrightPage) Close() error {
	return p.ctx.Close()
}

// withContext runs fn and gives up when ctx ends first. Closing the page aborts
// the pending playwright call so the goroutine does not outlive the page.
func withContext[T any](ctx context.Context, p *playwrightPage, fn func() (T, error)) (T, error) {
	type result struct {
		v   T
		err error
	}
	ch := make(chan result, 1)
	go func() {
		v, err := fn()
		ch <- result{v: v, err: err}
	}()

	select {
	case r := <-ch:
		return r.v, r.err
	case <-ctx.Done():
		_ = p.page.Close()
		var zero T
		return zero, errors.Join(ctx.Err(), errPageAbandoned)
	}
}

var errPageAbandoned = errors.New("page abandoned after deadline")
