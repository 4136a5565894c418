// Package browsertest provides in-memory browser sessions and pages for tests.
package browsertest

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"webpage-auditor/internal/browser"
)

// Page is a scriptable browser.Page. Zero value navigates with status 200.
type Page struct {
	GotoFunc     func(ctx context.Context, url string) (int, error)
	InjectFunc   func(ctx context.Context, source string) error
	EvaluateFunc func(ctx context.Context, expr string, arg any) (any, error)

	mu       sync.Mutex
	visited  []string
	injected []string
	closed   atomic.Int32
}

func (p *Page) Goto(ctx context.Context, url string) (int, error) {
	p.mu.Lock()
	p.visited = append(p.visited, url)
	p.mu.Unlock()
	if p.GotoFunc != nil {
		return p.GotoFunc(ctx, url)
	}
	return 200, nil
}

func (p *Page) InjectScript(ctx context.Context, source string) error {
	p.mu.Lock()
	p.injected = append(p.injected, source)
	p.mu.Unlock()
	if p.InjectFunc != nil {
		return p.InjectFunc(ctx, source)
	}
	return nil
}

func (p *Page) Evaluate(ctx context.Context, expr string, arg any) (any, error) {
	if p.EvaluateFunc != nil {
		return p.EvaluateFunc(ctx, expr, arg)
	}
	return nil, nil
}

func (p *Page) Close() error {
	p.closed.Add(1)
	return nil
}

func (p *Page) Closed() int { return int(p.closed.Load()) }

func (p *Page) Visited() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.visited...)
}

func (p *Page) Injected() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.injected...)
}

// Session hands out pages built by NewPageFunc.
type Session struct {
	NewPageFunc func() *Page

	disconnected atomic.Bool
	closed       atomic.Int32

	mu    sync.Mutex
	pages []*Page
}

func (s *Session) NewPage(ctx context.Context) (browser.Page, error) {
	if s.disconnected.Load() {
		return nil, errors.New("browser has been closed")
	}
	p := &Page{}
	if s.NewPageFunc != nil {
		p = s.NewPageFunc()
	}
	s.mu.Lock()
	s.pages = append(s.pages, p)
	s.mu.Unlock()
	return p, nil
}

func (s *Session) Connected() bool { return !s.disconnected.Load() }

func (s *Session) Close() error {
	s.closed.Add(1)
	return nil
}

// Crash simulates the browser process going away.
func (s *Session) Crash() { s.disconnected.Store(true) }

func (s *Session) Closed() int { return int(s.closed.Load()) }

func (s *Session) Pages() []*Page {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*Page(nil), s.pages...)
}

// Driver returns Session after waiting on Gate (when set), or Err.
type Driver struct {
	Session *Session
	Err     error
	Gate    chan struct{}

	launches atomic.Int32
}

func (d *Driver) Launch(ctx context.Context) (browser.Session, error) {
	d.launches.Add(1)
	if d.Gate != nil {
		select {
		case <-d.Gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if d.Err != nil {
		return nil, d.Err
	}
	if d.Session == nil {
		d.Session = &Session{}
	}
	return d.Session, nil
}

func (d *Driver) Launches() int { return int(d.launches.Load()) }

// NewManager returns a manager over d with short timeouts suitable for tests.
func NewManager(d *Driver) *browser.Manager {
	return browser.NewManager(d, browser.ManagerConfig{
		LaunchTimeout:  5 * time.Second,
		AcquireTimeout: 2 * time.Second,
	})
}
