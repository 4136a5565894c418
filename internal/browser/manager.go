// Package browser owns the single long-lived headless browser and hands out
// isolated page contexts from it.
package browser

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"webpage-auditor/internal/audit"
)

type State string

const (
	StateIdle     State = "idle"
	StateStarting State = "starting"
	StateReady    State = "ready"
	StateFailed   State = "failed"
	StateClosed   State = "closed"
)

const (
	DefaultLaunchTimeout  = 90 * time.Second
	DefaultAcquireTimeout = 30 * time.Second
)

var errManagerClosed = errors.New("browser manager is shut down")

type ManagerConfig struct {
	LaunchTimeout  time.Duration
	AcquireTimeout time.Duration
	Logger         *zap.SugaredLogger
}

// Manager gates page acquisition on a single in-flight launch.
type Manager struct {
	driver Driver
	cfg    ManagerConfig
	logger *zap.SugaredLogger

	mu        sync.Mutex
	state     State
	ready     chan struct{}
	session   Session
	launchErr error
	createdAt time.Time
	pages     map[*trackedPage]struct{}

	launches atomic.Int32
}

func NewManager(driver Driver, cfg ManagerConfig) *Manager {
	if cfg.LaunchTimeout <= 0 {
		cfg.LaunchTimeout = DefaultLaunchTimeout
	}
	if cfg.AcquireTimeout <= 0 {
		cfg.AcquireTimeout = DefaultAcquireTimeout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Manager{
		driver: driver,
		cfg:    cfg,
		logger: logger,
		state:  StateIdle,
		pages:  make(map[*trackedPage]struct{}),
	}
}

// Start begins launching the browser in the background and returns immediately.
func (m *Manager) Start() {
	m.ensureLaunch()
}

func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// CreatedAt is the time the session became ready (zero until then).
func (m *Manager) CreatedAt() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.createdAt
}

// Launches reports how many times the driver was asked to launch.
func (m *Manager) Launches() int {
	return int(m.launches.Load())
}

// OpenPages reports the number of acquired pages not yet closed.
func (m *Manager) OpenPages() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pages)
}

// AcquirePage waits for the session to be ready and returns a new isolated page.
// It fails with SessionNotReady if the launch is still pending after the acquire
// timeout, and SessionUnavailable if the launch failed, the browser went away or
// the manager was shut down.
func (m *Manager) AcquirePage(ctx context.Context) (Page, error) {
	ready := m.ensureLaunch()

	timer := time.NewTimer(m.cfg.AcquireTimeout)
	defer timer.Stop()

	select {
	case <-ready:
	case <-timer.C:
		return nil, audit.Errorf(audit.SessionNotReady, "browser session is still starting")
	case <-ctx.Done():
		return nil, audit.NewError(audit.SessionNotReady, "browser session is still starting", ctx.Err())
	}

	m.mu.Lock()
	state, session, launchErr := m.state, m.session, m.launchErr
	m.mu.Unlock()

	switch state {
	case StateClosed:
		return nil, audit.NewError(audit.SessionUnavailable, "browser session is shut down", errManagerClosed)
	case StateFailed:
		return nil, audit.NewError(audit.SessionUnavailable, "browser session is unavailable", launchErr)
	}

	if !session.Connected() {
		m.markCrashed()
		return nil, audit.Errorf(audit.SessionUnavailable, "browser session is unavailable")
	}

	page, err := session.NewPage(ctx)
	if err != nil {
		if !session.Connected() {
			m.markCrashed()
		}
		return nil, audit.NewError(audit.SessionUnavailable, "could not open a browser page", err)
	}

	tp := &trackedPage{Page: page, release: m.release}

	m.mu.Lock()
	if m.state == StateClosed {
		m.mu.Unlock()
		_ = page.Close()
		return nil, audit.NewError(audit.SessionUnavailable, "browser session is shut down", errManagerClosed)
	}
	m.pages[tp] = struct{}{}
	m.mu.Unlock()
	metricOpenPages.Inc()

	return tp, nil
}

// WaitReady blocks until the pending launch settles. A failed or shut down
// session is reported as SessionUnavailable.
func (m *Manager) WaitReady(ctx context.Context) error {
	select {
	case <-m.ensureLaunch():
	case <-ctx.Done():
		return audit.NewError(audit.SessionNotReady, "browser session is still starting", ctx.Err())
	}

	m.mu.Lock()
	state, launchErr := m.state, m.launchErr
	m.mu.Unlock()

	switch state {
	case StateClosed:
		return audit.NewError(audit.SessionUnavailable, "browser session is shut down", errManagerClosed)
	case StateFailed:
		return audit.NewError(audit.SessionUnavailable, "browser session is unavailable", launchErr)
	}
	return nil
}

// Shutdown closes every outstanding page and the session. Calling it again is a no-op.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	if m.state == StateClosed {
		m.mu.Unlock()
		return nil
	}
	prev := m.state
	m.state = StateClosed
	session := m.session
	pages := make([]*trackedPage, 0, len(m.pages))
	for p := range m.pages {
		pages = append(pages, p)
	}
	if m.ready == nil {
		// Never launched: later acquires fail fast instead of launching.
		m.ready = make(chan struct{})
		close(m.ready)
	}
	m.mu.Unlock()

	for _, p := range pages {
		_ = p.Close()
	}

	var err error
	if session != nil {
		err = session.Close()
	}

	m.logger.Infow("browser_session_shutdown",
		"previous_state", prev,
		"closed_pages", len(pages),
	)
	return err
}

func (m *Manager) ensureLaunch() <-chan struct{} {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ready != nil {
		return m.ready
	}

	m.ready = make(chan struct{})
	m.state = StateStarting
	m.launches.Add(1)
	go m.launch(m.ready)

	return m.ready
}

func (m *Manager) launch(done chan struct{}) {
	defer close(done)

	ctx, cancel := context.WithTimeout(context.Background(), m.cfg.LaunchTimeout)
	defer cancel()

	start := time.Now()
	m.logger.Infow("browser_session_launching")

	session, err := m.launchWithin(ctx)

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state == StateClosed {
		// Shut down while launching.
		if session != nil {
			_ = session.Close()
		}
		metricLaunches.WithLabelValues("aborted").Inc()
		return
	}

	if err != nil {
		m.state = StateFailed
		m.launchErr = err
		metricLaunches.WithLabelValues("failed").Inc()
		m.logger.Errorw("browser_session_launch_failed",
			"err", err,
			"duration", time.Since(start),
		)
		return
	}

	m.state = StateReady
	m.session = session
	m.createdAt = time.Now()
	metricLaunches.WithLabelValues("ok").Inc()
	m.logger.Infow("browser_session_ready",
		"duration", time.Since(start),
	)
}

type launchResult struct {
	session Session
	err     error
}

// launchWithin bounds driver.Launch by ctx even when the driver ignores it.
// A session that arrives after the deadline is closed.
func (m *Manager) launchWithin(ctx context.Context) (Session, error) {
	results := make(chan launchResult, 1)
	go func() {
		s, err := m.driver.Launch(ctx)
		results <- launchResult{session: s, err: err}
	}()

	select {
	case r := <-results:
		return r.session, r.err
	case <-ctx.Done():
		go func() {
			if r := <-results; r.session != nil {
				_ = r.session.Close()
			}
		}()
		return nil, fmt.Errorf("browser never became ready within %s: %w", m.cfg.LaunchTimeout, ctx.Err())
	}
}

func (m *Manager) markCrashed() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != StateReady {
		return
	}
	m.state = StateFailed
	m.launchErr = errors.New("browser disconnected")
	m.logger.Errorw("browser_session_disconnected")
}

func (m *Manager) release(p *trackedPage) {
	m.mu.Lock()
	_, ok := m.pages[p]
	delete(m.pages, p)
	m.mu.Unlock()
	if ok {
		metricOpenPages.Dec()
	}
}

type trackedPage struct {
	Page
	release func(*trackedPage)
	once    sync.Once
	err     error
}

func (p *trackedPage) Close() error {
	p.once.Do(func() {
		p.err = p.Page.Close()
		p.release(p)
	})
	return p.err
}
