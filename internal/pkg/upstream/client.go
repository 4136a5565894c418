// Package upstream is the outbound HTTP client shared by the remote-service auditors.
package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const (
	DefaultTimeout  = 60 * time.Second
	defaultMaxBytes = 10 << 20
)

var (
	// ErrTooLarge marks a body larger than the configured MaxBodyBytes.
	ErrTooLarge = errors.New("response too large")
	// ErrDecode marks a body GetJSON could not decode.
	ErrDecode = errors.New("undecodable response")
)

// Error describes a failed outbound call. Every failure mode (transport,
// timeout, non-2xx status, oversized or undecodable body) is reported through it.
type Error struct {
	URL        string
	StatusCode int
	Timeout    bool
	Err        error
}

func (e *Error) Error() string {
	switch {
	case e.StatusCode != 0:
		return fmt.Sprintf("upstream %s returned status %d", e.URL, e.StatusCode)
	case e.Timeout:
		return fmt.Sprintf("upstream %s timed out: %v", e.URL, e.Err)
	default:
		return fmt.Sprintf("upstream %s: %v", e.URL, e.Err)
	}
}

func (e *Error) Unwrap() error { return e.Err }

type Config struct {
	Timeout           time.Duration
	RequestsPerSecond float64
	UserAgent         string
	MaxBodyBytes      int64
}

type Client struct {
	http      *http.Client
	limiter   *rate.Limiter
	userAgent string
	maxBytes  int64
}

var newHTTPClient = func(timeout time.Duration) *http.Client {
	return &http.Client{Timeout: timeout}
}

func New(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = defaultMaxBytes
	}

	limit := rate.Inf
	burst := 1
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
		burst = max(1, int(cfg.RequestsPerSecond))
	}

	return &Client{
		http:      newHTTPClient(cfg.Timeout),
		limiter:   rate.NewLimiter(limit, burst),
		userAgent: cfg.UserAgent,
		maxBytes:  cfg.MaxBodyBytes,
	}
}

// Get issues a GET to base with query merged into any existing query string and returns the body.
func (c *Client) Get(ctx context.Context, base string, query url.Values) ([]byte, error) {
	target, err := withQuery(base, query)
	if err != nil {
		return nil, &Error{URL: base, Err: err}
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, &Error{URL: target, Timeout: errors.Is(err, context.DeadlineExceeded), Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, &Error{URL: target, Err: err}
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &Error{URL: target, Timeout: isTimeout(err), Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBytes+1))
	if err != nil {
		return nil, &Error{URL: target, Timeout: isTimeout(err), Err: err}
	}
	if int64(len(body)) > c.maxBytes {
		return nil, &Error{URL: target, Err: fmt.Errorf("%w: over %d bytes", ErrTooLarge, c.maxBytes)}
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, &Error{URL: target, StatusCode: resp.StatusCode, Err: errors.New(strings.TrimSpace(snippet(body)))}
	}
	return body, nil
}

// GetJSON decodes the response body into out. Decode failures wrap ErrDecode.
func (c *Client) GetJSON(ctx context.Context, base string, query url.Values, out any) error {
	body, err := c.Get(ctx, base, query)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &Error{URL: base, Err: fmt.Errorf("%w: %w", ErrDecode, err)}
	}
	return nil
}

// GetText returns the response body as a string.
func (c *Client) GetText(ctx context.Context, base string, query url.Values) (string, error) {
	body, err := c.Get(ctx, base, query)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

func withQuery(base string, query url.Values) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	if len(query) > 0 {
		q := u.Query()
		for k, vs := range query {
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne interface{ Timeout() bool }
	return errors.As(err, &ne) && ne.Timeout()
}

func snippet(b []byte) string {
	const n = 256
	if len(b) > n {
		return string(b[:n])
	}
	return string(b)
}
