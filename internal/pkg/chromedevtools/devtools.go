// Package chromedevtools probes a remote Chrome's DevTools HTTP endpoint so the
// browser manager can attach to it over CDP instead of launching its own process.
package chromedevtools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	DefaultHost = "127.0.0.1"
	DefaultPort = "9222"
)

var newHTTPClient = func(timeout time.Duration) *http.Client {
	return &http.Client{Timeout: timeout}
}

// VersionInfo is the subset of /json/version we rely on.
type VersionInfo struct {
	Browser              string `json:"Browser"`
	ProtocolVersion      string `json:"Protocol-Version"`
	UserAgent            string `json:"User-Agent"`
	WebSocketDebuggerURL string `json:"webSocketDebuggerUrl"`
}

func VersionURL(host, port string) string {
	host = strings.TrimSpace(host)
	if host == "" {
		host = DefaultHost
	}
	port = strings.TrimSpace(port)
	if port == "" {
		port = DefaultPort
	}
	return fmt.Sprintf("http://%s:%s/json/version", host, port)
}

// CheckReachable GETs url and returns the (bounded) body when the endpoint answers 2xx with content.
func CheckReachable(ctx context.Context, url string, timeout time.Duration) ([]byte, error) {
	if strings.TrimSpace(url) == "" {
		return nil, fmt.Errorf("missing url")
	}
	if timeout <= 0 {
		timeout = 3 * time.Second
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := newHTTPClient(timeout).Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("unexpected status %s from %s", resp.Status, url)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1024*32))
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, fmt.Errorf("empty response from %s", url)
	}

	return body, nil
}

// ReadVersion probes url and decodes the DevTools version payload.
func ReadVersion(ctx context.Context, url string, timeout time.Duration) (VersionInfo, error) {
	body, err := CheckReachable(ctx, url, timeout)
	if err != nil {
		return VersionInfo{}, err
	}

	var info VersionInfo
	if err := json.Unmarshal(body, &info); err != nil {
		return VersionInfo{}, fmt.Errorf("decode devtools version from %s: %w", url, err)
	}
	if strings.TrimSpace(info.WebSocketDebuggerURL) == "" {
		return VersionInfo{}, fmt.Errorf("devtools at %s did not report webSocketDebuggerUrl", url)
	}
	return info, nil
}
