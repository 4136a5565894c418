package upstream

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetJSON_MergesQuery(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "json", r.URL.Query().Get("out"))
		assert.Equal(t, "http://example.com/?a=1&b=2", r.URL.Query().Get("doc"))
		assert.Equal(t, "auditor-test", r.Header.Get("User-Agent"))
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	t.Cleanup(srv.Close)

	c := New(Config{Timeout: time.Second, UserAgent: "auditor-test"})

	var out struct {
		OK bool `json:"ok"`
	}
	err := c.GetJSON(context.Background(), srv.URL+"/?out=json", url.Values{"doc": {"http://example.com/?a=1&b=2"}}, &out)
	require.NoError(t, err)
	require.True(t, out.OK)
}

func TestGet_StatusError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	t.Cleanup(srv.Close)

	_, err := New(Config{Timeout: time.Second}).Get(context.Background(), srv.URL, nil)

	var ue *Error
	require.True(t, errors.As(err, &ue))
	require.Equal(t, http.StatusTooManyRequests, ue.StatusCode)
	require.False(t, ue.Timeout)
}

func TestGet_Timeout(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(func() {
		close(release)
		srv.Close()
	})

	_, err := New(Config{Timeout: 50 * time.Millisecond}).Get(context.Background(), srv.URL, nil)

	var ue *Error
	require.True(t, errors.As(err, &ue))
	require.True(t, ue.Timeout)
}

func TestGetJSON_Malformed(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>not json</html>`))
	}))
	t.Cleanup(srv.Close)

	var out map[string]any
	err := New(Config{Timeout: time.Second}).GetJSON(context.Background(), srv.URL, nil, &out)

	var ue *Error
	require.True(t, errors.As(err, &ue))
	require.Zero(t, ue.StatusCode)
	require.ErrorIs(t, err, ErrDecode)
}

func TestGet_BodyLimit(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(strings.Repeat("a", 16)))
	}))
	t.Cleanup(srv.Close)

	body, err := New(Config{Timeout: time.Second, MaxBodyBytes: 16}).Get(context.Background(), srv.URL, nil)
	require.NoError(t, err)
	require.Len(t, body, 16)

	_, err = New(Config{Timeout: time.Second, MaxBodyBytes: 15}).Get(context.Background(), srv.URL, nil)
	require.ErrorIs(t, err, ErrTooLarge)

	var ue *Error
	require.True(t, errors.As(err, &ue))
	require.Zero(t, ue.StatusCode)
}

func TestGet_RateLimited(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}))
	t.Cleanup(srv.Close)

	c := New(Config{Timeout: time.Second, RequestsPerSecond: 1})
	_, err := c.Get(context.Background(), srv.URL, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = c.Get(ctx, srv.URL, nil)
	require.Error(t, err)
}
