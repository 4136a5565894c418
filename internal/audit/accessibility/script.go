package accessibility

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"webpage-auditor/internal/pkg/upstream"
)

const scriptFetchTimeout = 30 * time.Second

// ScriptLoader fetches the axe-core source once and keeps it for the life of the process.
// Concurrent first callers share one fetch.
type ScriptLoader struct {
	path   string
	url    string
	client *upstream.Client

	group singleflight.Group
	mu    sync.RWMutex
	src   string
}

func NewScriptLoader(path, url string, client *upstream.Client) *ScriptLoader {
	return &ScriptLoader{
		path:   strings.TrimSpace(path),
		url:    strings.TrimSpace(url),
		client: client,
	}
}

// StaticScript returns a loader that always yields src.
func StaticScript(src string) *ScriptLoader {
	return &ScriptLoader{src: src}
}

func (l *ScriptLoader) Load(ctx context.Context) (string, error) {
	l.mu.RLock()
	src := l.src
	l.mu.RUnlock()
	if src != "" {
		return src, nil
	}

	// The shared fetch outlives any single caller; a caller that goes away
	// only stops waiting for it.
	fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), scriptFetchTimeout)
	ch := l.group.DoChan("axe", func() (any, error) {
		defer cancel()
		src, err := l.fetch(fetchCtx)
		if err != nil {
			return "", err
		}
		l.mu.Lock()
		l.src = src
		l.mu.Unlock()
		return src, nil
	})

	select {
	case res := <-ch:
		cancel()
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	case <-ctx.Done():
		return "", fmt.Errorf("wait for axe script: %w", ctx.Err())
	}
}

func (l *ScriptLoader) fetch(ctx context.Context) (string, error) {
	if l.path != "" {
		b, err := os.ReadFile(l.path)
		if err != nil {
			return "", fmt.Errorf("read axe script %s: %w", l.path, err)
		}
		return string(b), nil
	}
	if l.url == "" || l.client == nil {
		return "", fmt.Errorf("no axe script source configured")
	}
	src, err := l.client.GetText(ctx, l.url, nil)
	if err != nil {
		return "", fmt.Errorf("download axe script: %w", err)
	}
	if strings.TrimSpace(src) == "" {
		return "", fmt.Errorf("axe script at %s is empty", l.url)
	}
	return src, nil
}
