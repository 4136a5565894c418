package seo

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"webpage-auditor/internal/audit"
	"webpage-auditor/internal/pkg/upstream"
)

const page = `<!doctype html>
<html lang="en">
<head>
  <title>Acme Widgets</title>
  <meta name="description" content="Widgets for every occasion">
</head>
<body>
  <nav><a href="/">Home</a><a>no href</a></nav>
  <h1>Widgets</h1>
  <div><h2>Blue</h2><h4>ignored</h4><h3>Small blue</h3></div>
  <img src="a.png" alt="A widget"><img src="b.png">
  <p>one</p><p>two</p><p>three</p><p>four</p><p>five</p><p>six</p><p>seven</p>
  <script>var tracking = 1;</script>
</body>
</html>`

func TestReduceDocument(t *testing.T) {
	t.Parallel()

	reduced, err := ReduceDocument([]byte(page), 5)
	require.NoError(t, err)

	require.Contains(t, reduced, "<title>Acme Widgets</title>")
	require.Contains(t, reduced, `<meta name="description" content="Widgets for every occasion"/>`)
	require.Contains(t, reduced, "<h1>Widgets</h1>")
	require.Contains(t, reduced, "<h2>Blue</h2>")
	require.Contains(t, reduced, "<h3>Small blue</h3>")
	require.NotContains(t, reduced, "<h4>")
	require.Contains(t, reduced, `<img src="a.png" alt="A widget"/>`)
	require.NotContains(t, reduced, "b.png")
	require.Contains(t, reduced, `<a href="/">Home</a>`)
	require.NotContains(t, reduced, "no href")
	require.Contains(t, reduced, "<p>five</p>")
	require.NotContains(t, reduced, "<p>six</p>")
	require.NotContains(t, reduced, "tracking")
	require.Less(t, strings.Index(reduced, "<h1>"), strings.Index(reduced, "<h2>"))
}

func TestReduceDocument_ParagraphCap(t *testing.T) {
	t.Parallel()

	reduced, err := ReduceDocument([]byte(page), 2)
	require.NoError(t, err)
	require.Contains(t, reduced, "<p>two</p>")
	require.NotContains(t, reduced, "<p>three</p>")

	reduced, err = ReduceDocument([]byte(page), 0)
	require.NoError(t, err)
	require.NotContains(t, reduced, "<p>")
}

func TestReduceDocument_Empty(t *testing.T) {
	t.Parallel()

	for _, in := range []string{"", "   \n", "plain text with no markup"} {
		_, err := ReduceDocument([]byte(in), 5)
		require.Error(t, err, in)
	}
}

type evaluatorFunc func(ctx context.Context, instructions, content string) (string, error)

func (f evaluatorFunc) Evaluate(ctx context.Context, instructions, content string) (string, error) {
	return f(ctx, instructions, content)
}

func pageServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestAudit_ReturnsNarrative(t *testing.T) {
	t.Parallel()

	srv := pageServer(t, http.StatusOK, page)

	var gotInstructions, gotContent string
	ev := evaluatorFunc(func(ctx context.Context, instructions, content string) (string, error) {
		gotInstructions, gotContent = instructions, content
		return "### 1. Metadata\nTitle is concise.", nil
	})

	a := New(upstream.New(upstream.Config{Timeout: time.Second}), ev, Config{MaxParagraphs: 5})
	findings, err := a.Audit(context.Background(), srv.URL)
	require.NoError(t, err)
	require.Len(t, findings, 1)
	require.Equal(t, Report{Content: "### 1. Metadata\nTitle is concise."}, findings[0].Data)

	require.Equal(t, Rubric, gotInstructions)
	require.Contains(t, gotInstructions, "Technical SEO")
	require.Contains(t, gotContent, "<title>Acme Widgets</title>")
}

func TestAudit_Failures(t *testing.T) {
	t.Parallel()

	ok := evaluatorFunc(func(ctx context.Context, instructions, content string) (string, error) {
		return "fine", nil
	})
	empty := evaluatorFunc(func(ctx context.Context, instructions, content string) (string, error) {
		return "  ", nil
	})
	broken := evaluatorFunc(func(ctx context.Context, instructions, content string) (string, error) {
		return "", errors.New("429 rate limited")
	})

	cases := []struct {
		name   string
		status int
		body   string
		ev     Evaluator
		want   audit.Category
	}{
		{"fetch 5xx", http.StatusInternalServerError, "oops", ok, audit.UpstreamFailure},
		{"fetch 404", http.StatusNotFound, "missing", ok, audit.UpstreamFailure},
		{"empty markup", http.StatusOK, "", ok, audit.ExtractionError},
		{"no content", http.StatusOK, page, empty, audit.EvaluationError},
		{"llm error", http.StatusOK, page, broken, audit.EvaluationError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := pageServer(t, tc.status, tc.body)
			a := New(upstream.New(upstream.Config{Timeout: time.Second}), tc.ev, Config{MaxParagraphs: 5})
			_, err := a.Audit(context.Background(), srv.URL)
			require.Equal(t, tc.want, audit.CategoryOf(err))
		})
	}
}

func TestOpenAIEvaluator(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/chat/completions"), r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		var req struct {
			Model     string `json:"model"`
			MaxTokens int    `json:"max_tokens"`
			Messages  []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "gpt-4o", req.Model)
		assert.Equal(t, 1000, req.MaxTokens)
		if assert.Len(t, req.Messages, 2) {
			assert.Equal(t, "system", req.Messages[0].Role)
			assert.Equal(t, "rubric", req.Messages[0].Content)
			assert.Equal(t, "user", req.Messages[1].Role)
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{
  "id": "chatcmpl-1",
  "object": "chat.completion",
  "created": 1730000000,
  "model": "gpt-4o",
  "choices": [{"index": 0, "finish_reason": "stop", "message": {"role": "assistant", "content": "Looks good."}}]
}`)
	}))
	t.Cleanup(srv.Close)

	ev := NewOpenAIEvaluator(OpenAIConfig{APIKey: "sk-test", BaseURL: srv.URL + "/v1/", MaxTokens: 1000})
	out, err := ev.Evaluate(context.Background(), "rubric", "<html></html>")
	require.NoError(t, err)
	require.Equal(t, "Looks good.", out)
}
