// Package htmlvalidator checks markup validity through the Nu HTML Checker (validator.nu).
package htmlvalidator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"

	"webpage-auditor/internal/audit"
	"webpage-auditor/internal/pkg/upstream"
)

// Message is one diagnostic from the checker's JSON output. Location fields are
// absent for document-level messages.
type Message struct {
	Type         string `json:"type"`
	SubType      string `json:"subType,omitempty"`
	Message      string `json:"message"`
	Extract      string `json:"extract,omitempty"`
	URL          string `json:"url,omitempty"`
	FirstLine    *int   `json:"firstLine,omitempty"`
	LastLine     *int   `json:"lastLine,omitempty"`
	FirstColumn  *int   `json:"firstColumn,omitempty"`
	LastColumn   *int   `json:"lastColumn,omitempty"`
	HiliteStart  *int   `json:"hiliteStart,omitempty"`
	HiliteLength *int   `json:"hiliteLength,omitempty"`
}

type response struct {
	Messages *[]Message `json:"messages"`
}

// MessagesFromResponse decodes a checker response. A body without a messages array is malformed.
func MessagesFromResponse(body []byte) ([]Message, error) {
	var resp response
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode validator response: %w", err)
	}
	if resp.Messages == nil {
		return nil, fmt.Errorf("validator response has no messages")
	}
	return *resp.Messages, nil
}

// FindingsFromResponse maps every checker message to a finding.
func FindingsFromResponse(body []byte) ([]audit.Finding, error) {
	msgs, err := MessagesFromResponse(body)
	if err != nil {
		return nil, err
	}
	out := make([]audit.Finding, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, audit.Finding{
			Severity:    severity(m),
			Category:    "html-validation",
			Title:       m.Message,
			Description: location(m),
			Data:        m,
		})
	}
	return out, nil
}

func severity(m Message) audit.Severity {
	switch m.Type {
	case "error", "non-document-error":
		return audit.SeverityError
	case "info":
		if m.SubType == "warning" {
			return audit.SeverityWarning
		}
	}
	return audit.SeverityInfo
}

func location(m Message) string {
	line := m.LastLine
	if m.FirstLine != nil {
		line = m.FirstLine
	}
	switch {
	case line != nil && m.FirstColumn != nil:
		return fmt.Sprintf("line %d, column %d", *line, *m.FirstColumn)
	case line != nil:
		return fmt.Sprintf("line %d", *line)
	default:
		return ""
	}
}

type Auditor struct {
	client   *upstream.Client
	endpoint string
}

func New(client *upstream.Client, endpoint string) *Auditor {
	return &Auditor{client: client, endpoint: endpoint}
}

func (a *Auditor) Kind() audit.CheckKind { return audit.CheckHTMLValidation }

func (a *Auditor) Audit(ctx context.Context, target string) ([]audit.Finding, error) {
	body, err := a.client.Get(ctx, a.endpoint, url.Values{
		"doc": {target},
		"out": {"json"},
	})
	if err != nil {
		if errors.Is(err, upstream.ErrTooLarge) {
			return nil, audit.NewError(audit.UpstreamFailure, "html validator response too large", err)
		}
		return nil, audit.NewError(audit.UpstreamFailure, "html validator request failed", err)
	}

	findings, err := FindingsFromResponse(body)
	if err != nil {
		return nil, audit.NewError(audit.UpstreamFailure, "html validator returned a malformed response", err)
	}
	return findings, nil
}
