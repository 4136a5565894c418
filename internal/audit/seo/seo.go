// Package seo asks a language model to review a reduced copy of the page against a fixed rubric.
package seo

import (
	"context"
	_ "embed"
	"errors"
	"strings"

	"go.uber.org/zap"

	"webpage-auditor/internal/audit"
	"webpage-auditor/internal/pkg/upstream"
)

//go:embed rubric.md
var Rubric string

// Report is the payload of the single SEO finding.
type Report struct {
	Content string `json:"content"`
}

type Config struct {
	MaxParagraphs int
	Logger        *zap.SugaredLogger
}

type Auditor struct {
	client    *upstream.Client
	evaluator Evaluator
	cfg       Config
	logger    *zap.SugaredLogger
}

func New(client *upstream.Client, evaluator Evaluator, cfg Config) *Auditor {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Auditor{client: client, evaluator: evaluator, cfg: cfg, logger: logger}
}

func (a *Auditor) Kind() audit.CheckKind { return audit.CheckSEO }

func (a *Auditor) Audit(ctx context.Context, url string) ([]audit.Finding, error) {
	report, err := a.Review(ctx, url)
	if err != nil {
		return nil, err
	}
	return []audit.Finding{{
		Severity: audit.SeverityInfo,
		Category: "seo",
		Title:    "SEO review",
		Data:     report,
	}}, nil
}

func (a *Auditor) Review(ctx context.Context, url string) (Report, error) {
	markup, err := a.client.Get(ctx, url, nil)
	if err != nil {
		if errors.Is(err, upstream.ErrTooLarge) {
			return Report{}, audit.NewError(audit.UpstreamFailure, "page markup is too large", err)
		}
		return Report{}, audit.NewError(audit.UpstreamFailure, "could not fetch page markup", err)
	}

	reduced, err := ReduceDocument(markup, a.cfg.MaxParagraphs)
	if err != nil {
		return Report{}, audit.NewError(audit.ExtractionError, "could not extract page content", err)
	}

	a.logger.Debugw("seo_document_reduced",
		"url", url,
		"source_bytes", len(markup),
		"reduced_bytes", len(reduced),
	)

	content, err := a.evaluator.Evaluate(ctx, Rubric, reduced)
	if err != nil {
		return Report{}, audit.NewError(audit.EvaluationError, "seo evaluation failed", err)
	}
	if strings.TrimSpace(content) == "" {
		return Report{}, audit.Errorf(audit.EvaluationError, "seo evaluation returned no content")
	}
	return Report{Content: content}, nil
}
