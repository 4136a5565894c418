package seo

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const DefaultMaxParagraphs = 5

// ReduceDocument keeps the parts of a page that matter for an SEO review: the
// whole head, every h1-h3, every image with alt text, every link and the first
// maxParagraphs paragraphs.
func ReduceDocument(markup []byte, maxParagraphs int) (string, error) {
	if len(bytes.TrimSpace(markup)) == 0 {
		return "", fmt.Errorf("document is empty")
	}
	if maxParagraphs < 0 {
		maxParagraphs = DefaultMaxParagraphs
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(markup))
	if err != nil {
		return "", fmt.Errorf("parse document: %w", err)
	}

	head, err := doc.Find("head").First().Html()
	if err != nil {
		return "", fmt.Errorf("render head: %w", err)
	}

	body := doc.Find("body")

	var sections []string
	for _, sel := range []*goquery.Selection{
		body.Find("h1, h2, h3"),
		body.Find("img[alt]"),
		body.Find("a[href]"),
		body.Find("p").Slice(0, min(maxParagraphs, body.Find("p").Length())),
	} {
		part, err := outerHTML(sel)
		if err != nil {
			return "", err
		}
		if part != "" {
			sections = append(sections, part)
		}
	}

	if strings.TrimSpace(head) == "" && len(sections) == 0 {
		return "", fmt.Errorf("document has no head metadata or indexable content")
	}

	var b strings.Builder
	b.WriteString("<!DOCTYPE html>\n<html>\n<head>\n")
	b.WriteString(strings.TrimSpace(head))
	b.WriteString("\n</head>\n<body>\n")
	b.WriteString(strings.Join(sections, "\n"))
	b.WriteString("\n</body>\n</html>")
	return b.String(), nil
}

func outerHTML(sel *goquery.Selection) (string, error) {
	parts := make([]string, 0, sel.Length())
	var firstErr error
	sel.Each(func(_ int, s *goquery.Selection) {
		h, err := goquery.OuterHtml(s)
		if err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("render element: %w", err)
			}
			return
		}
		parts = append(parts, h)
	})
	if firstErr != nil {
		return "", firstErr
	}
	return strings.Join(parts, "\n"), nil
}
