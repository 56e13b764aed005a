// Package scraper implements the Scraper: per-URL content fetch, document
// type detection, and cleaned-text/markdown extraction, bounded by a
// concurrency semaphore and per-URL timeout as spec §4.4 requires.
package scraper

import (
	"context"
	"path"
	"strings"

	"go-research/internal/domain"
)

// DocType classifies a URL for routing to the right extraction path.
type DocType int

const (
	DocWeb DocType = iota
	DocPDF
	DocDOCX
	DocSpreadsheet
	DocOther
)

// DetectType applies the extension/path heuristics from spec §4.4. Unknown
// types default to DocWeb.
func DetectType(rawURL string) DocType {
	lower := strings.ToLower(rawURL)
	ext := strings.ToLower(path.Ext(stripQuery(lower)))
	switch ext {
	case ".pdf":
		return DocPDF
	case ".docx", ".doc":
		return DocDOCX
	case ".xlsx", ".xls", ".csv":
		return DocSpreadsheet
	case ".html", ".htm", "":
		return DocWeb
	default:
		return DocWeb
	}
}

func stripQuery(u string) string {
	if i := strings.IndexAny(u, "?#"); i >= 0 {
		return u[:i]
	}
	return u
}

// Converter fetches and converts one non-web document URL using the external
// convert endpoint.
type Converter interface {
	Convert(ctx context.Context, url string) (text string, title string, err error)
}

// WebFetcher fetches and extracts readable content from one web URL.
type WebFetcher interface {
	Fetch(ctx context.Context, url string) (markdown string, title string, err error)
}

// Scrape is satisfied by Scraper; declared as an interface so the
// orchestrator can depend on an abstraction in tests.
type Scrape interface {
	ScrapeURLs(ctx context.Context, urls []string, query string) []domain.ScrapeResult
}
