package scraper

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fakeWebFetcher struct {
	delay time.Duration
	err   error
	md    string
}

func (f *fakeWebFetcher) Fetch(ctx context.Context, url string) (string, string, error) {
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return "", "", ctx.Err()
		}
	}
	if f.err != nil {
		return "", "", f.err
	}
	return f.md, "title: " + url, nil
}

func TestDetectTypeByExtension(t *testing.T) {
	cases := map[string]DocType{
		"https://example.com/report.pdf":        DocPDF,
		"https://example.com/report.pdf?x=1":    DocPDF,
		"https://example.com/notes.docx":        DocDOCX,
		"https://example.com/data.xlsx":         DocSpreadsheet,
		"https://example.com/data.csv#section":  DocSpreadsheet,
		"https://example.com/article":           DocWeb,
		"https://example.com/article.html":      DocWeb,
	}
	for url, want := range cases {
		if got := DetectType(url); got != want {
			t.Errorf("DetectType(%q) = %v, want %v", url, got, want)
		}
	}
}

func TestScrapeURLsSingleFailureDoesNotFailBatch(t *testing.T) {
	s := New(&fakeWebFetcher{err: errors.New("boom")}, nil, nil, 2, time.Second)
	results := s.ScrapeURLs(context.Background(), []string{"https://a.com", "https://b.com"}, "q")

	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	for _, r := range results {
		if r.Success {
			t.Fatalf("expected failure, got success: %+v", r)
		}
		if r.ProcessedContent != "" {
			t.Fatalf("failed result must have empty ProcessedContent: %+v", r)
		}
	}
}

func TestScrapeURLsSucceeds(t *testing.T) {
	s := New(&fakeWebFetcher{md: "# hello"}, nil, nil, 2, time.Second)
	results := s.ScrapeURLs(context.Background(), []string{"https://a.com"}, "q")

	if len(results) != 1 || !results[0].Success || results[0].ProcessedContent != "# hello" {
		t.Fatalf("unexpected result: %+v", results)
	}
}

func TestScrapeOneTimesOut(t *testing.T) {
	s := New(&fakeWebFetcher{delay: 50 * time.Millisecond}, nil, nil, 1, 5*time.Millisecond)
	r := s.scrapeOne(context.Background(), "https://slow.com")
	if r.Success || r.Error != "timeout" {
		t.Fatalf("expected timeout error, got %+v", r)
	}
}

func TestScrapeURLsBoundsConcurrency(t *testing.T) {
	const n = 10
	urls := make([]string, n)
	for i := range urls {
		urls[i] = "https://example.com/x"
	}
	s := New(&fakeWebFetcher{md: "ok"}, nil, nil, 3, time.Second)
	results := s.ScrapeURLs(context.Background(), urls, "q")
	if len(results) != n {
		t.Fatalf("expected %d results, got %d", n, len(results))
	}
}
