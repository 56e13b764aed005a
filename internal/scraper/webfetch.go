package scraper

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	md "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/go-shiori/go-readability"
	"golang.org/x/net/html"
)

// HTTPWebFetcher fetches a page and extracts readable Markdown via
// go-shiori/go-readability + html-to-markdown, falling back to a bare
// tag-stripping tokenizer pass (adapted from the teacher's
// internal/tools/fetch.go extractText) when readability can't parse the
// page.
type HTTPWebFetcher struct {
	httpClient *http.Client
}

func NewHTTPWebFetcher() *HTTPWebFetcher {
	return &HTTPWebFetcher{httpClient: &http.Client{Timeout: 30 * time.Second}}
}

func (f *HTTPWebFetcher) Fetch(ctx context.Context, url string) (string, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; ResearchOrchestratorBot/1.0)")
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return "", "", fmt.Errorf("fetch failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", "", fmt.Errorf("fetch error %d for %s", resp.StatusCode, url)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", "", fmt.Errorf("read body: %w", err)
	}

	article, rerr := readability.FromReader(strings.NewReader(string(body)), req.URL)
	if rerr == nil && strings.TrimSpace(article.Content) != "" {
		markdown, merr := md.ConvertString(article.Content)
		if merr == nil && strings.TrimSpace(markdown) != "" {
			return truncate(markdown, 20000), article.Title, nil
		}
		// readability parsed but markdown conversion failed: fall through to
		// the plain-text tokenizer pass on the article HTML.
		return truncate(extractText(article.Content), 20000), article.Title, nil
	}

	return truncate(extractText(string(body)), 20000), "", nil
}

// extractText strips tags with golang.org/x/net/html, skipping script/style
// content, matching the teacher's fallback in internal/tools/fetch.go.
func extractText(htmlContent string) string {
	doc, err := html.Parse(strings.NewReader(htmlContent))
	if err != nil {
		re := regexp.MustCompile(`<[^>]*>`)
		return cleanWhitespace(re.ReplaceAllString(htmlContent, ""))
	}

	var text strings.Builder
	var extract func(*html.Node)
	extract = func(n *html.Node) {
		if n.Type == html.TextNode {
			text.WriteString(n.Data)
			text.WriteString(" ")
		}
		if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style" || n.Data == "noscript") {
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extract(c)
		}
	}
	extract(doc)

	return cleanWhitespace(text.String())
}

func cleanWhitespace(s string) string {
	re := regexp.MustCompile(`\s+`)
	return strings.TrimSpace(re.ReplaceAllString(s, " "))
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "\n...[truncated]"
}

var _ WebFetcher = (*HTTPWebFetcher)(nil)
