// Package search implements the Search Client: a single external-search
// call plus the URL curation (normalize + dedup + top-N) the orchestrator
// applies to its results. Generalized from the teacher's Brave-specific
// internal/tools/search.go to the generic search-endpoint contract of
// spec §6.
package search

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"go-research/internal/domain"
)

// DefaultResultCap is the engine-dependent cap on results per call (spec §4.3).
const DefaultResultCap = 10

// Client issues one search query and returns ranked results. Failures are
// the caller's responsibility to log; implementations never panic and
// Search callers are expected to treat a returned error as "no results".
type Client interface {
	Search(ctx context.Context, query string) ([]domain.SearchResult, error)
}

// apiResult/apiResponse mirror spec §6's search endpoint contract:
// {results: [{url, title, content, publishedDate?, score?}...], answers?, suggestions?}.
type apiResult struct {
	URL           string  `json:"url"`
	Title         string  `json:"title"`
	Content       string  `json:"content"`
	PublishedDate string  `json:"publishedDate,omitempty"`
	Score         float64 `json:"score,omitempty"`
}

type apiResponse struct {
	Results     []apiResult `json:"results"`
	Answers     []string    `json:"answers,omitempty"`
	Suggestions []string    `json:"suggestions,omitempty"`
}

// HTTPClient implements Client against the configured search endpoint.
type HTTPClient struct {
	endpoint   string
	apiKey     string
	cap        int
	httpClient *http.Client
}

// NewHTTPClient builds a search Client. cap <= 0 uses DefaultResultCap.
func NewHTTPClient(endpoint, apiKey string, cap int) *HTTPClient {
	if cap <= 0 {
		cap = DefaultResultCap
	}
	return &HTTPClient{
		endpoint:   endpoint,
		apiKey:     apiKey,
		cap:        cap,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Search queries the external engine. On any failure it returns an empty
// slice and the error, matching spec §4.3's "failures return an empty list
// and are logged, never raised" (the orchestrator logs err and proceeds as
// if the slice were the sole result).
func (c *HTTPClient) Search(ctx context.Context, query string) ([]domain.SearchResult, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("count", fmt.Sprintf("%d", c.cap))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create search request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Warn().Err(err).Str("query", query).Msg("search_request_failed")
		return nil, fmt.Errorf("search request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		log.Warn().Int("status", resp.StatusCode).Str("query", query).Msg("search_endpoint_error")
		return nil, fmt.Errorf("search endpoint returned %d: %s", resp.StatusCode, string(body))
	}

	var parsed apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	out := make([]domain.SearchResult, 0, len(parsed.Results))
	for i, r := range parsed.Results {
		if i >= c.cap {
			break
		}
		sr := domain.SearchResult{
			URL:       r.URL,
			Title:     r.Title,
			Snippet:   r.Content,
			Relevance: r.Score,
		}
		if t, err := time.Parse(time.RFC3339, r.PublishedDate); err == nil {
			sr.PublishedDate = t
		}
		out = append(out, sr)
	}
	return out, nil
}

var _ Client = (*HTTPClient)(nil)

// Normalize canonicalizes a URL for deduplication: lowercase host+path,
// strip a trailing slash and strip UTM query parameters. Normalize is
// idempotent.
func Normalize(rawURL string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || u.Host == "" {
		return strings.ToLower(strings.TrimSuffix(strings.TrimSpace(rawURL), "/"))
	}

	u.Host = strings.ToLower(u.Host)
	u.Scheme = strings.ToLower(u.Scheme)
	u.Path = strings.TrimSuffix(u.Path, "/")
	u.Fragment = ""

	if u.RawQuery != "" {
		q := u.Query()
		for key := range q {
			if strings.HasPrefix(strings.ToLower(key), "utm_") {
				q.Del(key)
			}
		}
		u.RawQuery = q.Encode()
	}

	result := u.Scheme + "://" + u.Host + u.Path
	if u.RawQuery != "" {
		result += "?" + u.RawQuery
	}
	return strings.ToLower(result)
}

// Curate deduplicates results by normalized URL (first occurrence wins,
// preserving ranking) and truncates to max entries.
func Curate(results []domain.SearchResult, max int) []domain.SearchResult {
	seen := make(map[string]bool, len(results))
	out := make([]domain.SearchResult, 0, len(results))
	for _, r := range results {
		key := Normalize(r.URL)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, r)
		if len(out) >= max {
			break
		}
	}
	return out
}

// CurationCap implements the depth-dependent cap from spec §4.9:
// max(15 - depth, 5).
func CurationCap(depth int) int {
	cap := 15 - depth
	if cap < 5 {
		cap = 5
	}
	return cap
}
