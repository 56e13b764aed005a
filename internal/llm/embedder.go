package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"go-research/internal/config"
	"go-research/internal/domain"
)

// Embedder obtains vector embeddings for a batch of texts. Implementations
// must filter empty/whitespace-only texts before calling the remote service
// and must reject a batch whose returned embedding count does not match the
// number of texts requested.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([]domain.Embedding, error)
}

// embedRequest/embedResponse mirror the spec's bespoke /embed contract:
// POST {texts: [...]}  ->  {embeddings: [[float...]...]}.
type embedRequest struct {
	Texts []string `json:"texts"`
}

type embedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

// HTTPEmbedder implements Embedder against the external embedding endpoint
// described in spec §6. It is deliberately a plain net/http client, matching
// the teacher's own hand-rolled style in internal/llm/client.go, because this
// endpoint contract is bespoke to this system and not covered by any SDK in
// the retrieval pack.
type HTTPEmbedder struct {
	url        string
	apiKey     string
	httpClient *http.Client
}

// NewHTTPEmbedder builds an Embedder from config.
func NewHTTPEmbedder(cfg *config.Config) *HTTPEmbedder {
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &HTTPEmbedder{
		url:        cfg.EmbeddingURL,
		apiKey:     cfg.EmbeddingKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Embed filters blank texts, posts the remainder in one batch, and returns
// one embedding per non-blank text in input order; blank texts get no
// entry, so the result is shorter than texts when any were blank. It returns an error (rather than a partial
// result) when the provider is unreachable or returns a mismatched count,
// per spec §4.5's "embedding-service error surfaces as an exception".
func (e *HTTPEmbedder) Embed(ctx context.Context, texts []string) ([]domain.Embedding, error) {
	nonBlank := make([]string, 0, len(texts))
	for _, t := range texts {
		if strings.TrimSpace(t) != "" {
			nonBlank = append(nonBlank, t)
		}
	}
	if len(nonBlank) == 0 {
		return nil, nil
	}

	body, err := json.Marshal(embedRequest{Texts: nonBlank})
	if err != nil {
		return nil, fmt.Errorf("marshal embed request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create embed request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if e.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+e.apiKey)
	}

	resp, err := e.httpClient.Do(req)
	if err != nil {
		log.Warn().Err(err).Int("texts", len(nonBlank)).Msg("embed_request_failed")
		return nil, fmt.Errorf("embed request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		log.Warn().Int("status", resp.StatusCode).Msg("embed_endpoint_error")
		return nil, fmt.Errorf("embed endpoint returned %d: %s", resp.StatusCode, string(raw))
	}

	var parsed embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode embed response: %w", err)
	}

	if len(parsed.Embeddings) != len(nonBlank) {
		return nil, fmt.Errorf("embed endpoint returned %d embeddings for %d texts", len(parsed.Embeddings), len(nonBlank))
	}

	out := make([]domain.Embedding, len(parsed.Embeddings))
	for i, e := range parsed.Embeddings {
		out[i] = domain.Embedding(e)
	}
	return out, nil
}

var _ Embedder = (*HTTPEmbedder)(nil)
