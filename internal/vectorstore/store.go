package vectorstore

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/montanaflynn/stats"

	"go-research/internal/domain"
	"go-research/internal/llm"
)

// DefaultTopK is the spec §4.5 default retrieval width.
const DefaultTopK = 5

// Store is the in-process vector index. All methods are safe for concurrent
// use; the index never persists beyond the process.
type Store struct {
	mu       sync.RWMutex
	embedder llm.Embedder
	records  []domain.VectorRecord
}

func New(embedder llm.Embedder) *Store {
	return &Store{embedder: embedder}
}

// AddDocument chunks a scraped document's content, embeds every non-trivial
// chunk in one batch call, and appends the resulting records to the index.
// Embedding count/chunk count mismatches are rejected by the Embedder and
// surfaced here as an error (never silently mis-paired).
func (s *Store) AddDocument(ctx context.Context, url, title, content string, chunkSize, overlap int) (int, error) {
	chunks := Chunk(content, url, title, chunkSize, overlap)
	if len(chunks) == 0 {
		return 0, nil
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}

	embeddings, err := s.embedder.Embed(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("embed %d chunks from %s: %w", len(chunks), url, err)
	}
	if len(embeddings) != len(chunks) {
		return 0, fmt.Errorf("embedder returned %d vectors for %d chunks from %s", len(embeddings), len(chunks), url)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i, c := range chunks {
		s.records = append(s.records, domain.VectorRecord{
			ID:       fmt.Sprintf("%s-%d", url, c.Metadata.Position),
			Values:   embeddings[i],
			Metadata: c.Metadata,
			Text:     c.Text,
		})
	}
	return len(chunks), nil
}

// Search embeds query and returns the topK most similar records by cosine
// similarity, highest first. topK <= 0 uses DefaultTopK.
func (s *Store) Search(ctx context.Context, query string, topK int) ([]domain.ScoredRecord, error) {
	if topK <= 0 {
		topK = DefaultTopK
	}

	embeddings, err := s.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(embeddings) != 1 {
		return nil, fmt.Errorf("embedder returned %d vectors for 1 query", len(embeddings))
	}
	return s.SearchByVector(embeddings[0], topK), nil
}

// SearchByVector ranks the index against a precomputed query embedding.
func (s *Store) SearchByVector(query domain.Embedding, topK int) []domain.ScoredRecord {
	if topK <= 0 {
		topK = DefaultTopK
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	scored := make([]domain.ScoredRecord, 0, len(s.records))
	for _, r := range s.records {
		scored = append(scored, domain.ScoredRecord{Record: r, Score: cosineSimilarity(query, r.Values)})
	}
	sort.Slice(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })

	if topK > len(scored) {
		topK = len(scored)
	}
	return scored[:topK]
}

// ScoreDistribution summarizes the score spread of a retrieval using
// montanaflynn/stats, for progress-log diagnostics (spec §4.1's activity
// logging wants a human-readable signal of retrieval quality, not raw
// vectors).
func ScoreDistribution(scored []domain.ScoredRecord) (mean, median, stddev float64, err error) {
	if len(scored) == 0 {
		return 0, 0, 0, nil
	}
	values := make([]float64, len(scored))
	for i, r := range scored {
		values[i] = r.Score
	}
	mean, err = stats.Mean(values)
	if err != nil {
		return 0, 0, 0, err
	}
	median, err = stats.Median(values)
	if err != nil {
		return 0, 0, 0, err
	}
	stddev, err = stats.StandardDeviation(values)
	if err != nil {
		return 0, 0, 0, err
	}
	return mean, median, stddev, nil
}

// Clear empties the index. Used between independent research runs that
// share a process.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = nil
}

// Len reports the number of indexed records.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

func cosineSimilarity(a, b domain.Embedding) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
