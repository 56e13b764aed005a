package vectorstore

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-research/internal/domain"
)

// fakeEmbedder returns a deterministic 2-D embedding derived from text
// length and the count of the letter "e", enough to produce distinguishable cosine scores
// without depending on any real embedding model.
type fakeEmbedder struct {
	rejectCount bool
}

func (f *fakeEmbedder) Embed(ctx context.Context, texts []string) ([]domain.Embedding, error) {
	out := make([]domain.Embedding, len(texts))
	for i, t := range texts {
		vowels := float32(strings.Count(strings.ToLower(t), "e") + 1)
		out[i] = domain.Embedding{float32(len(t) % 37), vowels}
	}
	if f.rejectCount {
		return out[:len(out)-1], nil
	}
	return out, nil
}

func TestChunkDropsTinyFragments(t *testing.T) {
	chunks := Chunk("hi\n\nthis paragraph is long enough to survive trimming", "u", "t", 1000, 200)
	for _, c := range chunks {
		assert.GreaterOrEqualf(t, len(c.Text), minChunkLen, "chunk shorter than minChunkLen survived: %q", c.Text)
	}
}

func TestChunkPositionsAreSequential(t *testing.T) {
	text := strings.Repeat("paragraph number with enough content to matter.\n\n", 10)
	chunks := Chunk(text, "https://x.com", "Title", 80, 20)
	for i, c := range chunks {
		assert.Equal(t, i, c.Metadata.Position)
		assert.Equal(t, "https://x.com", c.Metadata.URL)
		assert.Equal(t, "Title", c.Metadata.Title)
	}
}

func TestAddDocumentRejectsEmbeddingCountMismatch(t *testing.T) {
	s := New(&fakeEmbedder{rejectCount: true})
	text := strings.Repeat("enough content per paragraph to not be trimmed away.\n\n", 5)
	_, err := s.AddDocument(context.Background(), "https://x.com", "t", text, 80, 20)
	require.Error(t, err)
}

func TestSearchRanksBySimilarityDescending(t *testing.T) {
	s := New(&fakeEmbedder{})
	text := "first long enough paragraph here to survive.\n\nsecond quite different long paragraph altogether indeed."
	_, err := s.AddDocument(context.Background(), "https://x.com", "t", text, 500, 50)
	require.NoError(t, err)

	results, err := s.Search(context.Background(), "first long enough paragraph here to survive.", 5)
	require.NoError(t, err)
	for i := 1; i < len(results); i++ {
		assert.GreaterOrEqualf(t, results[i-1].Score, results[i].Score, "results not sorted descending: %+v", results)
	}
}

func TestClearEmptiesIndex(t *testing.T) {
	s := New(&fakeEmbedder{})
	text := "some reasonably long paragraph content to embed and store."
	_, err := s.AddDocument(context.Background(), "https://x.com", "t", text, 500, 50)
	require.NoError(t, err)
	require.NotZero(t, s.Len(), "expected non-empty index before Clear")

	s.Clear()
	assert.Zero(t, s.Len())
}

func TestCosineSimilarityIdenticalVectorsScoreOne(t *testing.T) {
	v := domain.Embedding{1, 2, 3}
	assert.InDelta(t, 1.0, cosineSimilarity(v, v), 1e-6)
}

func TestCosineSimilarityMismatchedLengthIsZero(t *testing.T) {
	a := domain.Embedding{1, 2, 3}
	b := domain.Embedding{1, 2}
	assert.Zero(t, cosineSimilarity(a, b))
}
