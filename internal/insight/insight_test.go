package insight

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-research/internal/config"
	"go-research/internal/domain"
	"go-research/internal/llm"
)

type fakeChat struct {
	content string
	err     error
}

func (f *fakeChat) Chat(ctx context.Context, tier config.ModelTier, messages []llm.Message) (*llm.Result, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &llm.Result{Content: f.content}, nil
}

func (f *fakeChat) ChatJSON(ctx context.Context, tier config.ModelTier, messages []llm.Message) (*llm.Result, error) {
	return f.Chat(ctx, tier, messages)
}

func sampleChunks() []domain.ScoredRecord {
	return []domain.ScoredRecord{
		{Record: domain.VectorRecord{Text: "Go was released in 2009.", Metadata: domain.ChunkMetadata{URL: "https://a.com", Title: "A"}}},
		{Record: domain.VectorRecord{Text: "It has a built-in concurrency model.", Metadata: domain.ChunkMetadata{URL: "https://b.com", Title: "B"}}},
	}
}

func TestExtractParsesWrappedObject(t *testing.T) {
	chat := &fakeChat{content: `{"learnings": [{"text": "Go shipped in 2009.", "source_index": 1}]}`}
	learnings, err := Extract(context.Background(), chat, "When was Go released?", sampleChunks())
	require.NoError(t, err)
	require.Len(t, learnings, 1)
	assert.Equal(t, "https://a.com", learnings[0].Source)
}

func TestExtractFallsBackOnLLMError(t *testing.T) {
	chat := &fakeChat{err: errors.New("boom")}
	learnings, err := Extract(context.Background(), chat, "q", sampleChunks())
	require.NoError(t, err)
	assert.Len(t, learnings, 2)
}

func TestExtractFallsBackOnUnparseableResponse(t *testing.T) {
	chat := &fakeChat{content: "I couldn't find anything structured here."}
	learnings, err := Extract(context.Background(), chat, "q", sampleChunks())
	require.NoError(t, err)
	assert.NotEmpty(t, learnings)
}

func TestExtractEmptyChunksReturnsNil(t *testing.T) {
	learnings, err := Extract(context.Background(), &fakeChat{}, "q", nil)
	require.NoError(t, err)
	assert.Nil(t, learnings)
}

type fakeEmbed struct{}

func (fakeEmbed) Embed(ctx context.Context, texts []string) ([]domain.Embedding, error) {
	out := make([]domain.Embedding, len(texts))
	for i, t := range texts {
		if len(t) > 0 && t[0] == 'A' {
			out[i] = domain.Embedding{1, 0}
		} else {
			out[i] = domain.Embedding{0, 1}
		}
	}
	return out, nil
}

func TestClusterGroupsBySimilarity(t *testing.T) {
	learnings := []domain.Learning{
		{Text: "Alpha fact one", Source: "https://a.com"},
		{Text: "Alpha fact two, a restatement", Source: "https://b.com"},
		{Text: "Zeta unrelated fact", Source: "https://c.com"},
	}
	clusters, err := Cluster(context.Background(), fakeEmbed{}, learnings)
	require.NoError(t, err)
	assert.Len(t, clusters, 2)
}

func TestConsolidateKeepsSingleMemberClusterUnchanged(t *testing.T) {
	clusters := [][]domain.Learning{{{Text: "solo", Source: "https://a.com"}}}
	out := Consolidate(context.Background(), &fakeChat{}, clusters)
	require.Len(t, out, 1)
	assert.Equal(t, "solo", out[0].Text)
}

func TestConsolidateMergesMultiMemberCluster(t *testing.T) {
	chat := &fakeChat{content: "Merged statement covering both facts."}
	clusters := [][]domain.Learning{{
		{Text: "fact one", Source: "https://a.com", Title: "A"},
		{Text: "fact two", Source: "https://b.com"},
	}}
	out := Consolidate(context.Background(), chat, clusters)
	require.Len(t, out, 1)
	assert.Equal(t, "Merged statement covering both facts.", out[0].Text)
	assert.Equal(t, "https://a.com", out[0].Source)
}
