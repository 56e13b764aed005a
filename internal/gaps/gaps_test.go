package gaps

import (
	"context"
	"errors"
	"testing"

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

var someLearnings = []domain.Learning{{Text: "some fact", Source: "https://a.com"}}

func TestAnalyzeParsesComplete(t *testing.T) {
	chat := &fakeChat{content: `{"is_complete": true, "gaps": []}`}
	result := Analyze(context.Background(), chat, "q", someLearnings)
	if !result.IsComplete || len(result.RemainingGaps) != 0 {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestAnalyzeEmptyLearningsShortCircuitsWithoutLLMCall(t *testing.T) {
	chat := &fakeChat{err: errors.New("must not be called")}
	result := Analyze(context.Background(), chat, "q", nil)
	if result.IsComplete || len(result.RemainingGaps) != 1 {
		t.Fatalf("unexpected result: %+v", result)
	}
	g := result.RemainingGaps[0]
	if g.Text != "Need initial information" || g.Severity != domain.SeverityBlocking || g.Confidence != 0.5 {
		t.Fatalf("unexpected short-circuit gap: %+v", g)
	}
}

func TestAnalyzeParsesIncompleteWithGaps(t *testing.T) {
	chat := &fakeChat{content: `{"is_complete": false, "gaps": [{"text": "missing X", "severity": 3, "confidence": 0.9}]}`}
	result := Analyze(context.Background(), chat, "q", []domain.Learning{{Text: "some fact", Source: "https://a.com"}})
	if result.IsComplete || len(result.RemainingGaps) != 1 {
		t.Fatalf("unexpected result: %+v", result)
	}
	if result.RemainingGaps[0].Severity != domain.SeverityBlocking {
		t.Fatalf("expected blocking severity, got %v", result.RemainingGaps[0].Severity)
	}
}

func TestAnalyzeFallsBackOnError(t *testing.T) {
	chat := &fakeChat{err: errors.New("boom")}
	result := Analyze(context.Background(), chat, "q", someLearnings)
	if result.IsComplete || len(result.RemainingGaps) == 0 {
		t.Fatalf("expected conservative incomplete fallback, got %+v", result)
	}
	g := result.RemainingGaps[0]
	if g.Severity != domain.SeverityBlocking || g.Text != "Re-evaluate findings for q" {
		t.Fatalf("unexpected fallback gap: %+v", g)
	}
}

func TestAnalyzeFallsBackOnUnparseable(t *testing.T) {
	chat := &fakeChat{content: "no json here"}
	result := Analyze(context.Background(), chat, "q", someLearnings)
	if result.IsComplete {
		t.Fatalf("expected incomplete fallback, got %+v", result)
	}
}

func TestGenerateQueriesParsesResponse(t *testing.T) {
	chat := &fakeChat{content: `{"queries": ["query one", "query two"]}`}
	queries := GenerateQueries(context.Background(), chat, "q", domain.Gap{Text: "gap1"})
	if len(queries) != 2 {
		t.Fatalf("expected 2 queries, got %v", queries)
	}
}

func TestGenerateQueriesFallsBackOnError(t *testing.T) {
	chat := &fakeChat{err: errors.New("boom")}
	queries := GenerateQueries(context.Background(), chat, "q", domain.Gap{Text: "gap1"})
	if len(queries) != 1 {
		t.Fatalf("expected 1 fallback query, got %v", queries)
	}
}
