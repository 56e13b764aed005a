package report

import (
	"context"
	"errors"
	"strings"
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

func samplePlan() domain.ReportPlan {
	return domain.ReportPlan{
		ReportTitle: "Test Report",
		ReportOutline: []domain.ReportSection{
			{Title: "Intro", KeyQuestion: "What is it?"},
		},
	}
}

func sampleLearnings() []domain.Learning {
	return []domain.Learning{
		{Text: "Fact one.", Source: "https://a.com", Title: "A"},
		{Text: "Fact two.", Source: "https://b.com", Title: "B"},
	}
}

func TestGenerateRewritesCitationsAndAppendsReferences(t *testing.T) {
	chat := &fakeChat{content: "# Test Report\n\nSomething happened [1] and also [2]."}
	out := Generate(context.Background(), chat, samplePlan(), sampleLearnings())

	if !strings.Contains(out, "[1](https://a.com)") || !strings.Contains(out, "[2](https://b.com)") {
		t.Fatalf("citations not rewritten: %s", out)
	}
	if !strings.Contains(out, "## References") {
		t.Fatalf("expected References section: %s", out)
	}
}

func TestGenerateLeavesUnknownCitationNumbersUnrewritten(t *testing.T) {
	chat := &fakeChat{content: "Text with an unknown citation [99]."}
	out := Generate(context.Background(), chat, samplePlan(), sampleLearnings())
	if !strings.Contains(out, "[99]") {
		t.Fatalf("expected unknown citation left intact: %s", out)
	}
	if strings.Contains(out, "[99](") {
		t.Fatalf("unknown citation should not become a link: %s", out)
	}
}

func TestGenerateFallsBackOnError(t *testing.T) {
	chat := &fakeChat{err: errors.New("boom")}
	out := Generate(context.Background(), chat, samplePlan(), sampleLearnings())
	if !strings.Contains(out, "emergency summary") {
		t.Fatalf("expected emergency report, got: %s", out)
	}
	if !strings.Contains(out, "Fact one.") || !strings.Contains(out, "Fact two.") {
		t.Fatalf("emergency report missing learnings: %s", out)
	}
}

func TestGenerateFallsBackOnEmptyContent(t *testing.T) {
	chat := &fakeChat{content: "   "}
	out := Generate(context.Background(), chat, samplePlan(), sampleLearnings())
	if !strings.Contains(out, "emergency summary") {
		t.Fatalf("expected emergency report for empty content, got: %s", out)
	}
}

func TestEmergencyReportNotesMissingSources(t *testing.T) {
	chat := &fakeChat{err: errors.New("boom")}
	out := Generate(context.Background(), chat, samplePlan(), nil)
	if !strings.Contains(out, "No valid source URLs were cited") {
		t.Fatalf("expected no-sources note, got: %s", out)
	}
}

func TestReferencesAreSortedNumerically(t *testing.T) {
	chat := &fakeChat{content: "Second source [2] mentioned before first [1]."}
	out := Generate(context.Background(), chat, samplePlan(), sampleLearnings())
	idx1 := strings.Index(out, "1. https://a.com")
	idx2 := strings.Index(out, "2. https://b.com")
	if idx1 == -1 || idx2 == -1 || idx1 > idx2 {
		t.Fatalf("expected references listed in numeric order: %s", out)
	}
}
