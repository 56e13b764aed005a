package orchestrator

import (
	"context"
	"strings"
	"testing"
	"time"

	"go-research/internal/config"
	"go-research/internal/domain"
	"go-research/internal/llm"
)

type fakeChat struct{}

func (fakeChat) Chat(ctx context.Context, tier config.ModelTier, messages []llm.Message) (*llm.Result, error) {
	return &llm.Result{Content: "A short report section [1]."}, nil
}

func (f fakeChat) ChatJSON(ctx context.Context, tier config.ModelTier, messages []llm.Message) (*llm.Result, error) {
	if strings.Contains(messages[0].Content, "report_outline") {
		return &llm.Result{Content: `{"report_title": "T", "report_outline": [{"title": "Intro", "key_question": "What is it?"}]}`}, nil
	}
	if strings.Contains(messages[0].Content, "learnings") {
		return &llm.Result{Content: `{"learnings": [{"text": "fact", "source_index": 1}]}`}, nil
	}
	return &llm.Result{Content: `{"is_complete": true, "gaps": []}`}, nil
}

type fakeSearch struct{}

func (fakeSearch) Search(ctx context.Context, query string) ([]domain.SearchResult, error) {
	return []domain.SearchResult{{URL: "https://a.com/" + query, Title: "A"}}, nil
}

type fakeScraper struct{}

func (fakeScraper) ScrapeURLs(ctx context.Context, urls []string, query string) []domain.ScrapeResult {
	out := make([]domain.ScrapeResult, len(urls))
	for i, u := range urls {
		out[i] = domain.ScrapeResult{URL: u, Success: true, ProcessedContent: "Some reasonably long scraped content about the topic at hand."}
	}
	return out
}

type fakeEmbedder struct{}

func (fakeEmbedder) Embed(ctx context.Context, texts []string) ([]domain.Embedding, error) {
	out := make([]domain.Embedding, len(texts))
	for i := range texts {
		out[i] = domain.Embedding{1, 2, 3}
	}
	return out, nil
}

func TestRunCompletesAndProducesReport(t *testing.T) {
	cfg := config.Default()
	cfg.MaxDepth = 3
	cfg.Timeout = 5 * time.Second

	o := New(cfg, fakeChat{}, fakeSearch{}, fakeScraper{}, fakeEmbedder{}, nil)
	result, err := o.Run(context.Background(), "test topic")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.FinalReport == "" {
		t.Fatal("expected non-empty final report")
	}
	if result.CompletedSteps == 0 {
		t.Fatal("expected completed steps to be counted")
	}
}

func TestRunRespectsCancelledContext(t *testing.T) {
	cfg := config.Default()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	o := New(cfg, fakeChat{}, fakeSearch{}, fakeScraper{}, fakeEmbedder{}, nil)
	result, err := o.Run(ctx, "test topic")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.FinalReport == "" {
		t.Fatal("expected a partial report even on immediate cancellation")
	}
}

func TestQueuePushTargetedPreemptsPlanItems(t *testing.T) {
	var q queue
	q.pushPlan(workItem{sectionIndex: 0, query: "plan-a"}, workItem{sectionIndex: 1, query: "plan-b"})
	q.pushTargeted([]workItem{{sectionIndex: 0, query: "targeted-1"}, {sectionIndex: 0, query: "targeted-2"}})

	first, _ := q.pop()
	second, _ := q.pop()
	third, _ := q.pop()

	if first.query != "targeted-1" || second.query != "targeted-2" || third.query != "plan-a" {
		t.Fatalf("unexpected pop order: %s, %s, %s", first.query, second.query, third.query)
	}
}

func TestHighestSeverityGapPicksBlockingOverMinor(t *testing.T) {
	gapList := []domain.Gap{
		{Text: "minor", Severity: domain.SeverityMinor},
		{Text: "blocking", Severity: domain.SeverityBlocking},
		{Text: "moderate", Severity: domain.SeverityModerate},
	}
	got := highestSeverityGap(gapList)
	if got.Text != "blocking" {
		t.Fatalf("expected blocking gap, got %+v", got)
	}
}
