package llm

import (
	"context"
	"errors"
	"testing"

	"go-research/internal/config"
)

type fakeTrackedChat struct {
	result *Result
	err    error
}

func (f *fakeTrackedChat) Chat(ctx context.Context, tier config.ModelTier, messages []Message) (*Result, error) {
	return f.result, f.err
}

func (f *fakeTrackedChat) ChatJSON(ctx context.Context, tier config.ModelTier, messages []Message) (*Result, error) {
	return f.result, f.err
}

func TestCostTrackerAccumulatesAcrossCalls(t *testing.T) {
	inner := &fakeTrackedChat{result: &Result{
		Content: "ok",
		Model:   "openai/gpt-4o-mini",
		Usage:   Usage{PromptTokens: 1000, CompletionTokens: 500, TotalTokens: 1500},
	}}
	tracker := NewCostTracker(inner)

	if _, err := tracker.Chat(context.Background(), config.TierDefault, nil); err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if _, err := tracker.ChatJSON(context.Background(), config.TierLight, nil); err != nil {
		t.Fatalf("ChatJSON: %v", err)
	}

	total := tracker.Total()
	if total.TotalTokens != 3000 {
		t.Fatalf("expected 3000 accumulated tokens, got %d", total.TotalTokens)
	}
	if total.TotalCost <= 0 {
		t.Fatalf("expected positive accumulated cost, got %f", total.TotalCost)
	}
}

func TestCostTrackerIgnoresFailedCalls(t *testing.T) {
	inner := &fakeTrackedChat{err: errors.New("boom")}
	tracker := NewCostTracker(inner)

	if _, err := tracker.Chat(context.Background(), config.TierDefault, nil); err == nil {
		t.Fatal("expected error to propagate")
	}
	if total := tracker.Total(); total.TotalTokens != 0 {
		t.Fatalf("expected no accumulation on error, got %+v", total)
	}
}
