package llm

import (
	"context"
	"sync"

	"go-research/internal/config"
)

// Model configurations - centralized for easy changes
const (
	DefaultModel = "alibaba/tongyi-deepresearch-30b-a3b"
)

// ModelConfig holds model-specific settings
type ModelConfig struct {
	ID          string
	MaxTokens   int
	Temperature float64
}

// DefaultModelConfig returns the default model configuration
func DefaultModelConfig() ModelConfig {
	return ModelConfig{
		ID:          DefaultModel,
		MaxTokens:   8192,
		Temperature: 0.7,
	}
}

// ModelPricing holds per-token pricing (cost per 1M tokens in USD)
type ModelPricing struct {
	InputPer1M  float64
	OutputPer1M float64
}

// modelPricing maps model IDs to their pricing
// Prices from OpenRouter (as of 2024) - update as needed
var modelPricing = map[string]ModelPricing{
	"alibaba/tongyi-deepresearch-30b-a3b": {InputPer1M: 0.50, OutputPer1M: 0.50},
	"openai/gpt-4o":                       {InputPer1M: 2.50, OutputPer1M: 10.00},
	"openai/gpt-4o-mini":                  {InputPer1M: 0.15, OutputPer1M: 0.60},
	"anthropic/claude-3.5-sonnet":         {InputPer1M: 3.00, OutputPer1M: 15.00},
	"anthropic/claude-3-haiku":            {InputPer1M: 0.25, OutputPer1M: 1.25},
	"google/gemini-pro-1.5":               {InputPer1M: 1.25, OutputPer1M: 5.00},
}

// defaultPricing used when model not found in pricing table
var defaultPricing = ModelPricing{InputPer1M: 1.00, OutputPer1M: 2.00}

// GetPricing returns pricing for a model
func GetPricing(modelID string) ModelPricing {
	if pricing, ok := modelPricing[modelID]; ok {
		return pricing
	}
	return defaultPricing
}

// CalculateCost computes cost from token counts
func CalculateCost(modelID string, inputTokens, outputTokens int) (inputCost, outputCost, totalCost float64) {
	pricing := GetPricing(modelID)
	inputCost = float64(inputTokens) * pricing.InputPer1M / 1_000_000
	outputCost = float64(outputTokens) * pricing.OutputPer1M / 1_000_000
	totalCost = inputCost + outputCost
	return
}

// CostBreakdown tracks token usage and cost across one or more LLM calls.
type CostBreakdown struct {
	InputTokens  int
	OutputTokens int
	TotalTokens  int
	InputCost    float64
	OutputCost   float64
	TotalCost    float64
}

// Add accumulates another cost breakdown into this one.
func (c *CostBreakdown) Add(other CostBreakdown) {
	c.InputTokens += other.InputTokens
	c.OutputTokens += other.OutputTokens
	c.TotalTokens += other.TotalTokens
	c.InputCost += other.InputCost
	c.OutputCost += other.OutputCost
	c.TotalCost += other.TotalCost
}

// NewCostBreakdown constructs a cost breakdown from a model id and raw token
// counts, as reported in a Usage value.
func NewCostBreakdown(model string, inputTokens, outputTokens, totalTokens int) CostBreakdown {
	if totalTokens == 0 {
		totalTokens = inputTokens + outputTokens
	}
	inputCost, outputCost, totalCost := CalculateCost(model, inputTokens, outputTokens)
	return CostBreakdown{
		InputTokens:  inputTokens,
		OutputTokens: outputTokens,
		TotalTokens:  totalTokens,
		InputCost:    inputCost,
		OutputCost:   outputCost,
		TotalCost:    totalCost,
	}
}

// FromUsage constructs a CostBreakdown from a Usage value returned by a Result.
func FromUsage(model string, u Usage) CostBreakdown {
	return NewCostBreakdown(model, u.PromptTokens, u.CompletionTokens, u.TotalTokens)
}

// CostTracker wraps a ChatClient and accumulates a running CostBreakdown
// across every Chat/ChatJSON call it makes, so the orchestrator can report
// total token spend on ResearchResult without every caller threading Usage
// back out by hand.
type CostTracker struct {
	inner ChatClient

	mu    sync.Mutex
	total CostBreakdown
}

// NewCostTracker wraps inner so every call through the returned ChatClient
// is metered.
func NewCostTracker(inner ChatClient) *CostTracker {
	return &CostTracker{inner: inner}
}

func (c *CostTracker) Chat(ctx context.Context, tier config.ModelTier, messages []Message) (*Result, error) {
	return c.record(c.inner.Chat(ctx, tier, messages))
}

func (c *CostTracker) ChatJSON(ctx context.Context, tier config.ModelTier, messages []Message) (*Result, error) {
	return c.record(c.inner.ChatJSON(ctx, tier, messages))
}

func (c *CostTracker) record(res *Result, err error) (*Result, error) {
	if err != nil || res == nil {
		return res, err
	}
	c.mu.Lock()
	c.total.Add(FromUsage(res.Model, res.Usage))
	c.mu.Unlock()
	return res, err
}

// Total returns a snapshot of the accumulated cost breakdown.
func (c *CostTracker) Total() CostBreakdown {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.total
}
