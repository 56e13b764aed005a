// Package llm wraps an OpenAI-compatible chat API behind a small interface so
// the Planner, Insight Generator, Gap Analyzer and Report Generator can each
// address a model tier (reasoning/default/light) without knowing the
// concrete provider.
package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	openai "github.com/sashabaranov/go-openai"

	"go-research/internal/config"
)

// Message is one turn in a chat request.
type Message struct {
	Role    string
	Content string
}

// Usage reports token accounting for one call, used to build a CostBreakdown.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Result is the outcome of a single chat call.
type Result struct {
	Content string
	Model   string
	Usage   Usage
}

// ChatClient is the interface every research component talks to. It is
// satisfied by Client and by hand-rolled test doubles.
type ChatClient interface {
	// Chat issues a free-form completion against the given tier.
	Chat(ctx context.Context, tier config.ModelTier, messages []Message) (*Result, error)
	// ChatJSON issues a completion with JSON-object output enforced by the
	// provider, for callers that validate the result against a schema
	// themselves (the providers in this package do not support fully typed
	// JSON-schema enforcement uniformly, so schema shape is carried in the
	// prompt and validated by the caller).
	ChatJSON(ctx context.Context, tier config.ModelTier, messages []Message) (*Result, error)
}

// Client implements ChatClient over any OpenAI-compatible endpoint.
type Client struct {
	inner   *openai.Client
	cfg     *config.Config
	timeout time.Duration
}

// NewClient builds a Client pointed at cfg.LLMBaseURL using cfg.LLMAPIKey.
func NewClient(cfg *config.Config) *Client {
	clientCfg := openai.DefaultConfig(cfg.LLMAPIKey)
	if cfg.LLMBaseURL != "" {
		clientCfg.BaseURL = cfg.LLMBaseURL
	}
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		inner:   openai.NewClientWithConfig(clientCfg),
		cfg:     cfg,
		timeout: timeout,
	}
}

func toOpenAIMessages(messages []Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, len(messages))
	for i, m := range messages {
		out[i] = openai.ChatCompletionMessage{Role: m.Role, Content: m.Content}
	}
	return out
}

func (c *Client) complete(ctx context.Context, tier config.ModelTier, messages []Message, jsonMode bool) (*Result, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	model := c.cfg.ModelFor(tier)
	req := openai.ChatCompletionRequest{
		Model:       model,
		Messages:    toOpenAIMessages(messages),
		Temperature: 0.7,
		MaxTokens:   4096,
	}
	if jsonMode {
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	log.Debug().Str("tier", string(tier)).Str("model", model).Bool("json_mode", jsonMode).Msg("llm_request")

	resp, err := c.inner.CreateChatCompletion(ctx, req)
	if err != nil {
		log.Error().Err(err).Str("tier", string(tier)).Str("model", model).Msg("llm_request_failed")
		return nil, fmt.Errorf("llm chat completion (%s/%s): %w", tier, model, err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("llm chat completion (%s/%s): no choices returned", tier, model)
	}

	log.Debug().Str("tier", string(tier)).Str("model", model).Int("total_tokens", resp.Usage.TotalTokens).Msg("llm_response")

	return &Result{
		Content: resp.Choices[0].Message.Content,
		Model:   resp.Model,
		Usage: Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}, nil
}

// Chat issues a free-form completion.
func (c *Client) Chat(ctx context.Context, tier config.ModelTier, messages []Message) (*Result, error) {
	return c.complete(ctx, tier, messages, false)
}

// ChatJSON issues a completion with the provider's JSON-object mode enabled.
// Callers are still responsible for validating shape against their schema
// and applying a fallback on mismatch, per the spec's "never trust free-form
// LLM text beyond schema" rule.
func (c *Client) ChatJSON(ctx context.Context, tier config.ModelTier, messages []Message) (*Result, error) {
	return c.complete(ctx, tier, messages, true)
}

var _ ChatClient = (*Client)(nil)
