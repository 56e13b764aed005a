// Package config loads run configuration for the research orchestrator from
// the environment and an optional YAML overlay.
package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ModelTier names one of the three LLM capability tiers the orchestrator
// reads from config, per the model-capability mapping strategy.
type ModelTier string

const (
	TierReasoning ModelTier = "reasoning"
	TierDefault   ModelTier = "default"
	TierLight     ModelTier = "light"
)

// Config holds all configuration for one orchestrator run.
type Config struct {
	// API access
	LLMAPIKey    string `yaml:"-"`
	LLMBaseURL   string `yaml:"llm_base_url"`
	SearchAPIKey string `yaml:"-"`
	SearchURL    string `yaml:"search_url"`
	ConvertURL   string `yaml:"convert_url"`
	EmbeddingURL string `yaml:"embedding_url"`
	EmbeddingKey string `yaml:"-"`

	// Model tiers: capability name -> concrete model id
	Models map[ModelTier]string `yaml:"models"`

	// Research loop budget
	MaxDepth          int           `yaml:"max_depth"`
	MaxTokens         int           `yaml:"max_tokens"`
	Timeout           time.Duration `yaml:"timeout"`
	ConcurrencyLimit  int           `yaml:"concurrency_limit"`
	ExtractTopKChunks int           `yaml:"extract_top_k_chunks"`

	// Timeouts
	ScrapeTimeout  time.Duration `yaml:"scrape_timeout"`
	RequestTimeout time.Duration `yaml:"request_timeout"`

	Verbose bool `yaml:"-"`
}

// Default returns a config populated with the spec's documented defaults.
func Default() *Config {
	return &Config{
		LLMBaseURL: "https://openrouter.ai/api/v1",
		Models: map[ModelTier]string{
			TierReasoning: "openai/gpt-4o",
			TierDefault:   "openai/gpt-4o-mini",
			TierLight:     "openai/gpt-4o-mini",
		},
		MaxDepth:          7,
		MaxTokens:         25000,
		Timeout:           270 * time.Second,
		ConcurrencyLimit:  3,
		ExtractTopKChunks: 5,
		ScrapeTimeout:     30 * time.Second,
		RequestTimeout:    60 * time.Second,
	}
}

// Load builds a Config from environment variables, optionally overlaid with
// a YAML run-configuration file if yamlPath is non-empty and exists.
func Load(yamlPath string) (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	cfg.LLMAPIKey = os.Getenv("OPENROUTER_API_KEY")
	cfg.SearchAPIKey = os.Getenv("SEARCH_API_KEY")
	cfg.EmbeddingKey = os.Getenv("EMBEDDING_API_KEY")
	cfg.Verbose = os.Getenv("RESEARCH_VERBOSE") == "true"

	if url := os.Getenv("SEARCH_URL"); url != "" {
		cfg.SearchURL = url
	}
	if url := os.Getenv("CONVERT_URL"); url != "" {
		cfg.ConvertURL = url
	}
	if url := os.Getenv("EMBEDDING_URL"); url != "" {
		cfg.EmbeddingURL = url
	}
	if url := os.Getenv("LLM_BASE_URL"); url != "" {
		cfg.LLMBaseURL = url
	}

	if yamlPath == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(yamlPath)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, err
	}

	var overlay Config
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		return nil, err
	}
	applyOverlay(cfg, &overlay)
	return cfg, nil
}

// ModelFor returns the concrete model id configured for a tier, falling back
// to the default tier's model if the tier is unmapped.
func (c *Config) ModelFor(tier ModelTier) string {
	if m, ok := c.Models[tier]; ok && m != "" {
		return m
	}
	return c.Models[TierDefault]
}

func applyOverlay(base, overlay *Config) {
	if overlay.LLMBaseURL != "" {
		base.LLMBaseURL = overlay.LLMBaseURL
	}
	if overlay.SearchURL != "" {
		base.SearchURL = overlay.SearchURL
	}
	if overlay.ConvertURL != "" {
		base.ConvertURL = overlay.ConvertURL
	}
	if overlay.EmbeddingURL != "" {
		base.EmbeddingURL = overlay.EmbeddingURL
	}
	if len(overlay.Models) > 0 {
		for tier, model := range overlay.Models {
			base.Models[tier] = model
		}
	}
	if overlay.MaxDepth > 0 {
		base.MaxDepth = overlay.MaxDepth
	}
	if overlay.MaxTokens > 0 {
		base.MaxTokens = overlay.MaxTokens
	}
	if overlay.Timeout > 0 {
		base.Timeout = overlay.Timeout
	}
	if overlay.ConcurrencyLimit > 0 {
		base.ConcurrencyLimit = overlay.ConcurrencyLimit
	}
	if overlay.ExtractTopKChunks > 0 {
		base.ExtractTopKChunks = overlay.ExtractTopKChunks
	}
	if overlay.ScrapeTimeout > 0 {
		base.ScrapeTimeout = overlay.ScrapeTimeout
	}
	if overlay.RequestTimeout > 0 {
		base.RequestTimeout = overlay.RequestTimeout
	}
}
