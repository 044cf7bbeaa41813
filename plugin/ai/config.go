package ai

import (
	"errors"

	"github.com/hrygo/cogniflow/internal/profile"
)

// Config represents AI configuration.
type Config struct {
	Enabled bool

	LLM    LLMConfig
	Search SearchConfig
}

// LLMConfig represents LLM configuration.
type LLMConfig struct {
	Model       string // glm-4-flash
	APIKey      string
	BaseURL     string
	MaxTokens   int     // default: 2048
	Temperature float32 // default: 0.3
}

// SearchConfig represents web search gateway configuration.
type SearchConfig struct {
	Enabled     bool
	APIKey      string
	URL         string
	Engine      string  // search_std
	Count       int     // default: 5
	QPS         float64 // default: 2
	Recency     string  // noLimit, oneDay, oneWeek, oneMonth, oneYear
	ContentSize string  // medium, high
}

// NewConfigFromProfile creates AI config from profile.
func NewConfigFromProfile(p *profile.Profile) *Config {
	cfg := &Config{
		Enabled: p.IsAIEnabled(),
	}

	cfg.LLM = LLMConfig{
		Model:       p.AILLMModel,
		APIKey:      p.AIAPIKey,
		BaseURL:     p.AIBaseURL,
		MaxTokens:   2048,
		Temperature: p.AITemperature,
	}

	cfg.Search = SearchConfig{
		Enabled:     p.IsSearchEnabled(),
		APIKey:      p.SearchAPIKey,
		URL:         p.SearchURL,
		Engine:      p.SearchEngine,
		Count:       p.SearchCount,
		QPS:         p.SearchQPS,
		Recency:     p.SearchRecency,
		ContentSize: p.SearchContent,
	}

	return cfg
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}

	if c.LLM.APIKey == "" {
		return errors.New("LLM API key is required")
	}

	if c.LLM.Model == "" {
		return errors.New("LLM model is required")
	}

	if c.Search.Enabled && c.Search.URL == "" {
		return errors.New("search URL is required")
	}

	if c.Search.Count < 0 || c.Search.Count > 50 {
		return errors.New("search count must be between 0 and 50")
	}

	return nil
}
