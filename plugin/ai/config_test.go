package ai

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hrygo/cogniflow/internal/profile"
)

func TestNewConfigFromProfile(t *testing.T) {
	prof := &profile.Profile{
		AIEnabled:     true,
		AIAPIKey:      "key",
		AIBaseURL:     "https://open.bigmodel.cn/api/paas/v4",
		AILLMModel:    "glm-4-flash",
		AITemperature: 0.3,
		SearchAPIKey:  "key",
		SearchURL:     "https://open.bigmodel.cn/api/paas/v4/web_search",
		SearchEngine:  "search_std",
		SearchCount:   5,
		SearchQPS:     2,
	}

	cfg := NewConfigFromProfile(prof)
	assert.True(t, cfg.Enabled)
	assert.Equal(t, "glm-4-flash", cfg.LLM.Model)
	assert.Equal(t, 2048, cfg.LLM.MaxTokens)
	assert.InDelta(t, 0.3, cfg.LLM.Temperature, 1e-6)
	assert.True(t, cfg.Search.Enabled)
	assert.Equal(t, "search_std", cfg.Search.Engine)
	assert.NoError(t, cfg.Validate())
}

func TestConfigValidate(t *testing.T) {
	disabled := NewConfigFromProfile(&profile.Profile{})
	assert.False(t, disabled.Enabled)
	assert.NoError(t, disabled.Validate())

	cfg := &Config{Enabled: true, LLM: LLMConfig{APIKey: "k"}}
	assert.Error(t, cfg.Validate(), "model required")

	cfg.LLM.Model = "glm-4-flash"
	cfg.Search = SearchConfig{Enabled: true}
	assert.Error(t, cfg.Validate(), "search url required")

	cfg.Search.URL = "http://search"
	cfg.Search.Count = 99
	assert.Error(t, cfg.Validate())

	cfg.Search.Count = 5
	assert.NoError(t, cfg.Validate())
}
