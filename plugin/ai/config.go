package ai

import (
	"errors"

	"github.com/AlessandroMondin/Journey/internal/profile"
)

// Config represents AI configuration.
type Config struct {
	Enabled bool

	// MergeLLM folds conversations into the memory document.
	MergeLLM LLMConfig
	// LightLLM handles mood, summaries and memory queries.
	LightLLM LLMConfig
	// DocumentLLM rewrites the retrieval memory document.
	DocumentLLM LLMConfig

	Embedding EmbeddingConfig
}

// EmbeddingConfig represents vector embedding configuration.
type EmbeddingConfig struct {
	Model      string // text-embedding-3-small
	Dimensions int    // 1536
	APIKey     string
	BaseURL    string
}

// LLMConfig represents LLM configuration.
type LLMConfig struct {
	Model       string
	APIKey      string
	BaseURL     string
	MaxTokens   int     // 0 leaves the provider default
	Temperature float32 // 0 leaves the provider default
}

// NewConfigFromProfile creates AI config from profile.
func NewConfigFromProfile(p *profile.Profile) *Config {
	cfg := &Config{
		Enabled: p.IsAIEnabled(),
	}

	base := LLMConfig{
		APIKey:  p.OpenAIAPIKey,
		BaseURL: p.OpenAIBaseURL,
	}

	cfg.MergeLLM = base
	cfg.MergeLLM.Model = p.OpenAIMergeModel

	cfg.LightLLM = base
	cfg.LightLLM.Model = p.OpenAILightModel

	cfg.DocumentLLM = base
	cfg.DocumentLLM.Model = p.OpenAILightModel
	cfg.DocumentLLM.MaxTokens = 1000
	cfg.DocumentLLM.Temperature = 0.3

	cfg.Embedding = EmbeddingConfig{
		Model:      p.OpenAIEmbeddingModel,
		Dimensions: p.EmbeddingDimensions,
		APIKey:     p.OpenAIAPIKey,
		BaseURL:    p.OpenAIBaseURL,
	}

	return cfg
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	for _, llm := range []LLMConfig{c.MergeLLM, c.LightLLM, c.DocumentLLM} {
		if llm.Model == "" {
			return errors.New("LLM model is required")
		}
		if llm.APIKey == "" {
			return errors.New("LLM API key is required")
		}
	}
	if c.Embedding.Model == "" {
		return errors.New("embedding model is required")
	}
	return nil
}
