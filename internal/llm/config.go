// Package llm provides the model client abstraction used to answer chat
// questions. Gemini is the default provider; Anthropic is the alternative.
package llm

import "fmt"

// Provider represents an LLM provider
type Provider string

// Provider constants define supported LLM providers
const (
	// ProviderGemini is the Google Gemini provider
	ProviderGemini Provider = "gemini"
	// ProviderAnthropic is the Anthropic/Claude provider
	ProviderAnthropic Provider = "anthropic"
)

// Default generation settings. Answers should be reproducible, so sampling
// is pinned to the most likely token.
const (
	DefaultGeminiModel     = "gemini-2.5-flash"
	DefaultAnthropicModel  = "claude-haiku-4-5-20251001"
	DefaultMaxOutputTokens = 2000
)

// Config holds the model configuration for the application
type Config struct {
	Provider        Provider `mapstructure:"provider"`
	Model           string   `mapstructure:"model"`
	APIKey          string   `mapstructure:"api_key"`
	Temperature     float32  `mapstructure:"temperature"`
	TopK            int32    `mapstructure:"top_k"`
	TopP            float32  `mapstructure:"top_p"`
	MaxOutputTokens int32    `mapstructure:"max_output_tokens"`
	// BaseURL overrides the provider endpoint; used by tests and proxies.
	BaseURL string `mapstructure:"base_url"`
}

// DefaultConfig returns the default configuration (currently Gemini)
func DefaultConfig() *Config {
	return &Config{
		Provider:        ProviderGemini,
		Model:           DefaultGeminiModel,
		Temperature:     0,
		TopK:            1,
		TopP:            1,
		MaxOutputTokens: DefaultMaxOutputTokens,
	}
}

// ModelName returns the configured model or the provider default.
func (c *Config) ModelName() string {
	if c.Model != "" {
		return c.Model
	}
	if c.Provider == ProviderAnthropic {
		return DefaultAnthropicModel
	}
	return DefaultGeminiModel
}

// Validate checks provider and sampling values.
func (c *Config) Validate() error {
	switch c.Provider {
	case ProviderGemini, ProviderAnthropic, "":
	default:
		return fmt.Errorf("unknown llm provider %q", c.Provider)
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("llm temperature must be in [0, 2], got %v", c.Temperature)
	}
	if c.TopP < 0 || c.TopP > 1 {
		return fmt.Errorf("llm top_p must be in [0, 1], got %v", c.TopP)
	}
	if c.MaxOutputTokens <= 0 {
		return fmt.Errorf("llm max_output_tokens must be positive")
	}
	return nil
}
