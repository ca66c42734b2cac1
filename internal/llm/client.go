package llm

import (
	"context"
	"fmt"
)

// Client is an abstraction over LLM providers
type Client interface {
	// Generate sends a single-turn prompt and returns the reply text.
	Generate(ctx context.Context, prompt string) (*Completion, error)
	// Provider identifies the backend
	Provider() Provider
	// Model returns the model name in use
	Model() string
	// Close releases any resources held by the client
	Close() error
}

// Completion is a successful model reply.
type Completion struct {
	Text         string
	FinishReason string
	// Truncated is set when the reply hit the output token limit.
	Truncated bool
}

// NewClient creates a new LLM client based on configuration. A missing API
// key yields ConfigurationMissingError before any network activity.
func NewClient(ctx context.Context, config *Config) (Client, error) {
	if config == nil {
		config = DefaultConfig()
	}

	switch config.Provider {
	case ProviderGemini, "":
		client, err := NewGeminiClient(ctx, config)
		if err != nil {
			return nil, err
		}
		return client, nil
	case ProviderAnthropic:
		client, err := NewAnthropicClient(config)
		if err != nil {
			return nil, err
		}
		return client, nil
	default:
		return nil, fmt.Errorf("unsupported llm provider %q", config.Provider)
	}
}
