package llm

import (
	"context"
	"errors"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	anthropicopt "github.com/anthropics/anthropic-sdk-go/option"
)

// AnthropicClient implements Client for Anthropic Claude models.
type AnthropicClient struct {
	client anthropic.Client
	config *Config
}

// NewAnthropicClient creates a client. The SDK's automatic retries are
// disabled; failures surface to the caller immediately.
func NewAnthropicClient(config *Config) (*AnthropicClient, error) {
	if config.APIKey == "" {
		return nil, &ConfigurationMissingError{Setting: "ANTHROPIC_API_KEY"}
	}

	opts := []anthropicopt.RequestOption{
		anthropicopt.WithAPIKey(config.APIKey),
		anthropicopt.WithMaxRetries(0),
	}
	if config.BaseURL != "" {
		opts = append(opts, anthropicopt.WithBaseURL(config.BaseURL))
	}

	return &AnthropicClient{
		client: anthropic.NewClient(opts...),
		config: config,
	}, nil
}

// Generate sends the prompt as a single user message.
func (c *AnthropicClient) Generate(ctx context.Context, prompt string) (*Completion, error) {
	message, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       anthropic.Model(c.config.ModelName()),
		MaxTokens:   int64(c.config.MaxOutputTokens),
		Temperature: anthropic.Float(float64(c.config.Temperature)),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		var apiErr *anthropic.Error
		if errors.As(err, &apiErr) {
			return nil, &UpstreamError{Provider: ProviderAnthropic, StatusCode: apiErr.StatusCode, Cause: err}
		}
		return nil, &UpstreamError{Provider: ProviderAnthropic, Cause: err}
	}

	stopReason := string(message.StopReason)
	if stopReason == "refusal" {
		return nil, &RefusalError{Provider: ProviderAnthropic, Reason: stopReason}
	}

	var sb strings.Builder
	for _, block := range message.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}

	text := StripCodeFence(sb.String())
	if text == "" {
		return nil, &EmptyReplyError{Provider: ProviderAnthropic}
	}

	return &Completion{
		Text:         text,
		FinishReason: stopReason,
		Truncated:    stopReason == "max_tokens",
	}, nil
}

// Provider returns ProviderAnthropic.
func (c *AnthropicClient) Provider() Provider {
	return ProviderAnthropic
}

// Model returns the model name
func (c *AnthropicClient) Model() string {
	return c.config.ModelName()
}

// Close is a no-op; the SDK holds no long-lived resources.
func (c *AnthropicClient) Close() error {
	return nil
}
