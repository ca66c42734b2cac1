package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/googleapis/gax-go/v2/apierror"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
)

// GeminiClient implements Client for Google Gemini
type GeminiClient struct {
	client *genai.Client
	config *Config
}

// NewGeminiClient creates a new Gemini client
func NewGeminiClient(ctx context.Context, config *Config) (*GeminiClient, error) {
	if config.APIKey == "" {
		return nil, &ConfigurationMissingError{Setting: "GEMINI_API_KEY"}
	}

	opts := []option.ClientOption{option.WithAPIKey(config.APIKey)}
	if config.BaseURL != "" {
		opts = append(opts, option.WithEndpoint(config.BaseURL))
	}

	client, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiClient{
		client: client,
		config: config,
	}, nil
}

// Generate runs the prompt with deterministic sampling and the standard
// safety thresholds.
func (c *GeminiClient) Generate(ctx context.Context, prompt string) (*Completion, error) {
	model := c.client.GenerativeModel(c.config.ModelName())
	model.SetTemperature(c.config.Temperature)
	model.SetTopK(c.config.TopK)
	model.SetTopP(c.config.TopP)
	model.SetMaxOutputTokens(c.config.MaxOutputTokens)
	model.SafetySettings = safetySettings()

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return nil, classifyGeminiError(err)
	}

	return completionFromResponse(resp)
}

// Provider returns ProviderGemini.
func (c *GeminiClient) Provider() Provider {
	return ProviderGemini
}

// Model returns the model name
func (c *GeminiClient) Model() string {
	return c.config.ModelName()
}

// Close releases resources held by the client
func (c *GeminiClient) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

func safetySettings() []*genai.SafetySetting {
	categories := []genai.HarmCategory{
		genai.HarmCategoryHarassment,
		genai.HarmCategoryHateSpeech,
		genai.HarmCategorySexuallyExplicit,
		genai.HarmCategoryDangerousContent,
	}
	settings := make([]*genai.SafetySetting, len(categories))
	for i, cat := range categories {
		settings[i] = &genai.SafetySetting{Category: cat, Threshold: genai.HarmBlockMediumAndAbove}
	}
	return settings
}

// completionFromResponse extracts text from Gemini API response
func completionFromResponse(resp *genai.GenerateContentResponse) (*Completion, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		if resp != nil && resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != genai.BlockReasonUnspecified {
			return nil, &RefusalError{Provider: ProviderGemini, Reason: fmt.Sprint(resp.PromptFeedback.BlockReason)}
		}
		return nil, &EmptyReplyError{Provider: ProviderGemini}
	}

	candidate := resp.Candidates[0]
	switch candidate.FinishReason {
	case genai.FinishReasonSafety, genai.FinishReasonRecitation:
		return nil, &RefusalError{Provider: ProviderGemini, Reason: fmt.Sprint(candidate.FinishReason)}
	}

	var parts []string
	if candidate.Content != nil {
		for _, part := range candidate.Content.Parts {
			if text, ok := part.(genai.Text); ok {
				parts = append(parts, string(text))
			}
		}
	}

	text := StripCodeFence(strings.Join(parts, ""))
	if text == "" {
		return nil, &EmptyReplyError{Provider: ProviderGemini}
	}

	return &Completion{
		Text:         text,
		FinishReason: fmt.Sprint(candidate.FinishReason),
		Truncated:    candidate.FinishReason == genai.FinishReasonMaxTokens,
	}, nil
}

func classifyGeminiError(err error) error {
	var blocked *genai.BlockedError
	if errors.As(err, &blocked) {
		reason := "blocked"
		switch {
		case blocked.PromptFeedback != nil:
			reason = fmt.Sprint(blocked.PromptFeedback.BlockReason)
		case blocked.Candidate != nil:
			reason = fmt.Sprint(blocked.Candidate.FinishReason)
		}
		return &RefusalError{Provider: ProviderGemini, Reason: reason}
	}

	var apiErr *apierror.APIError
	if errors.As(err, &apiErr) {
		return &UpstreamError{Provider: ProviderGemini, StatusCode: statusFromAPIError(apiErr), Cause: err}
	}
	return &UpstreamError{Provider: ProviderGemini, Cause: err}
}

// statusFromAPIError prefers the HTTP status and falls back to the gRPC code.
func statusFromAPIError(apiErr *apierror.APIError) int {
	if code := apiErr.HTTPCode(); code > 0 {
		return code
	}
	switch apiErr.GRPCStatus().Code() {
	case codes.InvalidArgument, codes.FailedPrecondition:
		return http.StatusBadRequest
	case codes.Unauthenticated:
		return http.StatusUnauthorized
	case codes.PermissionDenied:
		return http.StatusForbidden
	case codes.NotFound:
		return http.StatusNotFound
	case codes.ResourceExhausted:
		return http.StatusTooManyRequests
	case codes.Unavailable:
		return http.StatusServiceUnavailable
	case codes.DeadlineExceeded:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
