// Package assistant answers natural-language questions about the dataset:
// it picks the records to send, assembles the prompt, calls the model and
// shapes the reply for display.
package assistant

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/jonathan/salary-insights/internal/dataset"
	"github.com/jonathan/salary-insights/internal/format"
	"github.com/jonathan/salary-insights/internal/llm"
	"github.com/jonathan/salary-insights/internal/metrics"
	"github.com/jonathan/salary-insights/internal/strategy"
)

// User-facing replies for model outcomes that are not hard failures.
const (
	RephraseReply = "I can't answer that as asked. Please rephrase your question about the compensation data."
	EmptyReply    = "Sorry, I could not generate a response."
)

// Answer is a model reply together with how it was produced.
type Answer struct {
	Text      string           `json:"response"`
	Formatted format.Formatted `json:"formatted"`
	Strategy  strategy.Result  `json:"strategy"`
	Truncated bool             `json:"truncated,omitempty"`
}

// Assistant answers questions with a model client. A nil client means the
// model is not configured.
type Assistant struct {
	client llm.Client
}

// New creates an Assistant.
func New(client llm.Client) *Assistant {
	return &Assistant{client: client}
}

// Configured reports whether a model client is available.
func (a *Assistant) Configured() bool {
	return a.client != nil
}

// Ask answers one question against the given records. Without a client it
// fails with ConfigurationMissingError and makes no network call.
func (a *Assistant) Ask(ctx context.Context, question string, records []dataset.Record) (*Answer, error) {
	if a.client == nil {
		return nil, &llm.ConfigurationMissingError{Setting: "llm.api_key"}
	}

	sel := strategy.Select(question, records)
	metrics.StrategySelections.WithLabelValues(string(sel.Class)).Inc()

	prompt, err := BuildPrompt(question, sel, len(records))
	if err != nil {
		return nil, err
	}

	zap.L().Debug("asking model",
		zap.String("provider", string(a.client.Provider())),
		zap.String("model", a.client.Model()),
		zap.String("strategy", sel.Rationale),
		zap.Int("records", len(sel.Records)),
		zap.Int("prompt_bytes", len(prompt)),
	)

	start := time.Now()
	completion, err := a.client.Generate(ctx, prompt)
	metrics.ModelRequestDuration.
		WithLabelValues(string(a.client.Provider()), outcome(err)).
		Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, err
	}
	if completion.Truncated {
		zap.L().Warn("model reply hit the output token limit", zap.String("model", a.client.Model()))
	}

	return &Answer{
		Text:      completion.Text,
		Formatted: format.Format(completion.Text),
		Strategy:  sel,
		Truncated: completion.Truncated,
	}, nil
}

// FallbackReply maps soft model outcomes to the text shown instead of an
// answer. It reports false for errors that must surface as failures.
func FallbackReply(err error) (string, bool) {
	var refusal *llm.RefusalError
	if errors.As(err, &refusal) {
		return RephraseReply, true
	}
	var empty *llm.EmptyReplyError
	if errors.As(err, &empty) {
		return EmptyReply, true
	}
	return "", false
}

func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	var refusal *llm.RefusalError
	var empty *llm.EmptyReplyError
	switch {
	case errors.As(err, &refusal):
		return "refused"
	case errors.As(err, &empty):
		return "empty"
	default:
		return "error"
	}
}
