// Package types provides the request and response shapes shared by the chat
// server and its clients.
package types

import (
	"github.com/jonathan/salary-insights/internal/dataset"
	"github.com/jonathan/salary-insights/internal/format"
	"github.com/jonathan/salary-insights/internal/strategy"
)

// MaxMessageLength bounds a single chat question.
const MaxMessageLength = 4000

// ChatRequest is the body of POST /api/chat.
type ChatRequest struct {
	Message string      `json:"message" validate:"required,max=4000"`
	Context ChatContext `json:"context"`
}

// ChatContext carries optional client state. Only the dashboard filters are
// honoured; records always come from the server snapshot.
type ChatContext struct {
	Filters dataset.Filter `json:"filters"`
}

// ChatResponse is the successful reply to a chat request.
type ChatResponse struct {
	Response  string            `json:"response"`
	Formatted *format.Formatted `json:"formatted,omitempty"`
	Strategy  *strategy.Result  `json:"strategy,omitempty"`
	Truncated bool              `json:"truncated,omitempty"`
}

// ErrorResponse is the body of every non-2xx API response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// ReloadResponse reports the outcome of a dataset reload.
type ReloadResponse struct {
	Records  int    `json:"records"`
	LoadedAt string `json:"loaded_at"`
}
