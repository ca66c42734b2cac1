// Package chatclient talks to the chat endpoint and keeps the conversation
// log for interactive front ends.
package chatclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/jonathan/salary-insights/internal/types"
)

// DefaultTimeout is the default chat request timeout. Model calls dominate it.
const DefaultTimeout = 90 * time.Second

// ChatPath is the chat endpoint path on the server.
const ChatPath = "/api/chat"

// HTTPError is a non-2xx response from the chat endpoint.
type HTTPError struct {
	StatusCode int
	Message    string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("API error: %d - %s", e.StatusCode, e.Message)
}

// Options configures the client.
type Options struct {
	Timeout    time.Duration
	HTTPClient *http.Client
}

// Client sends questions to a running server.
type Client struct {
	endpoint string
	http     *http.Client
}

// New creates a client for the server at baseURL.
func New(baseURL string, opts *Options) *Client {
	if opts == nil {
		opts = &Options{}
	}
	hc := opts.HTTPClient
	if hc == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		hc = &http.Client{Timeout: timeout}
	}
	return &Client{
		endpoint: strings.TrimRight(baseURL, "/") + ChatPath,
		http:     hc,
	}
}

// Chat posts one question and decodes the reply.
func (c *Client) Chat(ctx context.Context, req types.ChatRequest) (*types.ChatResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, eris.Wrap(err, "chatclient: encode request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, eris.Wrap(err, "chatclient: create request")
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, eris.Wrap(err, "chatclient: send request")
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, eris.Wrap(err, "chatclient: read response")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &HTTPError{StatusCode: resp.StatusCode, Message: errorText(resp.StatusCode, raw)}
	}

	var out types.ChatResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, eris.Wrap(err, "chatclient: decode response")
	}
	return &out, nil
}

// errorText prefers the server's {error} message over the status text.
func errorText(status int, raw []byte) string {
	var e types.ErrorResponse
	if json.Unmarshal(raw, &e) == nil && e.Error != "" {
		return e.Error
	}
	return http.StatusText(status)
}
