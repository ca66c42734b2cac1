package chatclient

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/salary-insights/internal/dataset"
	"github.com/jonathan/salary-insights/internal/format"
	"github.com/jonathan/salary-insights/internal/types"
)

// ErrStaleReply is returned when a newer question was sent while this one
// was in flight. The stale reply is discarded.
var ErrStaleReply = errors.New("chatclient: reply superseded by a newer question")

// ErrEmptyMessage rejects blank questions before any request is made.
var ErrEmptyMessage = errors.New("chatclient: message is empty")

// Asker is the chat transport.
type Asker interface {
	Chat(ctx context.Context, req types.ChatRequest) (*types.ChatResponse, error)
}

// Role identifies the author of a message.
type Role string

// Message roles.
const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one entry of the conversation log.
type Message struct {
	ID        uuid.UUID
	Role      Role
	Text      string
	Formatted *format.Formatted
	Timestamp time.Time
	// Failed marks assistant messages that report an error.
	Failed bool
}

// Conversation is a chat session. Every question gets a sequence number and
// only the reply to the latest question is appended to the log.
type Conversation struct {
	client Asker
	now    func() time.Time

	mu       sync.Mutex
	seq      uint64
	started  bool
	filters  dataset.Filter
	messages []Message
}

// NewConversation starts a conversation with the welcome message.
func NewConversation(client Asker) *Conversation {
	c := &Conversation{client: client, now: time.Now}
	c.messages = append(c.messages, c.newMessage(RoleAssistant, WelcomeMessage))
	return c
}

// SetFilters sets the dashboard filters sent with later questions.
func (c *Conversation) SetFilters(f dataset.Filter) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.filters = f
}

// Started reports whether a question has been asked; quick questions are
// only offered before that.
func (c *Conversation) Started() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.started
}

// Messages returns a copy of the log.
func (c *Conversation) Messages() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Message, len(c.messages))
	copy(out, c.messages)
	return out
}

// Send asks a question and appends the reply. Request failures become an
// assistant message carrying user-facing copy; the reply is returned
// together with the underlying error. A reply to a question that has since
// been superseded is dropped and ErrStaleReply returned.
func (c *Conversation) Send(ctx context.Context, text string) (Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Message{}, ErrEmptyMessage
	}

	c.mu.Lock()
	c.seq++
	seq := c.seq
	c.started = true
	filters := c.filters
	c.messages = append(c.messages, c.newMessage(RoleUser, text))
	c.mu.Unlock()

	resp, err := c.client.Chat(ctx, types.ChatRequest{
		Message: text,
		Context: types.ChatContext{Filters: filters},
	})

	c.mu.Lock()
	defer c.mu.Unlock()
	if seq != c.seq {
		return Message{}, ErrStaleReply
	}

	var reply Message
	switch {
	case err != nil:
		reply = c.newMessage(RoleAssistant, UserMessage(err))
		reply.Failed = true
	case strings.TrimSpace(resp.Response) == "":
		reply = c.newMessage(RoleAssistant, EmptyReply)
	default:
		reply = c.newMessage(RoleAssistant, resp.Response)
		formatted := resp.Formatted
		if formatted == nil {
			f := format.Format(resp.Response)
			formatted = &f
		}
		reply.Formatted = formatted
	}
	c.messages = append(c.messages, reply)
	return reply, err
}

func (c *Conversation) newMessage(role Role, text string) Message {
	return Message{ID: uuid.New(), Role: role, Text: text, Timestamp: c.now()}
}
