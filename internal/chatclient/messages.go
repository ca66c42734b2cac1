package chatclient

import (
	"errors"
	"fmt"
	"net/http"
)

// WelcomeMessage opens every conversation.
const WelcomeMessage = "Hello! I'm your AI assistant for job compensation analysis. I can help you explore salary data, compare positions, and answer questions about compensation trends. What would you like to know?"

// EmptyReply replaces a successful response without text.
const EmptyReply = "Sorry, I could not generate a response."

// QuickQuestions are offered before the first question is asked.
var QuickQuestions = []string{
	"What are the highest paying jobs?",
	"Show me average salaries by level",
	"Compare salaries across job families",
	"What's the salary range for managers?",
}

// User-facing copy for failed requests.
const (
	reconnectMessage   = "Database connection failed. The system is trying to reconnect automatically. Please try your question again in a moment."
	serverErrorMessage = "Server error occurred. Our technical team is working on it. Please try again later."
)

// UserMessage turns a chat failure into the text shown in the conversation.
// A missing endpoint or unavailable dataset reads as a connection problem.
func UserMessage(err error) string {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		switch httpErr.StatusCode {
		case http.StatusNotFound, http.StatusServiceUnavailable:
			return reconnectMessage
		case http.StatusInternalServerError:
			return serverErrorMessage
		}
	}
	return fmt.Sprintf("Technical issue: %s. Please try again or contact support.", err.Error())
}
