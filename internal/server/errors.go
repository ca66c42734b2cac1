package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jonathan/salary-insights/internal/db"
	"github.com/jonathan/salary-insights/internal/llm"
)

// ValidationError indicates request validation failure
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s - %s", e.Field, e.Message)
}

// HTTPStatus returns the appropriate HTTP status code for an error. Missing
// model configuration and provider failures are server errors.
func HTTPStatus(err error) int {
	var (
		validation  *ValidationError
		unavailable *db.DataUnavailableError
	)
	switch {
	case errors.As(err, &validation):
		return http.StatusBadRequest
	case errors.As(err, &unavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// publicMessage is the error text returned to clients. Unclassified errors
// are not echoed since they may carry internal detail.
func publicMessage(err error) string {
	var (
		validation  *ValidationError
		unavailable *db.DataUnavailableError
		missing     *llm.ConfigurationMissingError
		upstream    *llm.UpstreamError
	)
	switch {
	case errors.As(err, &validation):
		return validation.Message
	case errors.As(err, &unavailable):
		return "The compensation dataset is currently unavailable."
	case errors.As(err, &missing):
		return fmt.Sprintf("The assistant is not configured: %s is not set.", missing.Setting)
	case errors.As(err, &upstream):
		if upstream.StatusCode > 0 {
			return fmt.Sprintf("The model provider returned status %d.", upstream.StatusCode)
		}
		return "The model provider could not be reached."
	default:
		return "Internal server error."
	}
}
