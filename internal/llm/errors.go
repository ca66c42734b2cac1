package llm

import "fmt"

// ConfigurationMissingError means the model cannot be called because a
// required setting, normally the API key, is absent.
type ConfigurationMissingError struct {
	Setting string
}

func (e *ConfigurationMissingError) Error() string {
	return fmt.Sprintf("configuration missing: %s is not set", e.Setting)
}

// UpstreamError is a non-success response from the model provider.
type UpstreamError struct {
	Provider   Provider
	StatusCode int
	Cause      error
}

func (e *UpstreamError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s request failed with status %d: %v", e.Provider, e.StatusCode, e.Cause)
	}
	return fmt.Sprintf("%s request failed: %v", e.Provider, e.Cause)
}

func (e *UpstreamError) Unwrap() error {
	return e.Cause
}

// RefusalError means the provider declined to answer, usually on safety grounds.
type RefusalError struct {
	Provider Provider
	Reason   string
}

func (e *RefusalError) Error() string {
	return fmt.Sprintf("%s refused to answer: %s", e.Provider, e.Reason)
}

// EmptyReplyError means the provider answered without any text.
type EmptyReplyError struct {
	Provider Provider
}

func (e *EmptyReplyError) Error() string {
	return fmt.Sprintf("%s returned an empty reply", e.Provider)
}
