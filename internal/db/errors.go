package db

import "fmt"

// DataUnavailableError means the dataset could not be loaded. No partial
// result accompanies it.
type DataUnavailableError struct {
	Message string
	Offset  int
	Cause   error
}

func (e *DataUnavailableError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("dataset unavailable: %s (offset %d): %v", e.Message, e.Offset, e.Cause)
	}
	return fmt.Sprintf("dataset unavailable: %s (offset %d)", e.Message, e.Offset)
}

func (e *DataUnavailableError) Unwrap() error {
	return e.Cause
}
