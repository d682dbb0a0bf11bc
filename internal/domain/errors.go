package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for common error conditions.
var (
	// ErrInvalidInput indicates that the input data is invalid.
	ErrInvalidInput = errors.New("invalid input")

	// ErrBlockedPage indicates that the browser landed on a CAPTCHA or
	// anti-bot challenge instead of the expected content.
	ErrBlockedPage = errors.New("blocked page")

	// ErrMalformedData indicates that extracted records did not have the
	// expected shape.
	ErrMalformedData = errors.New("malformed data")

	// ErrEmptyResults indicates that an operation requiring at least one
	// record received none.
	ErrEmptyResults = errors.New("empty results")

	// ErrSessionUnavailable indicates that a remote browser session could not
	// be created or reattached.
	ErrSessionUnavailable = errors.New("session unavailable")

	// ErrServiceUnavailable indicates that an external service is unavailable.
	ErrServiceUnavailable = errors.New("service unavailable")
)

// Failure type names attached to Temporal application errors. Retry policies
// and callers classify failures by these strings across the activity boundary.
const (
	FailureBlockedPage   = "BlockedPage"
	FailureMalformedData = "MalformedData"
	FailureNetworkFault  = "NetworkFault"
	FailureEmptyResults  = "EmptyResults"
	FailureInvalidInput  = "InvalidInput"

	FailureSessionUnavailable = "SessionUnavailable"
	FailureExternalService    = "ExternalService"
	FailureTimeout            = "Timeout"
	FailureInternal           = "Internal"
)

// FieldError represents a validation error for a specific field.
type FieldError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *FieldError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// Unwrap returns ErrInvalidInput for use with errors.Is.
func (e *FieldError) Unwrap() error {
	return ErrInvalidInput
}

// NewFieldError creates a new FieldError.
func NewFieldError(field, message string) *FieldError {
	return &FieldError{
		Field:   field,
		Message: message,
	}
}
