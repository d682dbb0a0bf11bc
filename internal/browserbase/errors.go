package browserbase

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrMissingAPIKey indicates the client was built without credentials.
	ErrMissingAPIKey = errors.New("browserbase: API key is required")

	// ErrMissingProjectID indicates the client was built without a project.
	ErrMissingProjectID = errors.New("browserbase: project ID is required")

	// ErrSessionNotRunning indicates a session exists but can no longer be
	// connected to.
	ErrSessionNotRunning = errors.New("browserbase: session is not running")
)

// APIError represents a non-2xx response from the provider API.
type APIError struct {
	// StatusCode is the HTTP status code returned by the API.
	StatusCode int
	// Message is the error message from the API body, or the status text.
	Message string
	// Err is the transport error when no response was received.
	Err error
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("browserbase: API error (status %d): %s", e.StatusCode, e.Message)
}

// Unwrap returns the transport error, if any.
func (e *APIError) Unwrap() error {
	return e.Err
}

// IsTransient returns true if the request may succeed on retry.
func (e *APIError) IsTransient() bool {
	return e.StatusCode == 0 ||
		e.StatusCode == http.StatusTooManyRequests ||
		e.StatusCode >= 500
}

// IsNotFound returns true if the session does not exist.
func (e *APIError) IsNotFound() bool {
	return e.StatusCode == http.StatusNotFound
}
