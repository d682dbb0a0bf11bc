package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
)

// ErrEmptyResponse is returned when the model produced no text.
var ErrEmptyResponse = errors.New("llm: empty response")

// APIError represents a failed call to an LLM provider.
type APIError struct {
	// Provider is the name of the LLM provider (e.g., "openai", "anthropic").
	Provider string
	// StatusCode is the HTTP status code returned by the API, or 0 when no
	// response was received.
	StatusCode int
	// Message is the error message.
	Message string
	// Type is a coarse classification used as a metrics label.
	Type string
	// Err is the underlying client error.
	Err error
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Type != "" {
		return fmt.Sprintf("%s: API error (status %d, type %s): %s", e.Provider, e.StatusCode, e.Type, e.Message)
	}
	return fmt.Sprintf("%s: API error (status %d): %s", e.Provider, e.StatusCode, e.Message)
}

// Unwrap returns the underlying client error.
func (e *APIError) Unwrap() error {
	return e.Err
}

// IsTransient returns true if the error is a transient error that may succeed
// on retry. This includes rate limiting (429), server errors (5xx), and network
// errors (StatusCode 0 indicates no HTTP response was received).
func (e *APIError) IsTransient() bool {
	return e.StatusCode == 0 ||
		e.StatusCode == http.StatusTooManyRequests ||
		e.StatusCode >= 500
}

var statusPattern = regexp.MustCompile(`status(?: code)?:? (\d{3})`)

// classifyError converts a langchaingo client error into an *APIError. The
// clients report HTTP failures only in the message text, so the status code
// is recovered from it.
func classifyError(provider string, err error) *APIError {
	apiErr := &APIError{Provider: provider, Message: err.Error(), Err: err}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		apiErr.Type = "timeout"
		return apiErr
	case errors.Is(err, context.Canceled):
		apiErr.Type = "cancelled"
		return apiErr
	}

	msg := strings.ToLower(err.Error())
	if m := statusPattern.FindStringSubmatch(msg); m != nil {
		apiErr.StatusCode, _ = strconv.Atoi(m[1])
	} else if strings.Contains(msg, "rate limit") {
		apiErr.StatusCode = http.StatusTooManyRequests
	}

	switch {
	case apiErr.StatusCode == http.StatusTooManyRequests:
		apiErr.Type = "rate_limit"
	case apiErr.StatusCode == http.StatusUnauthorized || apiErr.StatusCode == http.StatusForbidden:
		apiErr.Type = "auth"
	case apiErr.StatusCode >= 500:
		apiErr.Type = "server_error"
	case apiErr.StatusCode >= 400:
		apiErr.Type = "invalid_request"
	default:
		apiErr.Type = "network"
	}
	return apiErr
}
