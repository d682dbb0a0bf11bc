// Package resilience classifies activity failures and converts them into
// Temporal application errors whose type names survive the activity boundary.
package resilience

import (
	"context"
	"errors"
	"strings"

	"go.temporal.io/sdk/temporal"

	"github.com/helixir/integrations-worker/internal/domain"
)

// ErrorCategory decides whether Temporal should retry a failure.
type ErrorCategory int

const (
	// Transient errors are retried with the activity's backoff policy
	// (network faults, rate limits, challenge pages, provider outages).
	Transient ErrorCategory = iota

	// Permanent errors fail the activity immediately.
	Permanent
)

// String returns a human-readable name for the category.
func (c ErrorCategory) String() string {
	switch c {
	case Transient:
		return "transient"
	case Permanent:
		return "permanent"
	default:
		return "unknown"
	}
}

// transientSubstrings mark untyped errors that are worth retrying.
var transientSubstrings = []string{
	"timeout",
	"network",
	"connection refused",
	"connection reset",
	"rate limit",
	"rate_limit",
	"server_error",
	"service unavailable",
	"temporary",
	"deadline exceeded",
	"i/o timeout",
	"websocket",
	"target closed",
}

// permanentSubstrings avoid bare "auth" and "invalid", which match
// unrelated text such as "author" or "invalidated".
var permanentSubstrings = []string{
	"unauthorized",
	"authentication failed",
	"forbidden",
	"bad request",
	"invalid request",
	"invalid parameter",
	"validation",
}

type transienter interface {
	IsTransient() bool
}

type failureTyper interface {
	FailureType() string
}

// Classify inspects err and returns its ErrorCategory.
//
// Classification priority:
//  1. Nil errors: Permanent (callers should not retry nil)
//  2. Temporal ApplicationError: NonRetryable flag
//  3. Typed provider errors exposing IsTransient
//  4. Domain sentinel errors
//  5. Error message substring matching, transient first
//  6. Default: Transient
func Classify(err error) ErrorCategory {
	if err == nil {
		return Permanent
	}

	var appErr *temporal.ApplicationError
	if errors.As(err, &appErr) {
		if appErr.NonRetryable() {
			return Permanent
		}
		return Transient
	}

	var t transienter
	if errors.As(err, &t) {
		if t.IsTransient() {
			return Transient
		}
		return Permanent
	}

	if errors.Is(err, domain.ErrInvalidInput) {
		return Permanent
	}
	if errors.Is(err, domain.ErrBlockedPage) || errors.Is(err, domain.ErrMalformedData) ||
		errors.Is(err, domain.ErrEmptyResults) || errors.Is(err, domain.ErrSessionUnavailable) ||
		errors.Is(err, domain.ErrServiceUnavailable) {
		return Transient
	}

	msg := strings.ToLower(err.Error())
	for _, sub := range transientSubstrings {
		if strings.Contains(msg, sub) {
			return Transient
		}
	}
	for _, sub := range permanentSubstrings {
		if strings.Contains(msg, sub) {
			return Permanent
		}
	}
	return Transient
}

// FailureType names the failure for retry classification and metrics.
func FailureType(err error) string {
	if err == nil {
		return ""
	}

	var appErr *temporal.ApplicationError
	if errors.As(err, &appErr) && appErr.Type() != "" {
		return appErr.Type()
	}
	var ft failureTyper
	if errors.As(err, &ft) {
		return ft.FailureType()
	}

	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		return domain.FailureInvalidInput
	case errors.Is(err, domain.ErrBlockedPage):
		return domain.FailureBlockedPage
	case errors.Is(err, domain.ErrMalformedData):
		return domain.FailureMalformedData
	case errors.Is(err, domain.ErrEmptyResults):
		return domain.FailureEmptyResults
	case errors.Is(err, domain.ErrSessionUnavailable):
		return domain.FailureSessionUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return domain.FailureTimeout
	}

	var t transienter
	if errors.As(err, &t) || errors.Is(err, domain.ErrServiceUnavailable) {
		return domain.FailureExternalService
	}
	return domain.FailureInternal
}

// ToApplicationError wraps err in a Temporal ApplicationError carrying its
// FailureType. Permanent failures are marked non-retryable. Errors that are
// already ApplicationErrors pass through unchanged.
func ToApplicationError(err error) error {
	if err == nil {
		return nil
	}
	var appErr *temporal.ApplicationError
	if errors.As(err, &appErr) {
		return err
	}

	typ := FailureType(err)
	if Classify(err) == Permanent {
		return temporal.NewNonRetryableApplicationError(err.Error(), typ, err)
	}
	return temporal.NewApplicationErrorWithCause(err.Error(), typ, err)
}
