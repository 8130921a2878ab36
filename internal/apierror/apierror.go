// Package apierror provides the single normalized failure shape for the
// client runtime. Every failure path terminates in an *Error; no transport
// specific error type crosses the api package boundary. Classification
// drives the query cache retry policy.
package apierror

import (
	"errors"
	"fmt"
	"net/http"
)

// Error is the normalized API failure.
//
// StatusCode is the HTTP status when a response was received, else 0.
// IsNetworkError is true exactly when no response reached the client at all
// and the failure was not a timeout. RawBody preserves the response body for
// debugging; Code and Message are surfaced verbatim from a structured error
// body when present.
type Error struct {
	StatusCode     int
	Code           string
	Message        string
	IsNetworkError bool
	IsTimeout      bool
	RawBody        []byte

	cause error
}

// Error implements the error interface.
func (e *Error) Error() string {
	switch {
	case e.IsTimeout:
		return fmt.Sprintf("timeout: %s", e.Message)
	case e.IsNetworkError:
		return fmt.Sprintf("network error: %s", e.Message)
	case e.StatusCode > 0:
		return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
	default:
		return e.Message
	}
}

// Unwrap returns the underlying transport error, if any.
func (e *Error) Unwrap() error { return e.cause }

// Retryable reports whether the failure is transient and eligible for
// bounded automatic retry. Server errors, timeouts and network failures
// qualify; the whole 4xx class does not — 429 included, which triggers a
// client-side cooldown instead of a retry.
func (e *Error) Retryable() bool {
	if e.IsTimeout || e.IsNetworkError {
		return true
	}
	return e.StatusCode >= 500
}

// As extracts an *Error from an error chain.
func As(err error) (*Error, bool) {
	var ae *Error
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}

// IsRetryable reports whether err should be retried by the cache fetch chain.
func IsRetryable(err error) bool {
	if ae, ok := As(err); ok {
		return ae.Retryable()
	}
	return false
}

// IsUnauthorized reports an invalid token or bad credentials (401).
func IsUnauthorized(err error) bool { return hasStatus(err, http.StatusUnauthorized) }

// IsForbidden reports a disabled account (403).
func IsForbidden(err error) bool { return hasStatus(err, http.StatusForbidden) }

// IsRateLimited reports a 429, which must start a client-side cooldown.
func IsRateLimited(err error) bool { return hasStatus(err, http.StatusTooManyRequests) }

// IsTimeout reports that the request exceeded the transport timeout budget.
func IsTimeout(err error) bool {
	ae, ok := As(err)
	return ok && ae.IsTimeout
}

// IsNetwork reports that no response reached the client at all.
func IsNetwork(err error) bool {
	ae, ok := As(err)
	return ok && ae.IsNetworkError
}

// IsServerError reports a 5xx response.
func IsServerError(err error) bool {
	ae, ok := As(err)
	return ok && ae.StatusCode >= 500
}

func hasStatus(err error, code int) bool {
	ae, ok := As(err)
	return ok && ae.StatusCode == code
}
