package apperr

import (
	"errors"
	"time"
)

// Kind classifies a domain error for transport mapping.
type Kind int

// Error kinds understood by the HTTP layer.
const (
	KindInternal Kind = iota
	KindNotFound
	KindForbidden
	KindConflict
	KindValidation
	KindRateLimited
	KindMethodNotAllowed
)

// Error is a domain error with a transport-independent kind and a
// human-readable message.
type Error struct {
	Kind       Kind
	Message    string
	RetryAfter time.Duration // Only set for rate-limited errors.
	Err        error         // Wrapped cause, if any.
}

// Error implements the error interface.
func (e *Error) Error() string {
	return e.Message
}

// Unwrap returns the wrapped cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// NotFound builds a not-found error. Inactive entities are reported the same
// way as missing ones.
func NotFound(message string) *Error {
	return &Error{Kind: KindNotFound, Message: message}
}

// Forbidden builds an authorization error with a reason-specific message.
func Forbidden(message string) *Error {
	return &Error{Kind: KindForbidden, Message: message}
}

// Conflict builds a state-invariant violation error.
func Conflict(message string) *Error {
	return &Error{Kind: KindConflict, Message: message}
}

// Validation builds a malformed-input error.
func Validation(message string) *Error {
	return &Error{Kind: KindValidation, Message: message}
}

// RateLimited builds a cooldown error carrying the remaining wait time.
func RateLimited(message string, retryAfter time.Duration) *Error {
	return &Error{Kind: KindRateLimited, Message: message, RetryAfter: retryAfter}
}

// Internal builds a server-side error wrapping its cause.
func Internal(message string, err error) *Error {
	return &Error{Kind: KindInternal, Message: message, Err: err}
}

// KindOf extracts the kind from an error chain, defaulting to internal.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// RetryAfterOf extracts the retry-after duration from an error chain.
func RetryAfterOf(err error) time.Duration {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.RetryAfter
	}
	return 0
}
