// Package apierr defines the error kinds the API can surface and their
// mapping to HTTP status codes.
package apierr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an API error. Every kind maps to exactly one HTTP status.
type Kind int

const (
	KindBadRequest Kind = iota
	KindUnauthorized
	KindForbidden
	KindNotFound
	KindTooManyRequests
	KindInternal
	KindServiceUnavailable
)

// Error is a tagged API error: a kind plus a human-readable message.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// Status returns the HTTP status code for the error's kind.
func (e *Error) Status() int {
	switch e.Kind {
	case KindBadRequest:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindTooManyRequests:
		return http.StatusTooManyRequests
	case KindServiceUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// BadRequest returns a 400 error.
func BadRequest(msg string) *Error { return &Error{Kind: KindBadRequest, Message: msg} }

// BadRequestf returns a formatted 400 error.
func BadRequestf(format string, args ...any) *Error {
	return &Error{Kind: KindBadRequest, Message: fmt.Sprintf(format, args...)}
}

// Unauthorized returns a 401 error.
func Unauthorized(msg string) *Error { return &Error{Kind: KindUnauthorized, Message: msg} }

// Forbidden returns a 403 error.
func Forbidden(msg string) *Error { return &Error{Kind: KindForbidden, Message: msg} }

// Forbiddenf returns a formatted 403 error.
func Forbiddenf(format string, args ...any) *Error {
	return &Error{Kind: KindForbidden, Message: fmt.Sprintf(format, args...)}
}

// NotFound returns a 404 error.
func NotFound(msg string) *Error { return &Error{Kind: KindNotFound, Message: msg} }

// TooManyRequests returns a 429 error.
func TooManyRequests(msg string) *Error { return &Error{Kind: KindTooManyRequests, Message: msg} }

// Internal returns a 500 error.
func Internal(msg string) *Error { return &Error{Kind: KindInternal, Message: msg} }

// ServiceUnavailable returns a 503 error.
func ServiceUnavailable(msg string) *Error {
	return &Error{Kind: KindServiceUnavailable, Message: msg}
}

// FromError extracts an *Error from err, or wraps err as an internal error.
func FromError(err error) *Error {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return &Error{Kind: KindInternal, Message: err.Error()}
}
