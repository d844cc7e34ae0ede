// Package apperr defines the error taxonomy shared by the CalDAV and REST surfaces.
package apperr

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/cyp0633/caldora/server/storage"
)

// Kind classifies an error for the client.
type Kind string

const (
	// KindNotFound covers absent resources and resources the principal cannot see.
	KindNotFound Kind = "not_found"
	// KindConflict covers stale entity tags and creates over existing resources.
	KindConflict Kind = "conflict"
	// KindPreconditionMissing is returned in strict mode for unconditional mutations.
	KindPreconditionMissing Kind = "precondition_missing"
	KindBadRequest          Kind = "bad_request"
	KindForbidden           Kind = "forbidden"
	KindUnauthorized        Kind = "unauthorized"
	// KindTransient means the store timed out or is unavailable; the client may retry.
	KindTransient Kind = "transient"
	KindInternal  Kind = "internal"
)

// Error is a classified application error.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the underlying cause
func (e *Error) Unwrap() error {
	return e.Cause
}

func newError(kind Kind, msg string, cause error) *Error {
	return &Error{Kind: kind, Message: msg, Cause: cause}
}

func NotFound(msg string) *Error            { return newError(KindNotFound, msg, nil) }
func Conflict(msg string) *Error            { return newError(KindConflict, msg, nil) }
func PreconditionMissing(msg string) *Error { return newError(KindPreconditionMissing, msg, nil) }
func Forbidden(msg string) *Error           { return newError(KindForbidden, msg, nil) }
func Unauthorized(msg string) *Error        { return newError(KindUnauthorized, msg, nil) }

// BadRequest wraps a malformed-input error.
func BadRequest(msg string, cause error) *Error {
	return newError(KindBadRequest, msg, cause)
}

// Transient wraps a store timeout or outage.
func Transient(msg string, cause error) *Error {
	return newError(KindTransient, msg, cause)
}

// Internal wraps an unexpected failure.
func Internal(msg string, cause error) *Error {
	return newError(KindInternal, msg, cause)
}

// KindOf classifies any error. Application errors keep their kind, storage
// sentinels and context errors are mapped, and everything else is internal.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return KindNotFound
	case errors.Is(err, storage.ErrConflict):
		return KindConflict
	case errors.Is(err, storage.ErrInvalidInput):
		return KindBadRequest
	case errors.Is(err, storage.ErrPermissionDenied):
		return KindForbidden
	case errors.Is(err, storage.ErrStorageUnavailable),
		errors.Is(err, context.DeadlineExceeded):
		return KindTransient
	}
	return KindInternal
}

// HTTPStatus maps a kind to the status code used by both surfaces.
func HTTPStatus(kind Kind) int {
	switch kind {
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusPreconditionFailed
	case KindPreconditionMissing:
		return http.StatusPreconditionRequired
	case KindBadRequest:
		return http.StatusBadRequest
	case KindForbidden:
		return http.StatusForbidden
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindTransient:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// KindForStatus maps a response status back onto a kind. It is the inverse
// of HTTPStatus for the statuses HTTPStatus produces; 409 and 405 are
// classified as conflicts and other 4xx codes as bad requests.
func KindForStatus(code int) Kind {
	switch code {
	case http.StatusNotFound, http.StatusGone:
		return KindNotFound
	case http.StatusPreconditionFailed, http.StatusConflict, http.StatusMethodNotAllowed:
		return KindConflict
	case http.StatusPreconditionRequired:
		return KindPreconditionMissing
	case http.StatusForbidden:
		return KindForbidden
	case http.StatusUnauthorized:
		return KindUnauthorized
	case http.StatusServiceUnavailable, http.StatusGatewayTimeout, http.StatusTooManyRequests:
		return KindTransient
	}
	if code >= 400 && code < 500 {
		return KindBadRequest
	}
	return KindInternal
}

// StatusOf is HTTPStatus(KindOf(err)).
func StatusOf(err error) int {
	return HTTPStatus(KindOf(err))
}

// PublicMessage returns a message that is safe to show to the client. Internal
// causes are never exposed.
func PublicMessage(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) && appErr.Kind != KindInternal {
		return appErr.Message
	}
	switch KindOf(err) {
	case KindNotFound:
		return "resource not found"
	case KindConflict:
		return "resource conflict"
	case KindBadRequest:
		return "invalid input"
	case KindForbidden:
		return "permission denied"
	case KindTransient:
		return "storage temporarily unavailable"
	}
	return "internal server error"
}
