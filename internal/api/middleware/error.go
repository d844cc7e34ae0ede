// Package middleware provides HTTP middleware and JSON error helpers for the API.
package middleware

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/cyp0633/caldora/internal/apperr"
	"github.com/cyp0633/caldora/server/auth"
)

// ErrorResponse represents a standardized API error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// Common error codes
const (
	ErrBadRequest    = "bad_request"
	ErrInternalError = "internal_error"
	ErrValidation    = "validation_error"
	ErrUnauthorized  = "unauthorized"
	ErrUserExists    = "user_exists"
	ErrAlreadyExists = "already_exists"
)

// retryAfterSeconds is sent with 503 responses.
const retryAfterSeconds = "1"

// WriteError writes a JSON error response with the given status code.
func WriteError(w http.ResponseWriter, status int, errCode, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorResponse{
		Error:   errCode,
		Message: message,
	})
}

// WriteAppError maps err onto the shared error taxonomy and writes it. Auth
// failures are answered with 401, a taken username with 409.
func WriteAppError(w http.ResponseWriter, err error) {
	var authErr *auth.Error
	if errors.As(err, &authErr) {
		if authErr.Type == auth.ErrUserExists {
			WriteError(w, http.StatusConflict, ErrUserExists, authErr.Message)
			return
		}
		w.Header().Set("WWW-Authenticate", `Bearer realm="caldora"`)
		WriteError(w, http.StatusUnauthorized, ErrUnauthorized, authErr.Message)
		return
	}

	kind := apperr.KindOf(err)
	switch kind {
	case apperr.KindInternal:
		slog.Error("request failed", "error", err)
	case apperr.KindTransient:
		slog.Warn("store unavailable", "error", err)
		w.Header().Set("Retry-After", retryAfterSeconds)
	case apperr.KindUnauthorized:
		w.Header().Set("WWW-Authenticate", `Bearer realm="caldora"`)
	}
	WriteError(w, apperr.HTTPStatus(kind), string(kind), apperr.PublicMessage(err))
}

// WriteCreateError is WriteAppError for POST handlers. A create carries no
// precondition, so a conflict there means the resource already exists and is
// answered with 409 rather than 412.
func WriteCreateError(w http.ResponseWriter, err error) {
	if apperr.KindOf(err) == apperr.KindConflict {
		WriteError(w, http.StatusConflict, ErrAlreadyExists, apperr.PublicMessage(err))
		return
	}
	WriteAppError(w, err)
}

// Unauthorized is the failure callback of the bearer auth middleware.
func Unauthorized(w http.ResponseWriter, _ *http.Request, err error) {
	WriteAppError(w, err)
}

// ErrorRecovery returns middleware that recovers from panics and answers 500.
func ErrorRecovery(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					logger.Error("panic recovered",
						"panic", err,
						"method", r.Method,
						"path", r.URL.Path,
						"stack", string(debug.Stack()))
					WriteError(w, http.StatusInternalServerError, ErrInternalError, "An unexpected error occurred")
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
