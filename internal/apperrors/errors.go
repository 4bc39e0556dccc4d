// Package apperrors defines the stable, machine-readable error surface of
// the marketplace core. Every caller-visible failure maps to a code plus a
// human message; internal causes are logged, never leaked.
package apperrors

import (
	"errors"
	"net/http"
)

type Error struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	return e.Code + ": " + e.Message
}

func New(status int, code, message string) *Error {
	return &Error{Status: status, Code: code, Message: message}
}

func BadRequest(code, message string) *Error {
	return New(http.StatusBadRequest, code, message)
}

func NotFound(code, message string) *Error {
	return New(http.StatusNotFound, code, message)
}

// From extracts an *Error from err, or wraps it in the given fallback. The
// fallback is the generic per-operation failure; the original error is for
// the caller to log, not to surface.
func From(err error, fallback *Error) *Error {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return fallback
}
