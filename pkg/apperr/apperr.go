// Package apperr carries an HTTP status and a client-safe message from the
// service layer to the controllers.
//
//	if qty > variant.Quantity {
//	    return nil, apperr.BadRequest("only %d left in stock", variant.Quantity)
//	}
//
// Anything that is not an *Error is reported to clients as a 500.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Error is a failure the client is allowed to see.
type Error struct {
	Status  int
	Message string
	Err     error // cause, logged but never sent to clients
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func New(status int, format string, args ...any) *Error {
	return &Error{Status: status, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a client message and status to an underlying cause.
func Wrap(status int, err error, message string) *Error {
	return &Error{Status: status, Message: message, Err: err}
}

func BadRequest(format string, args ...any) *Error {
	return New(http.StatusBadRequest, format, args...)
}

func Unauthorized(format string, args ...any) *Error {
	return New(http.StatusUnauthorized, format, args...)
}

func Forbidden(format string, args ...any) *Error {
	return New(http.StatusForbidden, format, args...)
}

func NotFound(format string, args ...any) *Error {
	return New(http.StatusNotFound, format, args...)
}

func Conflict(format string, args ...any) *Error {
	return New(http.StatusConflict, format, args...)
}

// StatusOf reports the status and message for err. ok is false for errors
// that are not an *Error, which callers should log and answer with 500.
func StatusOf(err error) (status int, message string, ok bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Status, e.Message, true
	}
	return http.StatusInternalServerError, "Internal Server Error", false
}

// Is reports whether err carries the given status.
func Is(err error, status int) bool {
	s, _, ok := StatusOf(err)
	return ok && s == status
}
