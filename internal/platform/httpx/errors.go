// Package httpx provides HTTP response utilities.
package httpx

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for domain layer.
var (
	ErrNotFound        = errors.New("resource not found")
	ErrDuplicate       = errors.New("duplicate entry")
	ErrValidation      = errors.New("validation failed")
	ErrUnprocessable   = errors.New("request cannot be processed")
	ErrForbidden       = errors.New("forbidden")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrUnavailable     = errors.New("dependency unavailable")
	ErrPayloadTooLarge = errors.New("payload too large")
)

// Error pairs a sentinel class with a message that is safe to show clients.
type Error struct {
	Class   error
	Message string
}

func (e *Error) Error() string { return e.Message }

// Unwrap exposes the class for errors.Is.
func (e *Error) Unwrap() error { return e.Class }

// Wrap attaches a client facing message to class.
func Wrap(class error, format string, args ...any) error {
	return &Error{Class: class, Message: fmt.Sprintf(format, args...)}
}

// RespondError maps domain errors to HTTP responses using RFC7807.
func RespondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrDuplicate):
		Problem(w, http.StatusConflict, "Duplicate", err.Error())
	case errors.Is(err, ErrValidation):
		Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, ErrUnprocessable):
		Problem(w, http.StatusUnprocessableEntity, "Unprocessable", err.Error())
	case errors.Is(err, ErrForbidden):
		Problem(w, http.StatusForbidden, "Forbidden", err.Error())
	case errors.Is(err, ErrUnauthorized):
		Problem(w, http.StatusUnauthorized, "Unauthorized", err.Error())
	case errors.Is(err, ErrPayloadTooLarge):
		Problem(w, http.StatusRequestEntityTooLarge, "Payload Too Large", err.Error())
	case errors.Is(err, ErrUnavailable):
		Problem(w, http.StatusServiceUnavailable, "Unavailable", err.Error())
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
