package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error represents a typed domain error with HTTP awareness.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
	Err     error  `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// New creates a new Error instance.
func New(code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

// Wrap attaches context to an existing error.
func Wrap(err error, code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message, Err: err}
}

// Predefined errors for common scenarios.
var (
	ErrInvalidCredentials = New("INVALID_CREDENTIALS", http.StatusUnauthorized, "invalid email or password")
	ErrNotFound           = New("NOT_FOUND", http.StatusNotFound, "resource not found")
	ErrForbidden          = New("FORBIDDEN", http.StatusForbidden, "forbidden")
	ErrUnauthorized       = New("UNAUTHORIZED", http.StatusUnauthorized, "unauthorized")
	ErrConflict           = New("CONFLICT", http.StatusConflict, "conflict")
	ErrValidation         = New("VALIDATION_ERROR", http.StatusBadRequest, "validation failed")
	ErrInternal           = New("INTERNAL_ERROR", http.StatusInternalServerError, "internal server error")
	ErrUnknown            = New("UNKNOWN_ERROR", http.StatusInternalServerError, "unknown error")
)

// NotFoundf builds a NOT_FOUND error naming the entity kind and lookup key,
// e.g. NotFoundf("course", 7) -> "course with ID 7 not found".
func NotFoundf(kind string, key interface{}) *Error {
	return New(ErrNotFound.Code, ErrNotFound.Status, fmt.Sprintf("%s with ID %v not found", kind, key))
}

// NotFoundBy builds a NOT_FOUND error for a lookup on a named field,
// e.g. NotFoundBy("invoice", "number", "FAC-2025-001").
func NotFoundBy(kind, field string, key interface{}) *Error {
	return New(ErrNotFound.Code, ErrNotFound.Status, fmt.Sprintf("%s with %s %v not found", kind, field, key))
}

// Conflictf builds a CONFLICT error with a formatted rule description.
func Conflictf(format string, args ...interface{}) *Error {
	return New(ErrConflict.Code, ErrConflict.Status, fmt.Sprintf(format, args...))
}

// Internalf wraps a lower-layer failure preserving its cause for diagnostics.
func Internalf(err error, format string, args ...interface{}) *Error {
	return Wrap(err, ErrInternal.Code, ErrInternal.Status, fmt.Sprintf(format, args...))
}

// FromError normalises any error into an *Error. Already-classified errors
// pass through unchanged so a NOT_FOUND raised deep inside an operation is
// never re-wrapped as INTERNAL_ERROR.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Wrap(err, ErrInternal.Code, ErrInternal.Status, ErrInternal.Message)
}

// FromRecovered interprets a recovered panic value. Non-error values are
// never leaked into the user-facing message.
func FromRecovered(v interface{}, operation string) *Error {
	if err, ok := v.(error); ok {
		return Wrap(err, ErrInternal.Code, ErrInternal.Status, fmt.Sprintf("internal error during %s", operation))
	}
	return New(ErrUnknown.Code, ErrUnknown.Status, fmt.Sprintf("unknown error during %s", operation))
}

// Clone returns a copy of the error allowing for message overrides.
func Clone(err *Error, message string) *Error {
	if err == nil {
		return nil
	}
	clone := *err
	if message != "" {
		clone.Message = message
	}
	return &clone
}

// IsNotFound reports whether err is classified NOT_FOUND.
func IsNotFound(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == ErrNotFound.Code
}

// IsConflict reports whether err is classified CONFLICT.
func IsConflict(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == ErrConflict.Code
}
