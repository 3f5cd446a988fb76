// Package errors defines the scheduler's typed error taxonomy (§7): a small,
// closed set of machine-readable codes that cross the core boundary instead
// of panics or stack traces.
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

// Predefined errors, one per §7 kind.
var (
	ErrInvalidInput           = New("INVALID_INPUT", http.StatusBadRequest, "invalid input")
	ErrInfeasible             = New("INFEASIBLE", http.StatusUnprocessableEntity, "no feasible coloring exists")
	ErrCancelled              = New("CANCELLED", http.StatusRequestTimeout, "run was cancelled")
	ErrBudgetExceeded         = New("BUDGET_EXCEEDED_WITHOUT_FEASIBLE", http.StatusGatewayTimeout, "wall-clock budget exhausted before a feasible coloring was found")
	ErrInternal               = New("INTERNAL_ERROR", http.StatusInternalServerError, "internal error")
	ErrNotFound               = New("NOT_FOUND", http.StatusNotFound, "resource not found")
)

// FromError normalises any error into an *Error.
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
