package aeron

import (
	"errors"
	"fmt"
)

// ErrorCode represents a high-level error category.
type ErrorCode string

const (
	ErrCodeInvalidArgument ErrorCode = "invalid argument"
	ErrCodeInvalidState    ErrorCode = "invalid state"
)

// Error is a structured error carrying the failed operation and its category.
type Error struct {
	Op    string    // Operation that failed (e.g., "NewScanner", "Seek")
	Code  ErrorCode // High-level error category
	Msg   string    // Human-readable message
	Inner error     // Wrapped error
}

// Error implements the error interface
func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" {
		msg = string(e.Code)
	}
	if e.Op != "" {
		return fmt.Sprintf("aeron: %s (op=%s)", msg, e.Op)
	}
	return fmt.Sprintf("aeron: %s", msg)
}

// Unwrap returns the wrapped error for errors.Is/As support
func (e *Error) Unwrap() error {
	return e.Inner
}

// Is matches two structured errors by category
func (e *Error) Is(target error) bool {
	if te, ok := target.(*Error); ok {
		return e.Code == te.Code
	}
	return false
}

// NewInvalidArgument creates an invalid-argument error for the given operation
func NewInvalidArgument(op, format string, args ...any) *Error {
	return &Error{Op: op, Code: ErrCodeInvalidArgument, Msg: fmt.Sprintf(format, args...)}
}

// NewInvalidState creates an invalid-state error for the given operation
func NewInvalidState(op, format string, args ...any) *Error {
	return &Error{Op: op, Code: ErrCodeInvalidState, Msg: fmt.Sprintf(format, args...)}
}

// WrapError wraps an existing error with operation context
func WrapError(op string, inner error) *Error {
	if inner == nil {
		return nil
	}
	if ae, ok := inner.(*Error); ok {
		return &Error{Op: op, Code: ae.Code, Msg: ae.Msg, Inner: ae.Inner}
	}
	return &Error{Op: op, Code: ErrCodeInvalidState, Msg: inner.Error(), Inner: inner}
}

// IsCode checks if an error matches a specific error code
func IsCode(err error, code ErrorCode) bool {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Code == code
	}
	return false
}
