// Package apperr defines the error taxonomy shared by every service.
//
// Each error carries a machine-readable code (stable, used by clients) and a
// human message. Sentinel kinds support errors.Is so callers can branch on
// category without string matching.
package apperr

import "errors"

// Sentinel kinds. Compare with errors.Is.
var (
	ErrValidation          = errors.New("validation failed")
	ErrNotFound            = errors.New("not found")
	ErrConflict            = errors.New("conflict")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrIntegration         = errors.New("integration failure")
	ErrUnauthorized        = errors.New("unauthorized")
)

// Error is the concrete error type returned by the core services.
type Error struct {
	Kind    error
	Code    string
	Message string
	// Retryable is only meaningful for integration errors: a timed-out
	// gateway call is retryable, a rejection is not.
	Retryable bool
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Kind }

func Validation(code, message string) *Error {
	return &Error{Kind: ErrValidation, Code: code, Message: message}
}

func NotFound(code, message string) *Error {
	return &Error{Kind: ErrNotFound, Code: code, Message: message}
}

func Conflict(code, message string) *Error {
	return &Error{Kind: ErrConflict, Code: code, Message: message}
}

func InsufficientBalance(message string) *Error {
	return &Error{Kind: ErrInsufficientBalance, Code: "INSUFFICIENT_BALANCE", Message: message}
}

func Integration(code, message string, retryable bool) *Error {
	return &Error{Kind: ErrIntegration, Code: code, Message: message, Retryable: retryable}
}

func Unauthorized(code, message string) *Error {
	return &Error{Kind: ErrUnauthorized, Code: code, Message: message}
}

// CodeOf extracts the machine code from an error, or "INTERNAL" for anything
// outside the taxonomy.
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return "INTERNAL"
}
