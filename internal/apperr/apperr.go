// Package apperr defines the error-kind taxonomy shared by the data
// services, business engine, and session manager, so callers can branch on
// category without string-matching error messages.
package apperr

import (
	"errors"
	"fmt"
)

// Kind categorizes an error for the purposes of client-facing messaging and
// logging severity. It is a category, not a concrete error type — most
// failures surface as an *Error wrapping a Kind plus an underlying cause.
type Kind string

const (
	Validation      Kind = "VALIDATION"
	NotFound        Kind = "NOT_FOUND"
	Conflict        Kind = "CONFLICT"
	BusinessLogic   Kind = "BUSINESS_LOGIC"
	ExternalService Kind = "EXTERNAL_SERVICE"
	Database        Kind = "DATABASE"
	Websocket       Kind = "WEBSOCKET"
	RateLimit       Kind = "RATE_LIMIT"
	Authentication  Kind = "AUTHENTICATION"
	Unknown         Kind = "UNKNOWN"
)

// Error is a categorized application error. Code carries a short
// machine-readable identifier for the specific failure (e.g.
// "CUSTOMER_NOT_FOUND", "MULTIPLE_CUSTOMERS") distinct from the broader Kind.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Code, e.Err)
	}
	return fmt.Sprintf("%s: %s: %s", e.Kind, e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// New constructs an *Error with no wrapped cause.
func New(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

// Wrap constructs an *Error wrapping err under the given kind and code.
func Wrap(kind Kind, code string, err error) *Error {
	return &Error{Kind: kind, Code: code, Err: err}
}

// KindOf returns the Kind of err if it is (or wraps) an *Error, or Unknown
// otherwise.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Unknown
}

// CodeOf returns the Code of err if it is (or wraps) an *Error, or "" otherwise.
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}
