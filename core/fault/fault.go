// Package fault defines the error taxonomy shared by every go-griot
// component. Errors carry a structured kind plus a message; an optional
// hint offers remediation context for interactive use without taking part
// in the error's identity.
package fault

import (
	"errors"
	"fmt"
)

// Kind classifies a failure.
type Kind string

const (
	// KindConnection covers failures reaching or talking to the store.
	KindConnection Kind = "connection"
	// KindClientInit is returned when the client handle is initialized twice.
	KindClientInit Kind = "client_init"
	// KindClientMissing is returned when an operation runs before the client
	// handle has been initialized.
	KindClientMissing Kind = "client_missing"
	// KindSerialization covers record/document conversion failures, including
	// a missing or mistyped document identifier.
	KindSerialization Kind = "serialization"
	// KindValidation is a schema rule violation on a record field.
	KindValidation Kind = "validation"
	// KindIndex covers index creation failures.
	KindIndex Kind = "index"
	// KindAggregation covers aggregation pipeline failures.
	KindAggregation Kind = "aggregation"
)

// Error is the concrete error type used across the module.
type Error struct {
	Kind    Kind
	Message string
	// Field is set for validation errors to name the failing field.
	Field string
	// Hint is an optional remediation suggestion. Two errors with different
	// hints are still the same failure.
	Hint string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// New creates an error of the given kind.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates an error of the given kind with an underlying cause.
func Wrap(kind Kind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

// Validation creates a validation error for a specific field. The message is
// the first failing rule's reason.
func Validation(field string, format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Field: field, Message: fmt.Sprintf(format, args...)}
}

// WithHint attaches a remediation suggestion and returns the error.
func (e *Error) WithHint(hint string) *Error {
	e.Hint = hint
	return e
}

// IsKind reports whether err (or anything it wraps) is a fault of the given kind.
func IsKind(err error, kind Kind) bool {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind == kind
	}
	return false
}

// KindOf returns the kind of err, or the empty string when err carries none.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return ""
}
