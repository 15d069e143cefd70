// Package apperr defines the error taxonomy shared by the order workflow,
// the stores and the HTTP layer.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies a failure. The HTTP layer maps each kind to a fixed status code.
type Kind int

const (
	Internal Kind = iota
	Unauthenticated
	Unauthorized
	NotFound
	InvalidTransition
	InsufficientStock
	Validation
	Conflict
	TransactionFailure
)

var kindNames = map[Kind]string{
	Internal:           "internal",
	Unauthenticated:    "unauthenticated",
	Unauthorized:       "unauthorized",
	NotFound:           "not_found",
	InvalidTransition:  "invalid_transition",
	InsufficientStock:  "insufficient_stock",
	Validation:         "validation",
	Conflict:           "conflict",
	TransactionFailure: "transaction_failure",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Error is a classified failure. Message is safe to show to API clients;
// Err carries the underlying cause, if any.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Message
	}
	if e.Message == "" {
		return e.Err.Error()
	}
	var inner *Error
	if errors.As(e.Err, &inner) {
		return e.Message
	}
	return e.Message + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

// PublicMessage returns the client-facing text without infrastructure causes.
func (e *Error) PublicMessage() string {
	if e.Message != "" {
		return e.Message
	}
	var inner *Error
	if errors.As(e.Err, &inner) {
		return inner.PublicMessage()
	}
	return e.Kind.String()
}

// New creates an error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf creates an error of the given kind with a formatted message.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap classifies err under kind. Wrapping a sentinel keeps errors.Is working
// against that sentinel.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf returns the kind of the outermost *Error in err's chain, or Internal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}

// Is reports whether err is classified as kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// Retryable reports whether the failed operation may be retried as-is.
func Retryable(err error) bool {
	return Is(err, TransactionFailure)
}

// PublicMessage returns the client-facing message for any error.
// Internal failures never leak their cause.
func PublicMessage(err error) string {
	var e *Error
	if !errors.As(err, &e) || e.Kind == Internal {
		return "internal server error"
	}
	return e.PublicMessage()
}
