package gameerr

import (
	"errors"
	"fmt"
)

// Kind represents the category of a game error
type Kind string

const (
	// KindValidation indicates malformed or out-of-range player input
	KindValidation Kind = "validation"
	// KindDomain indicates a rule of the game refused the action
	KindDomain Kind = "domain"
	// KindPersistence indicates the store was unavailable or a write failed
	KindPersistence Kind = "persistence"
	// KindInvariant indicates stored data broke a structural invariant
	KindInvariant Kind = "invariant"
)

// Error is the base error type for engine errors
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Validationf creates a validation error with formatting
func Validationf(format string, args ...any) error {
	return &Error{
		Kind:    KindValidation,
		Message: fmt.Sprintf(format, args...),
	}
}

// Domainf creates a domain error with formatting
func Domainf(format string, args ...any) error {
	return &Error{
		Kind:    KindDomain,
		Message: fmt.Sprintf(format, args...),
	}
}

// WrapPersistence wraps a storage error
func WrapPersistence(message string, err error) error {
	return &Error{
		Kind:    KindPersistence,
		Message: message,
		Err:     err,
	}
}

// Invariantf creates an invariant violation with formatting
func Invariantf(format string, args ...any) error {
	return &Error{
		Kind:    KindInvariant,
		Message: fmt.Sprintf(format, args...),
	}
}

// KindOf returns the kind of err. Errors that did not originate in this
// package are treated as persistence failures, since everything else the
// engine raises is typed.
func KindOf(err error) Kind {
	var gameErr *Error
	if errors.As(err, &gameErr) {
		return gameErr.Kind
	}
	return KindPersistence
}

// Message returns the user-facing message of a typed error, or "" otherwise.
func Message(err error) string {
	var gameErr *Error
	if errors.As(err, &gameErr) {
		return gameErr.Message
	}
	return ""
}
