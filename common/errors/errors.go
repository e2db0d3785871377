// Package errors defines the typed error kinds surfaced by the banking core
// and their fixed HTTP status mapping.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// Kind identifies an externally visible error category.
type Kind string

const (
	KindValidation             Kind = "BadRequest"
	KindFraudulentCounterparty Kind = "FraudulentAccount"
	KindInsufficientBalance    Kind = "InsufficientBalance"
	KindAccountNotFound        Kind = "AccountNotFound"
	KindCounterpartyNotFound   Kind = "CounterAccountNotFound"
	KindUnauthorized           Kind = "NotAuthorized"
	KindDispatchFailure        Kind = "DispatchFailure"
	KindInternal               Kind = "InternalError"
)

// Error carries a kind, a human-readable message and an optional cause.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// New creates a typed error without a cause.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap creates a typed error wrapping a cause.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf extracts the kind of err, defaulting to KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Status maps an error kind to its HTTP status code.
func Status(kind Kind) int {
	switch kind {
	case KindValidation, KindInsufficientBalance:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindFraudulentCounterparty:
		return http.StatusForbidden
	case KindAccountNotFound, KindCounterpartyNotFound:
		return http.StatusNotFound
	case KindDispatchFailure, KindInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// Message returns the user-facing message of err. Internal causes are not
// leaked for KindInternal errors.
func Message(err error) string {
	var e *Error
	if stderrors.As(err, &e) {
		if e.Kind == KindInternal {
			return "internal server error"
		}
		return e.Message
	}
	return "internal server error"
}
