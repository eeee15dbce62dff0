// Package apperr defines the closed error taxonomy shared by all services.
// Handlers map kinds to HTTP statuses in exactly one place (pkg/response).
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an error for transport mapping.
type Kind int

const (
	KindUnknown Kind = iota
	KindNotFound
	KindForbidden
	KindInvalidCredential
	KindInvalidInput
	KindInvalidState
	KindConflict
	KindRateLimited
	KindStorage
)

// Error carries a kind, an operator-safe message, and an optional cause.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the kind of err, or KindUnknown for errors outside the
// taxonomy.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// Is lets errors.Is match two taxonomy errors by kind.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.Kind == t.Kind
}

// NotFound returns a KindNotFound error.
func NotFound(msg string) error { return &Error{Kind: KindNotFound, Msg: msg} }

// Forbidden returns a KindForbidden error.
func Forbidden(msg string) error { return &Error{Kind: KindForbidden, Msg: msg} }

// InvalidCredential returns a KindInvalidCredential error.
func InvalidCredential(msg string) error { return &Error{Kind: KindInvalidCredential, Msg: msg} }

// InvalidInput returns a KindInvalidInput error.
func InvalidInput(msg string) error { return &Error{Kind: KindInvalidInput, Msg: msg} }

// InvalidState returns a KindInvalidState error.
func InvalidState(msg string) error { return &Error{Kind: KindInvalidState, Msg: msg} }

// Conflict returns a KindConflict error.
func Conflict(msg string) error { return &Error{Kind: KindConflict, Msg: msg} }

// RateLimited returns a KindRateLimited error.
func RateLimited(msg string) error { return &Error{Kind: KindRateLimited, Msg: msg} }

// Storage wraps an underlying store error as KindStorage.
func Storage(msg string, err error) error { return &Error{Kind: KindStorage, Msg: msg, Err: err} }
