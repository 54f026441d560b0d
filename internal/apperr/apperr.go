// Package apperr classifies failures so transports can map them onto
// status codes without matching on message text.
package apperr

import (
	"errors"
	"fmt"
)

// Kind is the category of a failure
type Kind string

const (
	KindValidation        Kind = "validation"
	KindAuthentication    Kind = "authentication"
	KindAuthorization     Kind = "authorization"
	KindNotFound          Kind = "not_found"
	KindConflict          Kind = "conflict"
	KindInsufficientFunds Kind = "insufficient_funds"
	KindRateLimited       Kind = "rate_limited"
	KindInternal          Kind = "internal"
)

// Error is a classified failure. Code is a stable machine-readable
// identifier such as "username_taken"; Message is safe to show to clients.
type Error struct {
	Kind    Kind
	Code    string
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

// Is matches another *Error with the same kind and code, so sentinels
// survive wrapping with extra context.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind && e.Code == t.Code
}

// New creates a classified error
func New(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

// Wrap classifies err, keeping it reachable through errors.Unwrap
func Wrap(err error, kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message, Err: err}
}

// KindOf resolves the kind of err. Errors that were never classified are internal.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	var kinded interface{ ErrorKind() Kind }
	if errors.As(err, &kinded) {
		return kinded.ErrorKind()
	}
	return KindInternal
}

// As returns the outermost *Error in err's chain, if any
func As(err error) (*Error, bool) {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}
