package core

import (
	"errors"
	"fmt"
)

// Kind is the stable, machine-checkable category of a domain failure.
type Kind string

const (
	KindInvalidInput Kind = "invalid_input"
	KindNotFound     Kind = "not_found"
	KindForbidden    Kind = "forbidden"
	KindConflict     Kind = "conflict"
	KindFatal        Kind = "fatal"
)

// Error is a domain failure with a kind, an optional offending field and a
// human readable message.
type Error struct {
	Kind    Kind
	Field   string
	Message string
	Err     error
}

// Kind sentinels for errors.Is. A sentinel matches any *Error of the same kind.
var (
	ErrInvalidInput = &Error{Kind: KindInvalidInput}
	ErrNotFound     = &Error{Kind: KindNotFound}
	ErrForbidden    = &Error{Kind: KindForbidden}
	ErrConflict     = &Error{Kind: KindConflict}
	ErrFatal        = &Error{Kind: KindFatal}
)

// ErrInvalidAmount is returned by amount parsing helpers.
var ErrInvalidAmount = errors.New("invalid amount")

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Field != "" {
		msg = e.Field + ": " + msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Message == "" && t.Field == ""
}

// InvalidInput reports a rejected argument before any mutation happened.
func InvalidInput(field, format string, args ...any) *Error {
	return &Error{Kind: KindInvalidInput, Field: field, Message: fmt.Sprintf(format, args...)}
}

// NotFound reports a missing resource, or one the caller is not allowed to see.
func NotFound(resource string, id int64) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf("%s %d not found", resource, id)}
}

func Forbidden(format string, args ...any) *Error {
	return &Error{Kind: KindForbidden, Message: fmt.Sprintf(format, args...)}
}

// Conflict reports a violated state or uniqueness rule.
func Conflict(format string, args ...any) *Error {
	return &Error{Kind: KindConflict, Message: fmt.Sprintf(format, args...)}
}

// Fatal reports a broken invariant, such as an enum value the arithmetic does
// not know how to handle.
func Fatal(format string, args ...any) *Error {
	return &Error{Kind: KindFatal, Message: fmt.Sprintf(format, args...)}
}

// KindOf extracts the kind of a domain error anywhere in the chain, or ""
// when err carries none.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return ""
}
