// Package apierr defines the error taxonomy shared across the session
// engine's components (spec.md §7).
package apierr

import (
	"errors"
	"fmt"
)

// Kind classifies an error by how a caller should react to it, not by
// which component raised it.
type Kind string

const (
	// KindConfig marks invalid strategy parameters, raised at
	// construction. The session never starts.
	KindConfig Kind = "CONFIG"
	// KindConnection marks a non-order broker failure.
	KindConnection Kind = "CONNECTION"
	// KindOrder marks an order placement failure.
	KindOrder Kind = "ORDER"
	// KindState marks an illegal session state transition requested
	// through the control plane.
	KindState Kind = "STATE"
	// KindNotFound marks a manager operation referencing an unknown
	// session id.
	KindNotFound Kind = "NOT_FOUND"
)

// Error is a typed error carrying one of the Kind values above.
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

// Is reports whether target is an *Error with the same Kind, so
// errors.Is(err, &apierr.Error{Kind: apierr.KindConnection}) matches any
// *Error of that kind in err's chain; KindOf below extracts the kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// New constructs an *Error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap constructs an *Error of the given kind wrapping an underlying error.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// Config builds a CONFIG error.
func Config(format string, args ...any) *Error {
	return New(KindConfig, fmt.Sprintf(format, args...))
}

// Connection builds a CONNECTION error wrapping the cause.
func Connection(cause error, format string, args ...any) *Error {
	return Wrap(KindConnection, fmt.Sprintf(format, args...), cause)
}

// Order builds an ORDER error wrapping the cause.
func Order(cause error, format string, args ...any) *Error {
	return Wrap(KindOrder, fmt.Sprintf(format, args...), cause)
}

// State builds a STATE error.
func State(format string, args ...any) *Error {
	return New(KindState, fmt.Sprintf(format, args...))
}

// NotFound builds a NOT_FOUND error.
func NotFound(format string, args ...any) *Error {
	return New(KindNotFound, fmt.Sprintf(format, args...))
}

// KindOf returns the Kind of err if it is (or wraps) an *Error, and ok=false
// otherwise.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}
