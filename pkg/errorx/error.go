package errorx

import (
	"errors"
	"fmt"
)

// Error is the typed result returned by every core operation. Message is the
// stable, user-facing text of the kind; Detail carries call-specific context.
type Error struct {
	Kind    Kind
	Message string
	Detail  string
	cause   error
}

func (e *Error) Error() string {
	if e.Detail == "" {
		return e.Message
	}
	return e.Message + ": " + e.Detail
}

func (e *Error) Unwrap() error {
	return e.cause
}

// Is matches any *Error of the same kind, so callers can write
// errors.Is(err, errorx.ErrInsufficientFunds).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

func New(kind Kind, format string, args ...interface{}) *Error {
	return &Error{
		Kind:    kind,
		Message: kind.Message(),
		Detail:  fmt.Sprintf(format, args...),
	}
}

// Wrap attaches kind to an underlying error, keeping it reachable by errors.As.
func Wrap(kind Kind, err error, format string, args ...interface{}) *Error {
	e := New(kind, format, args...)
	e.cause = err
	return e
}

// KindOf reports the kind of err, or Internal for errors outside the taxonomy.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}

// Retryable reports whether the caller may retry the same request unchanged.
func Retryable(err error) bool {
	return KindOf(err) == ConcurrentModification
}
