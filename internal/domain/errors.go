package domain

import (
	"errors"
	"fmt"
)

// Kind classifies a domain error so callers can map it to a transport
// status or a retry policy without string-matching messages.
type Kind string

const (
	KindConfiguration         Kind = "CONFIGURATION_ERROR"
	KindValidation            Kind = "VALIDATION_ERROR"
	KindNotFound              Kind = "NOT_FOUND"
	KindConflict              Kind = "CONFLICT"
	KindDependencyUnavailable Kind = "DEPENDENCY_UNAVAILABLE"
	KindInternal              Kind = "INTERNAL"
)

// Error is the one error type every component returns. Field holds an
// optional pointer to the offending row/field for VALIDATION_ERROR.
type Error struct {
	Kind  Kind
	Msg   string
	Field string
	Err   error
}

func (e *Error) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s (field=%s)", e.Kind, e.Msg, e.Field)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

func newError(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

func Configuration(msg string, err error) *Error { return newError(KindConfiguration, msg, err) }
func Validation(msg, field string, err error) *Error {
	return &Error{Kind: KindValidation, Msg: msg, Field: field, Err: err}
}
func NotFound(msg string, err error) *Error { return newError(KindNotFound, msg, err) }
func Conflict(msg string, err error) *Error { return newError(KindConflict, msg, err) }
func DependencyUnavailable(msg string, err error) *Error {
	return newError(KindDependencyUnavailable, msg, err)
}
func Internal(msg string, err error) *Error { return newError(KindInternal, msg, err) }

// Is lets errors.Is(err, domain.ErrNotFound) style checks work against Kind.
func (e *Error) Is(target error) bool {
	var other *Error
	if errors.As(target, &other) {
		return e.Kind == other.Kind
	}
	return false
}

// KindOf extracts the Kind of err, defaulting to INTERNAL when err is not
// a *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}
