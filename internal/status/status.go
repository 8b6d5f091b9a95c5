// Package status defines the error kinds reported by graph validation.
//
// Every error returned by the validated-config surface carries one of four
// codes. Callers classify errors with CodeOf or the Is* helpers, which use
// errors.As and therefore see through fmt.Errorf("%w") wrapping.
package status

import (
	"errors"
	"fmt"
)

// Code categorizes a validation error.
type Code string

const (
	// OK is reported by CodeOf for a nil error.
	OK Code = "OK"

	// NotFound indicates a named template or calculator is not registered.
	NotFound Code = "NOT_FOUND"

	// InvalidArgument indicates a query named an absent edge, or a runtime
	// side packet is missing or has the wrong type.
	InvalidArgument Code = "INVALID_ARGUMENT"

	// Unknown indicates an edge exists but has no registered type.
	Unknown Code = "UNKNOWN"

	// Internal indicates a structurally malformed configuration: template
	// recursion, duplicate producers, dangling edges, type conflicts.
	Internal Code = "INTERNAL"
)

// Error is a coded validation error.
type Error struct {
	// Code identifies the error category.
	Code Code

	// Message is a human-readable description.
	Message string

	// Err is the underlying cause, if any.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

func newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// NotFoundf creates a NotFound error.
func NotFoundf(format string, args ...any) *Error {
	return newf(NotFound, format, args...)
}

// InvalidArgumentf creates an InvalidArgument error.
func InvalidArgumentf(format string, args ...any) *Error {
	return newf(InvalidArgument, format, args...)
}

// Unknownf creates an Unknown error.
func Unknownf(format string, args ...any) *Error {
	return newf(Unknown, format, args...)
}

// Internalf creates an Internal error.
func Internalf(format string, args ...any) *Error {
	return newf(Internal, format, args...)
}

// Wrapf adds context to err while keeping its code. Errors without a code
// are classified as Internal. Wrapf returns nil for a nil err.
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	code := CodeOf(err)
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Err: err}
}

// CodeOf returns the code carried by err. A nil error is OK; an error that
// carries no code is Internal.
func CodeOf(err error) Code {
	if err == nil {
		return OK
	}
	var se *Error
	if errors.As(err, &se) {
		return se.Code
	}
	return Internal
}

// IsNotFound reports whether err is a NotFound error.
func IsNotFound(err error) bool {
	return err != nil && CodeOf(err) == NotFound
}

// IsInvalidArgument reports whether err is an InvalidArgument error.
func IsInvalidArgument(err error) bool {
	return err != nil && CodeOf(err) == InvalidArgument
}

// IsUnknown reports whether err is an Unknown error.
func IsUnknown(err error) bool {
	return err != nil && CodeOf(err) == Unknown
}

// IsInternal reports whether err is an Internal error.
func IsInternal(err error) bool {
	return err != nil && CodeOf(err) == Internal
}
