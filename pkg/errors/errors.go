package errors

import (
	"errors"
	"fmt"
)

// Standardized error codes shared across the system.
const (
	CodeNotFound        = "NOT_FOUND"
	CodeAlreadyExists   = "ALREADY_EXISTS"
	CodeInvalidArgument = "INVALID_ARGUMENT"
	CodeConflict        = "CONFLICT"
	CodeForbidden       = "FORBIDDEN"
	CodeInternal        = "INTERNAL"
	CodeUnavailable     = "UNAVAILABLE"
)

// AppError is the standard error type used across the system. It carries a
// stable code for programmatic matching, a human-readable message, and an
// optional wrapped cause.
type AppError struct {
	Code    string
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap exposes the wrapped cause so errors.Is/errors.As keep working
// through an AppError.
func (e *AppError) Unwrap() error {
	return e.Err
}

// New builds an AppError with the given code, message and optional cause.
func New(code, message string, cause error) *AppError {
	return &AppError{Code: code, Message: message, Err: cause}
}

// Wrap annotates err with a message, preserving its code if it is already
// an AppError, otherwise classifying it as internal.
func Wrap(err error, message string) *AppError {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return &AppError{Code: appErr.Code, Message: message, Err: err}
	}
	return &AppError{Code: CodeInternal, Message: message, Err: err}
}

// NotFound builds an AppError with CodeNotFound.
func NotFound(message string, cause error) *AppError {
	return New(CodeNotFound, message, cause)
}

// AlreadyExists builds an AppError with CodeAlreadyExists.
func AlreadyExists(message string, cause error) *AppError {
	return New(CodeAlreadyExists, message, cause)
}

// InvalidArgument builds an AppError with CodeInvalidArgument.
func InvalidArgument(message string, cause error) *AppError {
	return New(CodeInvalidArgument, message, cause)
}

// Conflict builds an AppError with CodeConflict.
func Conflict(message string, cause error) *AppError {
	return New(CodeConflict, message, cause)
}

// Forbidden builds an AppError with CodeForbidden.
func Forbidden(message string, cause error) *AppError {
	return New(CodeForbidden, message, cause)
}

// Internal builds an AppError with CodeInternal.
func Internal(message string, cause error) *AppError {
	return New(CodeInternal, message, cause)
}

// Unavailable builds an AppError with CodeUnavailable.
func Unavailable(message string, cause error) *AppError {
	return New(CodeUnavailable, message, cause)
}

// HasCode reports whether err (or anything it wraps) is an AppError with
// the given code.
func HasCode(err error, code string) bool {
	var appErr *AppError
	if !errors.As(err, &appErr) {
		return false
	}
	return appErr.Code == code
}

// As is a re-export of the standard library's errors.As for callers that
// only import this package.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
