// Package errors provides structured error types for dmfbsynth.
//
// This package defines error codes and types that enable:
//   - Consistent error handling across the library, CLI and HTTP API
//   - Machine-readable error codes for programmatic handling
//   - User-friendly error messages
//   - Error wrapping with context preservation
//
// Only structural and configuration problems are reported as errors.
// A synthesis stage that runs but cannot satisfy its constraints returns a
// feasibility report instead (see package feasibility).
//
// # Error Codes
//
// Error codes follow a hierarchical naming convention:
//   - INVALID_*: Malformed problem instances, options or files
//   - UNKNOWN_* / *_NOT_FOUND: References to things that do not exist
//   - ADAPTER_*: External synthesis tool failures
//   - INTERNAL_*: Unexpected internal errors
//
// # Usage
//
//	err := errors.New(errors.ErrCodeUnknownModule, "operation %d: unknown module type %q", id, name)
//	if errors.Is(err, errors.ErrCodeUnknownModule) {
//	    // Handle structural error
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeAdapterFailed, origErr, "run %s", tool)
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Problem structure errors
	ErrCodeInvalidProblem     Code = "INVALID_PROBLEM"
	ErrCodeCyclicDependency   Code = "CYCLIC_DEPENDENCY"
	ErrCodeUnknownModule      Code = "UNKNOWN_MODULE"
	ErrCodeUnknownOperation   Code = "UNKNOWN_OPERATION"
	ErrCodeDuplicateOperation Code = "DUPLICATE_OPERATION"

	// Input validation errors
	ErrCodeInvalidInput  Code = "INVALID_INPUT"
	ErrCodeInvalidFormat Code = "INVALID_FORMAT"
	ErrCodeInvalidConfig Code = "INVALID_CONFIG"
	ErrCodeInvalidPath   Code = "INVALID_PATH"

	// Resource not found errors
	ErrCodeNotFound     Code = "NOT_FOUND"
	ErrCodeFileNotFound Code = "FILE_NOT_FOUND"

	// Adapter errors
	ErrCodeAdapterUnavailable Code = "ADAPTER_UNAVAILABLE"
	ErrCodeAdapterFailed      Code = "ADAPTER_FAILED"

	// Runtime errors
	ErrCodeTimeout Code = "TIMEOUT"

	// Internal errors
	ErrCodeInternal    Code = "INTERNAL_ERROR"
	ErrCodeUnsupported Code = "UNSUPPORTED"
)

// Error is a structured error with a code and optional cause.
type Error struct {
	Code    Code   // Machine-readable error code
	Message string // Human-readable message
	Cause   error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a new Error with the given code and formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap creates a new Error wrapping an existing error.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// Is reports whether err has the given error code.
// It unwraps the error chain looking for an *Error with a matching code.
func Is(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// GetCode extracts the error code from an error, if available.
// Returns empty string if the error is not an *Error.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// UserMessage returns a user-friendly message for the error.
// For *Error types, returns the message without the code prefix.
// For other errors, returns the error string as-is.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}

// IsStructural reports whether err describes a malformed problem instance.
// Structural errors are never worth retrying with different options.
func IsStructural(err error) bool {
	switch GetCode(err) {
	case ErrCodeInvalidProblem, ErrCodeCyclicDependency, ErrCodeUnknownModule,
		ErrCodeUnknownOperation, ErrCodeDuplicateOperation, ErrCodeInvalidFormat:
		return true
	}
	return false
}
