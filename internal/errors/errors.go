// Package errors defines the engine's error taxonomy: InvalidInput, IO,
// Encoding, ParseFailure and InternalLock, each carrying enough context to
// build a human-readable Error{message} response at the command-router
// boundary.
package errors

import (
	"fmt"
	"time"
)

// ErrorType classifies an engine error per the taxonomy in spec §7.
type ErrorType string

const (
	// ErrorTypeInvalidInput covers non-absolute paths, start > end,
	// start >= line_count, invalid regex, and invalid JSON commands.
	ErrorTypeInvalidInput ErrorType = "invalid_input"

	// ErrorTypeIO covers open/seek/read/metadata failures.
	ErrorTypeIO ErrorType = "io"

	// ErrorTypeEncoding covers an unrecognized encoding label; non-fatal,
	// coerced to AsciiCompatible by the caller.
	ErrorTypeEncoding ErrorType = "encoding"

	// ErrorTypeParseFailure covers a per-line regex non-match or
	// column-count mismatch; never fatal to the enclosing operation.
	ErrorTypeParseFailure ErrorType = "parse_failure"

	// ErrorTypeInternalLock covers a poisoned/unavailable file-state mutex;
	// fatal at the router level.
	ErrorTypeInternalLock ErrorType = "internal_lock"
)

// EngineError is the common error shape for every taxonomy member.
type EngineError struct {
	Type       ErrorType
	Operation  string
	Path       string
	Underlying error
	Timestamp  time.Time
}

func newEngineError(t ErrorType, op string, err error) *EngineError {
	return &EngineError{
		Type:       t,
		Operation:  op,
		Underlying: err,
		Timestamp:  time.Now(),
	}
}

// WithPath attaches a file path to the error for display.
func (e *EngineError) WithPath(path string) *EngineError {
	e.Path = path
	return e
}

// Error implements the error interface.
func (e *EngineError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s failed for %s: %v", e.Type, e.Operation, e.Path, e.Underlying)
	}
	return fmt.Sprintf("%s: %s failed: %v", e.Type, e.Operation, e.Underlying)
}

// Unwrap supports errors.Is/errors.As against the underlying cause.
func (e *EngineError) Unwrap() error {
	return e.Underlying
}

// Is reports whether target is an *EngineError of the same Type, so callers
// can do errors.Is(err, &EngineError{Type: ErrorTypeInvalidInput}).
func (e *EngineError) Is(target error) bool {
	te, ok := target.(*EngineError)
	if !ok {
		return false
	}
	return te.Type == e.Type
}

func InvalidInput(op string, err error) *EngineError {
	return newEngineError(ErrorTypeInvalidInput, op, err)
}

func IO(op string, err error) *EngineError {
	return newEngineError(ErrorTypeIO, op, err)
}

func Encoding(op string, err error) *EngineError {
	return newEngineError(ErrorTypeEncoding, op, err)
}

func ParseFailure(op string, err error) *EngineError {
	return newEngineError(ErrorTypeParseFailure, op, err)
}

func InternalLock(op string, err error) *EngineError {
	return newEngineError(ErrorTypeInternalLock, op, err)
}

// IsFatal reports whether an error of this taxonomy should be treated as
// fatal by a command-router (only a poisoned file-state lock is fatal; all
// other types surface as a plain Error response and the loop continues).
func IsFatal(err error) bool {
	ee, ok := err.(*EngineError)
	if !ok {
		return false
	}
	return ee.Type == ErrorTypeInternalLock
}
