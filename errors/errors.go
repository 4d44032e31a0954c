// Package errors defines the error taxonomy shared by the layout, render and
// export stages.
//
// Every failure that reaches the command line carries a machine-readable
// [Code] so the shell can translate it into an operator-facing message:
//
//   - FONT_UNAVAILABLE: the requested family/style could not be resolved,
//     not even through the fallback font
//   - LAYOUT_OVERFLOW: auto-fit reached its floor without satisfying the
//     fit predicate (non-fatal, reported as a warning)
//   - IO_ERROR: a raster or document encoder failed to write
//   - EMPTY_BATCH: an export was requested with zero records
//   - INVALID_INPUT / INVALID_CONFIG: malformed records, preferences or
//     job configuration
//
// Usage:
//
//	err := errors.New(errors.ErrCodeEmptyBatch, "no records to export")
//	if errors.Is(err, errors.ErrCodeEmptyBatch) {
//	    // nothing was written
//	}
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

const (
	ErrCodeFontUnavailable Code = "FONT_UNAVAILABLE"
	ErrCodeLayoutOverflow  Code = "LAYOUT_OVERFLOW"
	ErrCodeIO              Code = "IO_ERROR"
	ErrCodeEmptyBatch      Code = "EMPTY_BATCH"
	ErrCodeInvalidInput    Code = "INVALID_INPUT"
	ErrCodeInvalidConfig   Code = "INVALID_CONFIG"
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

// Is reports whether any error in err's chain carries the given code.
func Is(err error, code Code) bool {
	for err != nil {
		var e *Error
		if !errors.As(err, &e) {
			return false
		}
		if e.Code == code {
			return true
		}
		err = e.Cause
	}
	return false
}

// GetCode extracts the outermost error code from an error, if available.
// Returns empty string if the chain holds no *Error.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// BatchError reports an export that stopped at a failing record. Files
// written for records before the failure are left in place; Completed says
// how many records reached the disk. When a combined output cannot be
// written, Index is the first record whose output was lost.
type BatchError struct {
	Index     int // zero-based index of the failing record
	Attempted int // records in the batch
	Completed int // records fully written before the batch stopped
	Cause     error
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("record %d failed (%d/%d completed): %v", e.Index+1, e.Completed, e.Attempted, e.Cause)
}

func (e *BatchError) Unwrap() error {
	return e.Cause
}

// AsBatch returns the BatchError in err's chain, if any.
func AsBatch(err error) (*BatchError, bool) {
	var be *BatchError
	if errors.As(err, &be) {
		return be, true
	}
	return nil, false
}
