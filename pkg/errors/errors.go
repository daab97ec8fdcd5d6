// Package errors provides structured error handling for tabulate
package errors

import (
	"errors"
	"fmt"
	"runtime"
	"sort"
	"strings"
)

// ErrorType represents the category of error
type ErrorType string

const (
	// ErrorTypeInternal represents internal errors that indicate a programming mistake
	ErrorTypeInternal ErrorType = "internal"
	// ErrorTypeConfig represents configuration errors
	ErrorTypeConfig ErrorType = "config"
	// ErrorTypeSourceNotFound is returned when the input document cannot be located
	ErrorTypeSourceNotFound ErrorType = "source_not_found"
	// ErrorTypeMalformedSource is returned on structural parse failures of the input
	ErrorTypeMalformedSource ErrorType = "malformed_source"
	// ErrorTypeTypeCoercion is returned when an attribute cannot be coerced to its kind
	ErrorTypeTypeCoercion ErrorType = "type_coercion"
	// ErrorTypeSchemaViolation is returned when a text value exceeds its size bound
	ErrorTypeSchemaViolation ErrorType = "schema_violation"
	// ErrorTypeSchema represents invalid schema definitions or lifecycle misuse
	ErrorTypeSchema ErrorType = "schema"
	// ErrorTypeUnknownColumn is returned for access to an undeclared column
	ErrorTypeUnknownColumn ErrorType = "unknown_column"
	// ErrorTypeIndexOutOfRange is returned for row access beyond the table bounds
	ErrorTypeIndexOutOfRange ErrorType = "index_out_of_range"
	// ErrorTypeQuery represents analytics query errors
	ErrorTypeQuery ErrorType = "query"
	// ErrorTypeFile represents file operation errors
	ErrorTypeFile ErrorType = "file"
	// ErrorTypeData represents data conversion errors in cache and export formats
	ErrorTypeData ErrorType = "data"
)

// Error represents a structured error with context
type Error struct {
	Type    ErrorType
	Message string
	Cause   error
	Details map[string]interface{}
	Stack   []StackFrame
}

// StackFrame represents a single frame in the call stack
type StackFrame struct {
	Function string
	File     string
	Line     int
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// WithDetail adds a key-value detail to the error
func (e *Error) WithDetail(key string, value interface{}) *Error {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// New creates a new error with the given type and message
func New(errType ErrorType, message string) *Error {
	return &Error{
		Type:    errType,
		Message: message,
		Stack:   captureStack(2),
	}
}

// Newf creates a new error with a formatted message
func Newf(errType ErrorType, format string, args ...interface{}) *Error {
	return &Error{
		Type:    errType,
		Message: fmt.Sprintf(format, args...),
		Stack:   captureStack(2),
	}
}

// Wrap wraps an existing error with additional context
func Wrap(err error, errType ErrorType, message string) *Error {
	if err == nil {
		return nil
	}

	// If already our error type, preserve the stack
	var existingErr *Error
	if errors.As(err, &existingErr) {
		return &Error{
			Type:    errType,
			Message: message,
			Cause:   err,
			Stack:   existingErr.Stack,
		}
	}

	return &Error{
		Type:    errType,
		Message: message,
		Cause:   err,
		Stack:   captureStack(2),
	}
}

// IsType checks if the error, or any structured error it wraps, is of the given type
func IsType(err error, errType ErrorType) bool {
	for err != nil {
		var e *Error
		if !errors.As(err, &e) {
			return false
		}
		if e.Type == errType {
			return true
		}
		err = e.Cause
	}
	return false
}

// TypeOf returns the type of the outermost *Error in the chain, or ErrorTypeInternal
// when err is not a structured error.
func TypeOf(err error) ErrorType {
	var e *Error
	if !errors.As(err, &e) {
		return ErrorTypeInternal
	}
	return e.Type
}

// Describe renders err with the details of every structured error in its
// chain, sorted by key, for display to an operator
func Describe(err error) string {
	if err == nil {
		return ""
	}
	var parts []string
	for e := err; e != nil; {
		var se *Error
		if !errors.As(e, &se) {
			break
		}
		keys := make([]string, 0, len(se.Details))
		for k := range se.Details {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			parts = append(parts, fmt.Sprintf("%s=%v", k, se.Details[k]))
		}
		e = se.Cause
	}
	if len(parts) == 0 {
		return err.Error()
	}
	return err.Error() + " (" + strings.Join(parts, ", ") + ")"
}

// captureStack records up to 32 frames above its caller's caller
func captureStack(skip int) []StackFrame {
	pcs := make([]uintptr, 32)
	n := runtime.Callers(skip+1, pcs)
	if n == 0 {
		return nil
	}

	frames := runtime.CallersFrames(pcs[:n])
	stack := make([]StackFrame, 0, n)
	for {
		f, more := frames.Next()
		stack = append(stack, StackFrame{Function: f.Function, File: f.File, Line: f.Line})
		if !more {
			break
		}
	}
	return stack
}
