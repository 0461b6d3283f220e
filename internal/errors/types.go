// Package errors defines the structured error type shared by every asset
// task. Compile and syntax failures carry a source location so they can be
// rendered in the terminal and in the browser overlay.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Kind represents the category of a failure.
type Kind string

const (
	KindCompile    Kind = "compile"
	KindSyntax     Kind = "syntax"
	KindIO         Kind = "io"
	KindConfig     Kind = "config"
	KindValidation Kind = "validation"
	KindInternal   Kind = "internal"
)

// Error is a structured error with task and location context.
type Error struct {
	Kind    Kind
	Task    string
	File    string
	Line    int
	Column  int
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	var parts []string

	if e.Task != "" {
		parts = append(parts, "["+e.Task+"]")
	}

	if loc := e.Location(); loc != "" {
		parts = append(parts, loc+":")
	}

	parts = append(parts, e.Message)

	result := strings.Join(parts, " ")

	if e.Cause != nil {
		result += fmt.Sprintf(": %v", e.Cause)
	}

	return result
}

// Location returns file:line:column, omitting the parts that are unknown.
func (e *Error) Location() string {
	if e.File == "" {
		return ""
	}
	location := e.File
	if e.Line > 0 {
		location += fmt.Sprintf(":%d", e.Line)
		if e.Column > 0 {
			location += fmt.Sprintf(":%d", e.Column)
		}
	}
	return location
}

// Unwrap returns the underlying cause error.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an *Error of the same kind.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Kind == t.Kind
	}

	return false
}

// WithTask sets the task that produced the error.
func (e *Error) WithTask(task string) *Error {
	e.Task = task

	return e
}

// WithLocation adds file location information.
func (e *Error) WithLocation(file string, line, column int) *Error {
	e.File = file
	e.Line = line
	e.Column = column

	return e
}

// NewCompileError creates a stylesheet compilation error.
func NewCompileError(message string, cause error) *Error {
	return &Error{Kind: KindCompile, Message: message, Cause: cause}
}

// NewSyntaxError creates a script syntax error.
func NewSyntaxError(message string, cause error) *Error {
	return &Error{Kind: KindSyntax, Message: message, Cause: cause}
}

// NewIOError creates a filesystem error.
func NewIOError(message string, cause error) *Error {
	return &Error{Kind: KindIO, Message: message, Cause: cause}
}

// NewConfigError creates a configuration error.
func NewConfigError(message string) *Error {
	return &Error{Kind: KindConfig, Message: message}
}

// NewValidationError creates a validation error.
func NewValidationError(message string) *Error {
	return &Error{Kind: KindValidation, Message: message}
}

// NewInternalError creates an internal error.
func NewInternalError(message string, cause error) *Error {
	return &Error{Kind: KindInternal, Message: message, Cause: cause}
}
