package errors

import (
	"errors"
)

// Sentinels for errors.Is comparisons by kind.
var (
	ErrCompile    = &Error{Kind: KindCompile}
	ErrSyntax     = &Error{Kind: KindSyntax}
	ErrIO         = &Error{Kind: KindIO}
	ErrConfig     = &Error{Kind: KindConfig}
	ErrValidation = &Error{Kind: KindValidation}
)

// Wrap wraps err as the given kind. An *Error keeps its task and location.
func Wrap(err error, kind Kind, message string) *Error {
	if err == nil {
		return nil
	}

	var e *Error
	if errors.As(err, &e) {
		return &Error{
			Kind:    kind,
			Task:    e.Task,
			File:    e.File,
			Line:    e.Line,
			Column:  e.Column,
			Message: message,
			Cause:   e,
		}
	}

	return &Error{Kind: kind, Message: message, Cause: err}
}

// KindOf returns the kind of the outermost *Error in err's chain, or
// KindInternal when there is none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// IsCompile reports whether err is a stylesheet compilation error.
func IsCompile(err error) bool {
	return errors.Is(err, ErrCompile)
}

// IsSyntax reports whether err is a script syntax error.
func IsSyntax(err error) bool {
	return errors.Is(err, ErrSyntax)
}

// Recoverable reports whether a watch session can continue after err.
// Source errors are fixed by editing and are picked up on the next change.
func Recoverable(err error) bool {
	switch KindOf(err) {
	case KindCompile, KindSyntax, KindValidation:
		return true
	default:
		return false
	}
}

// Title returns a short headline for developer notifications.
func Title(err error) string {
	var e *Error
	if !errors.As(err, &e) {
		return "Error"
	}
	switch e.Kind {
	case KindCompile:
		return "Compile error"
	case KindSyntax:
		return "Syntax error"
	case KindIO:
		return "File error"
	case KindConfig:
		return "Configuration error"
	case KindValidation:
		return "Invalid input"
	default:
		return "Error"
	}
}

// Message returns err's text without the task prefix, for display under a
// title that already names the task.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		cp := *e
		cp.Task = ""
		return cp.Error()
	}
	return err.Error()
}
