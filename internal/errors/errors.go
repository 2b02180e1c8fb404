// internal/errors/errors.go

// Package errors classifies build failures by category and severity so the
// orchestrator can tell fatal initialization problems apart from per-file
// failures that only cost a single page.
package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCategory represents the broad category of an error.
type ErrorCategory string

const (
	CategoryConfig     ErrorCategory = "config"
	CategoryBuild      ErrorCategory = "build"
	CategoryFileSystem ErrorCategory = "filesystem"
	CategoryTemplate   ErrorCategory = "template"
	CategorySyntax     ErrorCategory = "syntax"
	CategoryInternal   ErrorCategory = "internal"
)

// ErrorSeverity indicates the impact level of an error.
type ErrorSeverity string

const (
	SeverityFatal   ErrorSeverity = "fatal"   // Stops the build before any page is processed
	SeverityError   ErrorSeverity = "error"   // Fails the current page or artifact
	SeverityWarning ErrorSeverity = "warning" // Continues with degraded output
)

// ClassifiedError is an error carrying a category, a severity and free-form context.
type ClassifiedError struct {
	category ErrorCategory
	severity ErrorSeverity
	message  string
	cause    error
	context  map[string]any
}

func (e *ClassifiedError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("[%s:%s] %s: %v", e.category, e.severity, e.message, e.cause)
	}
	return fmt.Sprintf("[%s:%s] %s", e.category, e.severity, e.message)
}

func (e *ClassifiedError) Unwrap() error { return e.cause }

func (e *ClassifiedError) Category() ErrorCategory { return e.category }
func (e *ClassifiedError) Severity() ErrorSeverity { return e.severity }
func (e *ClassifiedError) Message() string         { return e.message }

// Context returns the value recorded under key, if any.
func (e *ClassifiedError) Context(key string) (any, bool) {
	v, ok := e.context[key]
	return v, ok
}

// IsFatal reports whether the error must stop the whole build.
func (e *ClassifiedError) IsFatal() bool { return e.severity == SeverityFatal }

// AsClassified finds the first ClassifiedError in err's chain.
func AsClassified(err error) (*ClassifiedError, bool) {
	var ce *ClassifiedError
	if stderrors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}

// HasCategory checks if any error in the chain belongs to a category.
func HasCategory(err error, category ErrorCategory) bool {
	if ce, ok := AsClassified(err); ok {
		return ce.category == category
	}
	return false
}

// IsFatal reports whether err carries a fatal classification.
func IsFatal(err error) bool {
	if ce, ok := AsClassified(err); ok {
		return ce.IsFatal()
	}
	return false
}

// GetCategory extracts the category from an error, or returns CategoryInternal.
func GetCategory(err error) ErrorCategory {
	if ce, ok := AsClassified(err); ok {
		return ce.category
	}
	return CategoryInternal
}
