package errors

import "fmt"

// Category represents the type of error.
type Category string

const (
	CategoryConfig   Category = "config"
	CategorySocket   Category = "socket"
	CategoryRuntime  Category = "runtime"
	CategoryProtocol Category = "protocol"
	CategoryCLI      Category = "cli"
)

// DaemonError is a structured error with a stable code, a suggestion
// and documentation pointers.
type DaemonError struct {
	// Code is a unique error identifier (e.g., "E201").
	Code string

	// Category is the error type (config, socket, etc.).
	Category Category

	// Message is a short description of the error.
	Message string

	// Detail is a longer explanation of the error.
	Detail string

	// Suggestion is a hint on how to fix the error.
	Suggestion string

	// DocURL is a link to documentation about this error.
	DocURL string

	// Wrapped is the underlying error, if any.
	Wrapped error
}

// Error implements the error interface.
func (e *DaemonError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return e.Message
}

// Unwrap returns the wrapped error for errors.Is/As support.
func (e *DaemonError) Unwrap() error {
	return e.Wrapped
}

// WithDetail adds a detailed explanation to the error.
func (e *DaemonError) WithDetail(d string) *DaemonError {
	e.Detail = d
	return e
}

// WithSuggestion adds a fix suggestion to the error.
func (e *DaemonError) WithSuggestion(s string) *DaemonError {
	e.Suggestion = s
	return e
}

// Wrap wraps another error.
func (e *DaemonError) Wrap(err error) *DaemonError {
	e.Wrapped = err
	if e.Detail == "" && err != nil {
		e.Detail = err.Error()
	}
	return e
}

// New creates a DaemonError from a registered error code.
func New(code string) *DaemonError {
	template, ok := registry[code]
	if !ok {
		return &DaemonError{
			Code:    code,
			Message: "Unknown error",
		}
	}
	return &DaemonError{
		Code:       code,
		Category:   template.Category,
		Message:    template.Message,
		Detail:     template.Detail,
		Suggestion: template.Suggestion,
		DocURL:     template.DocURL,
	}
}

// Newf creates a DaemonError with a formatted message (no code).
func Newf(category Category, format string, args ...any) *DaemonError {
	return &DaemonError{
		Category: category,
		Message:  fmt.Sprintf(format, args...),
	}
}

// FromError wraps a standard error under the given code. Already-coded
// errors pass through unchanged.
func FromError(err error, code string) *DaemonError {
	if err == nil {
		return nil
	}
	if de, ok := err.(*DaemonError); ok {
		return de
	}
	return New(code).Wrap(err)
}
