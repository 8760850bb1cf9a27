package api

import (
	"errors"
	"fmt"
)

var (
	// ErrAuthExpired is returned after the server answered 401. The session
	// has already been cleared and event.TypeAuthExpired dispatched.
	ErrAuthExpired = errors.New("authentication expired")

	// ErrNotAuthenticated is returned by calls that need a signed-in user
	ErrNotAuthenticated = errors.New("not signed in")

	// ErrEmptyResponse is returned by calls whose result is required when
	// the server answered success with null data
	ErrEmptyResponse = errors.New("server returned no data")
)

// NetworkError is a transport failure with no usable response
type NetworkError struct {
	Method string
	Path   string
	Err    error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error on %s %s: %v", e.Method, e.Path, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// ApplicationError is a response whose envelope code is not 200. Message is
// the server's text and is shown to the user as-is.
type ApplicationError struct {
	Code    int
	Message string
}

func (e *ApplicationError) Error() string {
	return e.Message
}

// ValidationError is raised before any request is sent
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

func (e *ValidationError) Error() string {
	return e.Message
}

func (e *ValidationError) Unwrap() error { return e.Err }

// NewValidationError creates a validation error for field
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// Message returns the text a view should show for err, or fallback when the
// error carries no server or validation message
func Message(err error, fallback string) string {
	var appErr *ApplicationError
	if errors.As(err, &appErr) && appErr.Message != "" {
		return appErr.Message
	}
	var valErr *ValidationError
	if errors.As(err, &valErr) && valErr.Message != "" {
		return valErr.Message
	}
	return fallback
}
