package errorwrapper

import (
	"errors"
	"fmt"
)

// Common error types used across the application
var (
	// ErrNotFound indicates a resource was not found
	ErrNotFound = errors.New("not found")
	// ErrInvalidConfiguration indicates configuration issues
	ErrInvalidConfiguration = errors.New("invalid configuration")
	// ErrServiceUnavailable indicates a service is not available
	ErrServiceUnavailable = errors.New("service unavailable")
)

// WrapError wraps an error with additional context information
func WrapError(err error, message string) error {
	if err == nil {
		return fmt.Errorf("%s: <nil>", message)
	}
	return fmt.Errorf("%s: %w", message, err)
}

// NewError creates a new error with a formatted message
func NewError(format string, args ...interface{}) error {
	return fmt.Errorf(format, args...)
}

// ValidationError represents validation errors with field-specific information
type ValidationError struct {
	Field   string
	Value   any
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: field '%s' with value '%v': %s", e.Field, e.Value, e.Message)
}

// NewValidationError creates a new validation error
func NewValidationError(field string, value any, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Value:   value,
		Message: message,
	}
}

// StoreError represents a persistence-layer failure for one operation
type StoreError struct {
	Operation string
	Path      string
	Wrapped   error
}

func (e *StoreError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("store error during '%s': %v", e.Operation, e.Wrapped)
	}
	return fmt.Sprintf("store error during '%s' for path '%s': %v", e.Operation, e.Path, e.Wrapped)
}

func (e *StoreError) Unwrap() error {
	return e.Wrapped
}

// NewStoreError creates a new store error
func NewStoreError(operation, path string, wrapped error) *StoreError {
	return &StoreError{
		Operation: operation,
		Path:      path,
		Wrapped:   wrapped,
	}
}

// IsStoreError reports whether err is or wraps a StoreError
func IsStoreError(err error) bool {
	var storeErr *StoreError
	return errors.As(err, &storeErr)
}
