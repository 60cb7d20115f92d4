// Package domain defines the core business entities and errors.
package domain

import "errors"

// Common domain errors used across the application.
var (
	// ErrValidation is returned when a domain entity fails validation.
	// This is often wrapped with a more specific error message.
	ErrValidation = errors.New("validation failed")

	// ErrTaskIDEmpty is returned when a task ID is empty or nil.
	ErrTaskIDEmpty = errors.New("task ID cannot be empty")

	// ErrTaskUserIDEmpty is returned when a task's owning user ID is empty.
	ErrTaskUserIDEmpty = errors.New("task user ID cannot be empty")

	// ErrTaskDescriptionEmpty is returned when a task's description is empty.
	ErrTaskDescriptionEmpty = errors.New("task description cannot be empty")

	// ErrInvalidPriority is returned when a priority value is not one of
	// the defined priority levels.
	ErrInvalidPriority = errors.New("invalid task priority")

	// ErrInvalidStatus is returned when a task status is not valid.
	ErrInvalidStatus = errors.New("invalid task status")

	// ErrInvalidCategory is returned when a task category is not valid.
	ErrInvalidCategory = errors.New("invalid task category")

	// ErrInvalidTransition is returned when a status transition is not
	// allowed, such as completing an already expired task.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrSessionUserIDEmpty is returned when a clarification session has
	// no owning user.
	ErrSessionUserIDEmpty = errors.New("session user ID cannot be empty")
)

// ValidationError provides field-level context for a validation failure.
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

// Error implements the error interface for ValidationError.
func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *ValidationError) Unwrap() error {
	return e.Err
}

// NewValidationError creates a new ValidationError wrapping the given sentinel.
func NewValidationError(field, message string, err error) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
		Err:     err,
	}
}
