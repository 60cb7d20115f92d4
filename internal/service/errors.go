// Package service implements the task lifecycle manager, the sole
// writer of task state, and the expired-task sweeper built on top of it.
package service

import (
	"errors"
	"fmt"
)

// Common service errors.
var (
	// ErrNotFound is returned when a lifecycle operation references a
	// task that does not exist.
	ErrNotFound = errors.New("task not found")

	// ErrNotOwned is returned when a lifecycle operation references a
	// task owned by a different user. Cross-user access always fails.
	ErrNotOwned = errors.New("task not owned by user")
)

// TaskServiceError is a custom error type for task service errors.
type TaskServiceError struct {
	Operation string
	Message   string
	Err       error
}

// Error implements the error interface for TaskServiceError.
func (e *TaskServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("task service %s failed: %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("task service %s failed: %s", e.Operation, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *TaskServiceError) Unwrap() error {
	return e.Err
}

// NewTaskServiceError creates a new TaskServiceError.
func NewTaskServiceError(operation, message string, err error) *TaskServiceError {
	return &TaskServiceError{
		Operation: operation,
		Message:   message,
		Err:       err,
	}
}
