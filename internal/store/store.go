// Package store defines the persistence boundary for task records.
//
// The interfaces here are storage-agnostic; the PostgreSQL
// implementation lives in internal/platform/postgres. Callers treat
// every method as durable and atomic per call.
package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/aviraln/nudge/internal/domain"
	"github.com/google/uuid"
)

// DBTX is an interface that abstracts the database access layer.
// It is implemented by both *sql.DB and *sql.Tx, allowing our code
// to work with either a database connection or a transaction.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	PrepareContext(ctx context.Context, query string) (*sql.Stmt, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// TaskStore persists task records.
type TaskStore interface {
	// Save inserts the task or, when a task with the same ID already
	// exists, replaces its mutable fields.
	Save(ctx context.Context, task *domain.Task) error

	// GetByID retrieves a task by its unique ID.
	// Returns ErrTaskNotFound if the task does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error)

	// LoadOpenTasks returns the user's open tasks ordered the same way
	// they are numbered for the user: tasks with a due time first in
	// ascending order, then by priority, then by creation time.
	LoadOpenTasks(ctx context.Context, userID string) ([]*domain.Task, error)

	// ListStaleWellness returns open recurring-wellness tasks created
	// before the cutoff. Used by the expired-task sweeper.
	ListStaleWellness(ctx context.Context, cutoff time.Time) ([]*domain.Task, error)

	// ListPendingReminders returns open tasks across all users that
	// have a due time and whose reminder has not been delivered yet.
	// Used to re-arm the scheduler after a restart.
	ListPendingReminders(ctx context.Context) ([]*domain.Task, error)
}
