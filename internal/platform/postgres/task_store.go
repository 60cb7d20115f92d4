package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/aviraln/nudge/internal/domain"
	"github.com/aviraln/nudge/internal/store"
)

// taskColumns is the scan order shared by every SELECT in this file.
const taskColumns = `id, user_id, description, due, priority, status, category, reminder_sent, created_at, updated_at`

// openTaskOrder numbers tasks the way users see them: dated tasks
// first by due time, then higher priority, then older tasks first.
const openTaskOrder = `
	ORDER BY
		due ASC NULLS LAST,
		CASE priority WHEN 'high' THEN 0 WHEN 'normal' THEN 1 ELSE 2 END,
		created_at ASC
`

// PostgresTaskStore implements the store.TaskStore interface using PostgreSQL.
type PostgresTaskStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// Verify PostgresTaskStore implements store.TaskStore.
var _ store.TaskStore = (*PostgresTaskStore)(nil)

// NewPostgresTaskStore creates a new PostgresTaskStore.
func NewPostgresTaskStore(db store.DBTX, logger *slog.Logger) *PostgresTaskStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresTaskStore{
		db:     db,
		logger: logger.With(slog.String("component", "task_store")),
	}
}

// Save inserts the task or, when a row with the same ID exists,
// replaces its mutable fields.
func (s *PostgresTaskStore) Save(ctx context.Context, task *domain.Task) error {
	if err := task.Validate(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	query := `
		INSERT INTO tasks (` + taskColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			description = EXCLUDED.description,
			due = EXCLUDED.due,
			priority = EXCLUDED.priority,
			status = EXCLUDED.status,
			reminder_sent = EXCLUDED.reminder_sent,
			updated_at = EXCLUDED.updated_at
	`

	_, err := s.db.ExecContext(ctx, query,
		task.ID,
		task.UserID,
		task.Description,
		nullableTime(task.Due),
		task.Priority,
		task.Status,
		task.Category,
		task.ReminderSent,
		task.CreatedAt,
		task.UpdatedAt,
	)
	if err != nil {
		s.logger.Error("failed to save task",
			"task_id", task.ID,
			"error", err)
		return MapError(err)
	}

	return nil
}

// GetByID retrieves a task by its unique ID.
// Returns store.ErrTaskNotFound if the task does not exist.
func (s *PostgresTaskStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = $1`

	task, err := scanTask(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrTaskNotFound
		}
		s.logger.Error("failed to get task",
			"task_id", id,
			"error", err)
		return nil, MapError(err)
	}

	return task, nil
}

// LoadOpenTasks returns the user's open tasks in presentation order.
func (s *PostgresTaskStore) LoadOpenTasks(ctx context.Context, userID string) ([]*domain.Task, error) {
	query := `
		SELECT ` + taskColumns + `
		FROM tasks
		WHERE user_id = $1 AND status = $2
	` + openTaskOrder

	return s.queryTasks(ctx, "load open tasks", query, userID, domain.StatusOpen)
}

// ListStaleWellness returns open recurring-wellness tasks created
// before the cutoff.
func (s *PostgresTaskStore) ListStaleWellness(ctx context.Context, cutoff time.Time) ([]*domain.Task, error) {
	query := `
		SELECT ` + taskColumns + `
		FROM tasks
		WHERE status = $1 AND category = $2 AND created_at < $3
		ORDER BY created_at ASC
	`

	return s.queryTasks(ctx, "list stale wellness tasks", query,
		domain.StatusOpen, domain.CategoryWellness, cutoff)
}

// ListPendingReminders returns open tasks across all users that have a
// due time and no delivered reminder.
func (s *PostgresTaskStore) ListPendingReminders(ctx context.Context) ([]*domain.Task, error) {
	query := `
		SELECT ` + taskColumns + `
		FROM tasks
		WHERE status = $1 AND due IS NOT NULL AND reminder_sent = FALSE
		ORDER BY due ASC
	`

	return s.queryTasks(ctx, "list pending reminders", query, domain.StatusOpen)
}

// queryTasks runs a multi-row task query and scans the results.
func (s *PostgresTaskStore) queryTasks(ctx context.Context, operation, query string, args ...any) ([]*domain.Task, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		s.logger.Error("failed to "+operation, "error", err)
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	var tasks []*domain.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			s.logger.Error("failed to scan task row", "error", err)
			return nil, MapError(err)
		}
		tasks = append(tasks, task)
	}

	if err := rows.Err(); err != nil {
		s.logger.Error("error iterating task rows", "error", err)
		return nil, MapError(err)
	}

	return tasks, nil
}

// rowScanner matches *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*domain.Task, error) {
	var task domain.Task
	var due sql.NullTime

	err := row.Scan(
		&task.ID,
		&task.UserID,
		&task.Description,
		&due,
		&task.Priority,
		&task.Status,
		&task.Category,
		&task.ReminderSent,
		&task.CreatedAt,
		&task.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if due.Valid {
		at := due.Time.UTC()
		task.Due = &at
	}

	return &task, nil
}

func nullableTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}
