package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/aviraln/nudge/internal/domain"
	"github.com/aviraln/nudge/internal/platform/logger"
	"github.com/aviraln/nudge/internal/store"
	"github.com/google/uuid"
)

// ReminderRegistry is the scheduler surface the lifecycle manager
// drives. Both calls are idempotent and safe from any goroutine.
type ReminderRegistry interface {
	Schedule(taskID uuid.UUID, userID string, fireAt time.Time)
	Cancel(taskID uuid.UUID)
}

// TaskService owns all task status transitions. Every operation is
// scoped to the requesting user; reminder registration and cancellation
// happen synchronously before an operation reports success, so a task
// that is completed or expired never has a live reminder.
type TaskService interface {
	// Create stores a new open task and registers its reminder when a
	// due time is set.
	Create(ctx context.Context, userID, description string, due *time.Time, priority domain.Priority, category domain.Category) (*domain.Task, error)

	// Complete transitions the user's task to completed and cancels any
	// live reminder. Fails with ErrNotFound or ErrNotOwned.
	Complete(ctx context.Context, userID string, taskID uuid.UUID) (*domain.Task, error)

	// Update applies the given field changes to the user's open task,
	// rescheduling the reminder when the due time changes.
	// Fails with ErrNotFound, ErrNotOwned or ErrInvalidTransition.
	Update(ctx context.Context, userID string, taskID uuid.UUID, update domain.TaskUpdate) (*domain.Task, error)

	// ListOpen returns the user's open tasks in presentation order.
	ListOpen(ctx context.Context, userID string) ([]*domain.Task, error)

	// ExpireStale expires open recurring-wellness tasks created more
	// than window ago and returns how many were expired. Used by the
	// sweeper; goes through the same transition path as Complete.
	ExpireStale(ctx context.Context, window time.Duration) (int, error)
}

// taskServiceImpl implements the TaskService interface.
type taskServiceImpl struct {
	store     store.TaskStore
	reminders ReminderRegistry
	logger    *slog.Logger
}

// NewTaskService creates a new TaskService.
// It returns an error if any of the required dependencies are nil.
func NewTaskService(taskStore store.TaskStore, reminders ReminderRegistry, log *slog.Logger) (TaskService, error) {
	if taskStore == nil {
		return nil, domain.NewValidationError("taskStore", "cannot be nil", domain.ErrValidation)
	}
	if reminders == nil {
		return nil, domain.NewValidationError("reminders", "cannot be nil", domain.ErrValidation)
	}
	if log == nil {
		log = slog.Default()
	}

	return &taskServiceImpl{
		store:     taskStore,
		reminders: reminders,
		logger:    log.With(slog.String("component", "task_service")),
	}, nil
}

// Create implements TaskService.Create.
func (s *taskServiceImpl) Create(
	ctx context.Context,
	userID, description string,
	due *time.Time,
	priority domain.Priority,
	category domain.Category,
) (*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	task, err := domain.NewTask(userID, description, due, priority, category)
	if err != nil {
		return nil, NewTaskServiceError("create", "invalid task", err)
	}

	if err := s.store.Save(ctx, task); err != nil {
		return nil, NewTaskServiceError("create", "failed to save task", err)
	}

	// Register before reporting success so the caller never observes a
	// stored task with a due time but no reminder.
	if task.Due != nil {
		s.reminders.Schedule(task.ID, task.UserID, *task.Due)
	}

	log.Info("task created",
		"task_id", task.ID,
		"user_id", task.UserID,
		"category", task.Category,
		"has_due", task.Due != nil)

	return task, nil
}

// Complete implements TaskService.Complete.
func (s *taskServiceImpl) Complete(ctx context.Context, userID string, taskID uuid.UUID) (*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	task, err := s.loadOwned(ctx, userID, taskID, "complete")
	if err != nil {
		return nil, err
	}

	if err := task.Complete(); err != nil {
		return task, NewTaskServiceError("complete", "task is not open", err)
	}

	if err := s.store.Save(ctx, task); err != nil {
		return nil, NewTaskServiceError("complete", "failed to save task", err)
	}

	// Cancellation is synchronous with the transition.
	s.reminders.Cancel(task.ID)

	log.Info("task completed", "task_id", task.ID, "user_id", userID)
	return task, nil
}

// Update implements TaskService.Update.
func (s *taskServiceImpl) Update(
	ctx context.Context,
	userID string,
	taskID uuid.UUID,
	update domain.TaskUpdate,
) (*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	task, err := s.loadOwned(ctx, userID, taskID, "update")
	if err != nil {
		return nil, err
	}

	// Completed and expired tasks are frozen; updating one would leave a
	// live reminder on a non-open task.
	if task.Status != domain.StatusOpen {
		return task, NewTaskServiceError("update", "task is not open", domain.ErrInvalidTransition)
	}

	if update.Description != nil {
		task.Description = *update.Description
	}
	if update.Priority != nil {
		task.Priority = *update.Priority
	}
	if update.Due != nil {
		task.SetDue(update.Due)
	}
	task.UpdatedAt = time.Now().UTC()

	if err := task.Validate(); err != nil {
		return nil, NewTaskServiceError("update", "invalid task after update", err)
	}

	if err := s.store.Save(ctx, task); err != nil {
		return nil, NewTaskServiceError("update", "failed to save task", err)
	}

	if update.Due != nil {
		s.reminders.Schedule(task.ID, task.UserID, *update.Due)
	}

	log.Info("task updated", "task_id", task.ID, "user_id", userID)
	return task, nil
}

// ListOpen implements TaskService.ListOpen.
func (s *taskServiceImpl) ListOpen(ctx context.Context, userID string) ([]*domain.Task, error) {
	tasks, err := s.store.LoadOpenTasks(ctx, userID)
	if err != nil {
		return nil, NewTaskServiceError("list", "failed to load open tasks", err)
	}
	return tasks, nil
}

// ExpireStale implements TaskService.ExpireStale.
func (s *taskServiceImpl) ExpireStale(ctx context.Context, window time.Duration) (int, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	cutoff := time.Now().UTC().Add(-window)
	stale, err := s.store.ListStaleWellness(ctx, cutoff)
	if err != nil {
		return 0, NewTaskServiceError("expire_stale", "failed to list stale wellness tasks", err)
	}

	expired := 0
	for _, task := range stale {
		if err := task.Expire(); err != nil {
			// Raced with a concurrent completion; nothing to do.
			continue
		}
		if err := s.store.Save(ctx, task); err != nil {
			log.Warn("failed to expire stale task",
				"task_id", task.ID,
				"error", err)
			continue
		}
		s.reminders.Cancel(task.ID)
		expired++

		log.Info("expired stale wellness task",
			"task_id", task.ID,
			"user_id", task.UserID,
			"created_at", task.CreatedAt)
	}

	return expired, nil
}

// loadOwned fetches a task and enforces ownership.
func (s *taskServiceImpl) loadOwned(ctx context.Context, userID string, taskID uuid.UUID, op string) (*domain.Task, error) {
	task, err := s.store.GetByID(ctx, taskID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, NewTaskServiceError(op, "no such task", ErrNotFound)
		}
		return nil, NewTaskServiceError(op, "failed to load task", err)
	}

	if task.UserID != userID {
		return nil, NewTaskServiceError(op, "task belongs to another user", ErrNotOwned)
	}

	return task, nil
}
