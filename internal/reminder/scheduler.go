// Package reminder schedules and delivers timed task reminders.
//
// A single timing loop owns a time-ordered queue of pending reminders.
// Schedule and Cancel are the only mutation entry points; both are safe
// to call from any goroutine and both are idempotent, so callers need
// no locking of their own. Delivery is best-effort: failures are
// retried with bounded exponential backoff and then dropped with a log
// entry, never blocking the timing loop.
package reminder

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/aviraln/nudge/internal/domain"
	"github.com/google/uuid"
)

// Deliverer sends a reminder notification to the user. It is owned by
// the transport layer outside this core.
type Deliverer interface {
	DeliverReminder(ctx context.Context, userID string, taskID uuid.UUID, description string) error
}

// TaskSource is the narrow view of the task store the scheduler needs
// to re-validate a task before firing and to mark its reminder consumed.
type TaskSource interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error)
	Save(ctx context.Context, task *domain.Task) error
}

// Config holds scheduler tuning knobs.
type Config struct {
	// RetryCap is the maximum number of delivery attempts per reminder.
	RetryCap int

	// RetryBackoff is the base of the exponential backoff between
	// delivery attempts.
	RetryBackoff time.Duration
}

// DefaultConfig returns a Config with reasonable defaults.
func DefaultConfig() Config {
	return Config{
		RetryCap:     3,
		RetryBackoff: 5 * time.Second,
	}
}

// Scheduler maintains the pending reminder queue and runs the timing loop.
type Scheduler struct {
	mu    sync.Mutex
	queue *fireQueue

	wake       chan struct{}
	ctx        context.Context
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup

	source    TaskSource
	deliverer Deliverer
	config    Config
	logger    *slog.Logger
}

// NewScheduler creates a Scheduler. Start must be called before any
// reminder fires; Schedule and Cancel may be called at any time.
func NewScheduler(source TaskSource, deliverer Deliverer, config Config, logger *slog.Logger) *Scheduler {
	if config.RetryCap <= 0 {
		config.RetryCap = DefaultConfig().RetryCap
	}
	if config.RetryBackoff <= 0 {
		config.RetryBackoff = DefaultConfig().RetryBackoff
	}
	if logger == nil {
		logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Scheduler{
		queue:      newFireQueue(),
		wake:       make(chan struct{}, 1),
		ctx:        ctx,
		cancelFunc: cancel,
		source:     source,
		deliverer:  deliverer,
		config:     config,
		logger:     logger.With(slog.String("component", "reminder_scheduler")),
	}
}

// Start launches the timing loop.
func (s *Scheduler) Start() {
	s.wg.Add(1)
	go s.run()
}

// Stop shuts the timing loop down and waits for in-flight deliveries.
func (s *Scheduler) Stop() {
	s.cancelFunc()
	s.wg.Wait()
}

// Schedule inserts or replaces the pending reminder for a task.
// Calling it again for the same task reschedules rather than duplicates.
func (s *Scheduler) Schedule(taskID uuid.UUID, userID string, fireAt time.Time) {
	s.mu.Lock()
	s.queue.upsert(taskID, userID, fireAt)
	s.mu.Unlock()

	s.logger.Debug("reminder scheduled",
		"task_id", taskID,
		"fire_at", fireAt)

	s.signal()
}

// Cancel removes the pending reminder for a task if one exists.
// It is idempotent: cancelling an unknown task is a no-op.
func (s *Scheduler) Cancel(taskID uuid.UUID) {
	s.mu.Lock()
	removed := s.queue.remove(taskID)
	s.mu.Unlock()

	if removed {
		s.logger.Debug("reminder cancelled", "task_id", taskID)
		s.signal()
	}
}

// Rearm schedules reminders for tasks recovered from the store after a
// restart. Tasks without a due time are skipped.
func (s *Scheduler) Rearm(tasks []*domain.Task) {
	for _, t := range tasks {
		if t.Due == nil {
			continue
		}
		s.Schedule(t.ID, t.UserID, *t.Due)
	}
	s.logger.Info("rearmed pending reminders", "count", s.Pending())
}

// Pending returns the number of reminders currently queued.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queue.len()
}

// signal nudges the timing loop to recompute its next wake time.
func (s *Scheduler) signal() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// run is the timing loop. It sleeps until the earliest fire time (or
// indefinitely when the queue is empty), pops everything due, and hands
// each popped entry to a delivery goroutine so a slow transport never
// delays the next reminder.
func (s *Scheduler) run() {
	defer s.wg.Done()

	timer := time.NewTimer(time.Hour)
	if !timer.Stop() {
		<-timer.C
	}

	for {
		s.mu.Lock()
		next := s.queue.peek()
		s.mu.Unlock()

		var timerC <-chan time.Time
		if next != nil {
			timer.Reset(time.Until(next.fireAt))
			timerC = timer.C
		}

		select {
		case <-s.ctx.Done():
			if timerC != nil && !timer.Stop() {
				<-timer.C
			}
			return

		case <-s.wake:
			// Queue changed; recompute the next wake time.
			if timerC != nil && !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}

		case <-timerC:
			s.fireDue()
		}
	}
}

// fireDue pops all due entries and dispatches their delivery.
func (s *Scheduler) fireDue() {
	s.mu.Lock()
	due := s.queue.popDue(time.Now())
	s.mu.Unlock()

	for _, e := range due {
		s.wg.Add(1)
		go func(e *entry) {
			defer s.wg.Done()
			s.deliver(e)
		}(e)
	}
}

// deliver re-validates the referenced task and attempts delivery.
//
// A completion may have raced the pop: the task is fetched fresh and
// the reminder is suppressed unless the task is still open with an
// undelivered reminder. On success the task's reminder-sent marker is
// persisted so a restart cannot duplicate the notification.
func (s *Scheduler) deliver(e *entry) {
	ctx := s.ctx
	log := s.logger.With("task_id", e.taskID, "user_id", e.userID)

	task, err := s.source.GetByID(ctx, e.taskID)
	if err != nil {
		log.Warn("dropping reminder, task lookup failed", "error", err)
		return
	}

	if task.Status != domain.StatusOpen || task.ReminderSent {
		log.Debug("suppressing reminder",
			"status", task.Status,
			"reminder_sent", task.ReminderSent)
		return
	}

	for attempt := 1; ; attempt++ {
		err = s.deliverer.DeliverReminder(ctx, task.UserID, task.ID, task.Description)
		if err == nil {
			break
		}

		log.Warn("reminder delivery failed",
			"attempt", attempt,
			"max_attempts", s.config.RetryCap,
			"error", err)

		if attempt >= s.config.RetryCap {
			log.Error("dropping reminder after retry cap", "attempts", attempt)
			return
		}

		backoff := s.config.RetryBackoff << (attempt - 1)
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return
		}
	}

	task.ReminderSent = true
	if err := s.source.Save(ctx, task); err != nil {
		// The notification went out; worst case a restart re-arms it
		// and re-validation suppresses everything but open tasks.
		log.Warn("failed to persist reminder-sent marker", "error", err)
	}

	log.Info("reminder delivered")
}
