package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Priority is the ordered urgency level of a task.
type Priority string

// Priority levels, from least to most urgent.
const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
)

// Rank returns the sort rank of a priority; more urgent priorities rank
// lower so they sort first. Unknown priorities rank last.
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 0
	case PriorityNormal:
		return 1
	case PriorityLow:
		return 2
	default:
		return 3
	}
}

// Valid reports whether the priority is one of the defined levels.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityNormal, PriorityHigh:
		return true
	}
	return false
}

// NormalizePriority maps a free-form priority string to a defined level.
// Unrecognized values map to PriorityNormal.
func NormalizePriority(s string) Priority {
	switch Priority(strings.ToLower(strings.TrimSpace(s))) {
	case PriorityLow:
		return PriorityLow
	case PriorityHigh:
		return PriorityHigh
	default:
		return PriorityNormal
	}
}

// Status represents the lifecycle state of a task.
type Status string

// Task lifecycle states. Tasks are never deleted; they only move from
// StatusOpen to one of the terminal states.
const (
	StatusOpen      Status = "open"
	StatusCompleted Status = "completed"
	StatusExpired   Status = "expired"
)

// Valid reports whether the status is one of the defined states.
func (s Status) Valid() bool {
	switch s {
	case StatusOpen, StatusCompleted, StatusExpired:
		return true
	}
	return false
}

// Category distinguishes ordinary tasks from recurring wellness tasks,
// which are subject to automatic expiry.
type Category string

// Task categories.
const (
	CategoryOrdinary Category = "ordinary"
	CategoryWellness Category = "recurring-wellness"
)

// Valid reports whether the category is one of the defined categories.
func (c Category) Valid() bool {
	switch c {
	case CategoryOrdinary, CategoryWellness:
		return true
	}
	return false
}

// wellnessKeywords mark task descriptions that describe recurring
// self-care activity rather than real to-do items.
var wellnessKeywords = []string{
	"break", "water", "exercise", "walk", "stretch",
	"rest", "breathe", "drink", "hydrate",
}

// CategoryForDescription derives a task category from its description.
// Descriptions mentioning a wellness activity become CategoryWellness.
func CategoryForDescription(description string) Category {
	lower := strings.ToLower(description)
	for _, kw := range wellnessKeywords {
		if strings.Contains(lower, kw) {
			return CategoryWellness
		}
	}
	return CategoryOrdinary
}

// PriorityForCategory lowers an unstated normal priority to low for
// wellness tasks so self-care items never crowd out real work.
// An explicit low or high request passes through unchanged.
func PriorityForCategory(category Category, priority Priority) Priority {
	if category == CategoryWellness && priority == PriorityNormal {
		return PriorityLow
	}
	return priority
}

// Task is a single to-do item owned by one user. The due timestamp is
// optional; tasks without one never get a reminder.
type Task struct {
	ID           uuid.UUID  `json:"id"`
	UserID       string     `json:"user_id"`
	Description  string     `json:"description"`
	Due          *time.Time `json:"due,omitempty"`
	Priority     Priority   `json:"priority"`
	Status       Status     `json:"status"`
	Category     Category   `json:"category"`
	ReminderSent bool       `json:"reminder_sent"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// NewTask creates a new open Task owned by the given user.
// It generates a new UUID for the task ID and sets the creation/update
// timestamps. Returns an error if validation fails.
func NewTask(userID, description string, due *time.Time, priority Priority, category Category) (*Task, error) {
	now := time.Now().UTC()
	task := &Task{
		ID:          uuid.New(),
		UserID:      userID,
		Description: strings.TrimSpace(description),
		Due:         due,
		Priority:    priority,
		Status:      StatusOpen,
		Category:    category,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := task.Validate(); err != nil {
		return nil, err
	}

	return task, nil
}

// Validate checks if the Task has valid data.
// Returns an error if any field fails validation.
func (t *Task) Validate() error {
	if t.ID == uuid.Nil {
		return ErrTaskIDEmpty
	}

	if t.UserID == "" {
		return ErrTaskUserIDEmpty
	}

	if t.Description == "" {
		return ErrTaskDescriptionEmpty
	}

	if !t.Priority.Valid() {
		return ErrInvalidPriority
	}

	if !t.Status.Valid() {
		return ErrInvalidStatus
	}

	if !t.Category.Valid() {
		return ErrInvalidCategory
	}

	return nil
}

// Complete transitions the task to StatusCompleted.
// Only open tasks can be completed.
func (t *Task) Complete() error {
	if t.Status != StatusOpen {
		return ErrInvalidTransition
	}
	t.Status = StatusCompleted
	t.UpdatedAt = time.Now().UTC()
	return nil
}

// Expire transitions the task to StatusExpired.
// Only open tasks can expire.
func (t *Task) Expire() error {
	if t.Status != StatusOpen {
		return ErrInvalidTransition
	}
	t.Status = StatusExpired
	t.UpdatedAt = time.Now().UTC()
	return nil
}

// SetDue replaces the task's due timestamp and clears the reminder-sent
// marker so a rescheduled reminder can fire again.
func (t *Task) SetDue(due *time.Time) {
	t.Due = due
	t.ReminderSent = false
	t.UpdatedAt = time.Now().UTC()
}
