package assistant

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aviraln/nudge/internal/clarify"
	"github.com/aviraln/nudge/internal/domain"
	"github.com/aviraln/nudge/internal/extraction"
	"github.com/aviraln/nudge/internal/service"
)

// mockExtractor replays a canned batch and records what it was asked.
type mockExtractor struct {
	batch domain.IntentBatch
	err   error

	lastUtterance string
	lastTasks     []extraction.ListedTask
}

func (m *mockExtractor) Extract(ctx context.Context, utterance string, tasks []extraction.ListedTask, now time.Time) (domain.IntentBatch, error) {
	m.lastUtterance = utterance
	m.lastTasks = tasks
	if m.err != nil {
		return nil, m.err
	}
	return m.batch, nil
}

// mockTaskService is an in-memory service.TaskService.
type mockTaskService struct {
	tasks map[uuid.UUID]*domain.Task

	createErr error
	listErr   error
}

func newMockTaskService() *mockTaskService {
	return &mockTaskService{tasks: make(map[uuid.UUID]*domain.Task)}
}

func (m *mockTaskService) Create(ctx context.Context, userID, description string, due *time.Time, priority domain.Priority, category domain.Category) (*domain.Task, error) {
	if m.createErr != nil {
		return nil, m.createErr
	}
	task, err := domain.NewTask(userID, description, due, priority, category)
	if err != nil {
		return nil, err
	}
	m.tasks[task.ID] = task
	return task, nil
}

func (m *mockTaskService) Complete(ctx context.Context, userID string, taskID uuid.UUID) (*domain.Task, error) {
	task, ok := m.tasks[taskID]
	if !ok {
		return nil, service.ErrNotFound
	}
	if task.UserID != userID {
		return nil, service.ErrNotOwned
	}
	if err := task.Complete(); err != nil {
		return task, err
	}
	return task, nil
}

func (m *mockTaskService) Update(ctx context.Context, userID string, taskID uuid.UUID, update domain.TaskUpdate) (*domain.Task, error) {
	task, ok := m.tasks[taskID]
	if !ok {
		return nil, service.ErrNotFound
	}
	if task.UserID != userID {
		return nil, service.ErrNotOwned
	}
	if task.Status != domain.StatusOpen {
		return task, domain.ErrInvalidTransition
	}
	if update.Description != nil {
		task.Description = *update.Description
	}
	if update.Due != nil {
		task.SetDue(update.Due)
	}
	if update.Priority != nil {
		task.Priority = *update.Priority
	}
	return task, nil
}

func (m *mockTaskService) ListOpen(ctx context.Context, userID string) ([]*domain.Task, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	var open []*domain.Task
	for _, t := range m.tasks {
		if t.UserID == userID && t.Status == domain.StatusOpen {
			open = append(open, t)
		}
	}
	sort.Slice(open, func(i, j int) bool { return open[i].CreatedAt.Before(open[j].CreatedAt) })
	return open, nil
}

func (m *mockTaskService) ExpireStale(ctx context.Context, window time.Duration) (int, error) {
	return 0, nil
}

func newTestAssistant(t *testing.T, ex *mockExtractor, svc *mockTaskService) (*Assistant, *clarify.Manager) {
	t.Helper()
	log := slog.New(slog.NewTextHandler(testWriter{t}, &slog.HandlerOptions{Level: slog.LevelError}))
	clarifier := clarify.NewManager(5*time.Minute, log)
	a, err := New(ex, svc, clarifier, log)
	require.NoError(t, err)
	return a, clarifier
}

type testWriter struct{ t *testing.T }

func (w testWriter) Write(p []byte) (int, error) {
	w.t.Log(string(p))
	return len(p), nil
}

func TestNewValidatesDependencies(t *testing.T) {
	log := slog.Default()
	clarifier := clarify.NewManager(time.Minute, log)
	svc := newMockTaskService()
	ex := &mockExtractor{}

	_, err := New(nil, svc, clarifier, log)
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = New(ex, nil, clarifier, log)
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = New(ex, svc, nil, log)
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = New(ex, svc, clarifier, nil)
	assert.NoError(t, err)
}

func TestHandleMessageCreatesConcreteTask(t *testing.T) {
	due := time.Now().Add(2 * time.Hour).Truncate(time.Second)
	ex := &mockExtractor{batch: domain.IntentBatch{{
		Kind:        domain.IntentCreate,
		Description: "call the dentist",
		Due:         &due,
		Priority:    domain.PriorityHigh,
	}}}
	svc := newMockTaskService()
	a, _ := newTestAssistant(t, ex, svc)

	reply, err := a.HandleMessage(context.Background(), "user-1", "remind me to call the dentist in 2 hours")
	require.NoError(t, err)

	require.Len(t, svc.tasks, 1)
	for _, task := range svc.tasks {
		assert.Equal(t, "call the dentist", task.Description)
		assert.Equal(t, domain.PriorityHigh, task.Priority)
		require.NotNil(t, task.Due)
		assert.True(t, task.Due.Equal(due))
	}
	assert.Contains(t, reply, "call the dentist")
	assert.Contains(t, ex.lastUtterance, "dentist")
}

func TestHandleMessageWellnessDefaultsToLowPriority(t *testing.T) {
	ex := &mockExtractor{batch: domain.IntentBatch{{
		Kind:        domain.IntentCreate,
		Description: "drink water every hour",
		Priority:    domain.PriorityNormal,
	}}}
	svc := newMockTaskService()
	a, _ := newTestAssistant(t, ex, svc)

	_, err := a.HandleMessage(context.Background(), "user-1", "I should drink water every hour")
	require.NoError(t, err)

	require.Len(t, svc.tasks, 1)
	for _, task := range svc.tasks {
		assert.Equal(t, domain.CategoryWellness, task.Category)
		assert.Equal(t, domain.PriorityLow, task.Priority)
	}
}

func TestHandleMessageVagueCreateOpensClarification(t *testing.T) {
	ex := &mockExtractor{batch: domain.IntentBatch{{
		Kind:        domain.IntentCreate,
		Description: "review the contract",
		Vague:       true,
		VaguePhrase: "later today",
	}}}
	svc := newMockTaskService()
	a, clarifier := newTestAssistant(t, ex, svc)

	reply, err := a.HandleMessage(context.Background(), "user-1", "remind me to review the contract later today")
	require.NoError(t, err)

	// No task yet; a session holds the partial task.
	assert.Empty(t, svc.tasks)
	assert.True(t, clarifier.HasSession("user-1"))
	assert.Contains(t, reply, "review the contract")
	assert.Contains(t, reply, "1.")
}

func TestHandleMessageClarificationAnswerFinalizes(t *testing.T) {
	ex := &mockExtractor{batch: domain.IntentBatch{{
		Kind:        domain.IntentCreate,
		Description: "review the contract",
		Vague:       true,
		VaguePhrase: "later today",
	}}}
	svc := newMockTaskService()
	a, clarifier := newTestAssistant(t, ex, svc)

	_, err := a.HandleMessage(context.Background(), "user-1", "remind me to review the contract later today")
	require.NoError(t, err)
	require.True(t, clarifier.HasSession("user-1"))

	reply, err := a.HandleMessage(context.Background(), "user-1", "in 1 hour")
	require.NoError(t, err)

	assert.False(t, clarifier.HasSession("user-1"))
	require.Len(t, svc.tasks, 1)
	for _, task := range svc.tasks {
		assert.Equal(t, "review the contract", task.Description)
		require.NotNil(t, task.Due)
		assert.WithinDuration(t, time.Now().Add(time.Hour), *task.Due, 2*time.Minute)
	}
	assert.Contains(t, reply, "Task created")
}

func TestHandleMessageClarifiedWellnessFinalizesLowPriority(t *testing.T) {
	ex := &mockExtractor{batch: domain.IntentBatch{{
		Kind:        domain.IntentCreate,
		Description: "drink water",
		Priority:    domain.PriorityNormal,
		Vague:       true,
		VaguePhrase: "later today",
	}}}
	svc := newMockTaskService()
	a, clarifier := newTestAssistant(t, ex, svc)

	_, err := a.HandleMessage(context.Background(), "user-1", "remind me to drink water later today")
	require.NoError(t, err)
	require.True(t, clarifier.HasSession("user-1"))

	_, err = a.HandleMessage(context.Background(), "user-1", "in 1 hour")
	require.NoError(t, err)

	// The clarified path applies the same wellness default as a direct
	// create.
	require.Len(t, svc.tasks, 1)
	for _, task := range svc.tasks {
		assert.Equal(t, domain.CategoryWellness, task.Category)
		assert.Equal(t, domain.PriorityLow, task.Priority)
	}
}

func TestHandleMessageClarificationUnrelatedAnswerAbandons(t *testing.T) {
	ex := &mockExtractor{batch: domain.IntentBatch{{
		Kind:        domain.IntentCreate,
		Description: "buy milk",
		Priority:    domain.PriorityNormal,
	}}}
	svc := newMockTaskService()
	a, clarifier := newTestAssistant(t, ex, svc)

	vague := domain.Intent{Kind: domain.IntentCreate, Description: "review the contract", Vague: true, VaguePhrase: "later"}
	clarifier.Begin("user-1", vague, time.Now())

	// An unrelated message drops the session and is processed normally.
	reply, err := a.HandleMessage(context.Background(), "user-1", "add buy milk to my list")
	require.NoError(t, err)

	assert.False(t, clarifier.HasSession("user-1"))
	require.Len(t, svc.tasks, 1)
	for _, task := range svc.tasks {
		assert.Equal(t, "buy milk", task.Description)
	}
	assert.Contains(t, reply, "buy milk")
}

func TestHandleMessageClarificationFinalizeFailureRestoresSession(t *testing.T) {
	ex := &mockExtractor{}
	svc := newMockTaskService()
	a, clarifier := newTestAssistant(t, ex, svc)

	vague := domain.Intent{Kind: domain.IntentCreate, Description: "review the contract", Vague: true, VaguePhrase: "later"}
	clarifier.Begin("user-1", vague, time.Now())

	svc.createErr = errors.New("connection refused")
	_, err := a.HandleMessage(context.Background(), "user-1", "in 1 hour")
	require.Error(t, err)

	// The answer can be retried.
	assert.True(t, clarifier.HasSession("user-1"))

	svc.createErr = nil
	_, err = a.HandleMessage(context.Background(), "user-1", "in 1 hour")
	require.NoError(t, err)
	assert.False(t, clarifier.HasSession("user-1"))
	assert.Len(t, svc.tasks, 1)
}

func TestHandleMessageCompletesByReference(t *testing.T) {
	svc := newMockTaskService()
	task, err := svc.Create(context.Background(), "user-1", "file taxes", nil, domain.PriorityNormal, domain.CategoryOrdinary)
	require.NoError(t, err)

	ex := &mockExtractor{batch: domain.IntentBatch{{
		Kind:   domain.IntentComplete,
		TaskID: task.ID,
	}}}
	a, _ := newTestAssistant(t, ex, svc)

	reply, err := a.HandleMessage(context.Background(), "user-1", "I filed my taxes")
	require.NoError(t, err)

	assert.Equal(t, domain.StatusCompleted, task.Status)
	assert.Contains(t, reply, "file taxes")
	// The extractor saw the numbered open-task context.
	require.Len(t, ex.lastTasks, 1)
	assert.Equal(t, 1, ex.lastTasks[0].Position)
	assert.Equal(t, task.ID, ex.lastTasks[0].ID)
}

func TestHandleMessageCompleteUnknownTask(t *testing.T) {
	ex := &mockExtractor{batch: domain.IntentBatch{{
		Kind:   domain.IntentComplete,
		TaskID: uuid.New(),
	}}}
	svc := newMockTaskService()
	a, _ := newTestAssistant(t, ex, svc)

	reply, err := a.HandleMessage(context.Background(), "user-1", "done with that thing")
	require.NoError(t, err)
	assert.Contains(t, reply, "couldn't find")
}

func TestHandleMessageUpdateChangesDue(t *testing.T) {
	svc := newMockTaskService()
	task, err := svc.Create(context.Background(), "user-1", "submit report", nil, domain.PriorityNormal, domain.CategoryOrdinary)
	require.NoError(t, err)

	due := time.Now().Add(24 * time.Hour)
	ex := &mockExtractor{batch: domain.IntentBatch{{
		Kind:   domain.IntentUpdate,
		TaskID: task.ID,
		Update: domain.TaskUpdate{Due: &due},
	}}}
	a, _ := newTestAssistant(t, ex, svc)

	reply, err := a.HandleMessage(context.Background(), "user-1", "push the report to tomorrow")
	require.NoError(t, err)

	require.NotNil(t, task.Due)
	assert.True(t, task.Due.Equal(due))
	assert.Contains(t, reply, "submit report")
}

func TestHandleMessageMixedBatchAppliesInOrder(t *testing.T) {
	svc := newMockTaskService()
	existing, err := svc.Create(context.Background(), "user-1", "water plants", nil, domain.PriorityLow, domain.CategoryOrdinary)
	require.NoError(t, err)

	ex := &mockExtractor{batch: domain.IntentBatch{
		{Kind: domain.IntentComplete, TaskID: existing.ID},
		{Kind: domain.IntentCreate, Description: "buy fertilizer", Priority: domain.PriorityNormal},
	}}
	a, _ := newTestAssistant(t, ex, svc)

	reply, err := a.HandleMessage(context.Background(), "user-1", "watered the plants, need fertilizer")
	require.NoError(t, err)

	assert.Equal(t, domain.StatusCompleted, existing.Status)
	assert.Len(t, svc.tasks, 2)
	assert.Contains(t, reply, "water plants")
	assert.Contains(t, reply, "buy fertilizer")
}

func TestHandleMessageVagueCreateDefersUntilBatchApplied(t *testing.T) {
	svc := newMockTaskService()
	existing, err := svc.Create(context.Background(), "user-1", "water plants", nil, domain.PriorityLow, domain.CategoryOrdinary)
	require.NoError(t, err)

	ex := &mockExtractor{batch: domain.IntentBatch{
		{Kind: domain.IntentCreate, Description: "review the contract", Vague: true, VaguePhrase: "later today"},
		{Kind: domain.IntentComplete, TaskID: existing.ID},
	}}
	a, clarifier := newTestAssistant(t, ex, svc)

	reply, err := a.HandleMessage(context.Background(), "user-1", "review the contract later today, and I watered the plants")
	require.NoError(t, err)

	// The completion lands before the clarification question is asked.
	assert.Equal(t, domain.StatusCompleted, existing.Status)
	assert.True(t, clarifier.HasSession("user-1"))
	assert.Contains(t, reply, "water plants")
	assert.Contains(t, reply, "review the contract")
	assert.Contains(t, reply, "1.")
}

func TestHandleMessageUpdateOnCompletedTaskNoted(t *testing.T) {
	svc := newMockTaskService()
	task, err := svc.Create(context.Background(), "user-1", "submit report", nil, domain.PriorityNormal, domain.CategoryOrdinary)
	require.NoError(t, err)

	due := time.Now().Add(24 * time.Hour)
	ex := &mockExtractor{batch: domain.IntentBatch{
		{Kind: domain.IntentComplete, TaskID: task.ID},
		{Kind: domain.IntentUpdate, TaskID: task.ID, Update: domain.TaskUpdate{Due: &due}},
	}}
	a, _ := newTestAssistant(t, ex, svc)

	reply, err := a.HandleMessage(context.Background(), "user-1", "done with the report, push it to tomorrow")
	require.NoError(t, err)

	assert.Equal(t, domain.StatusCompleted, task.Status)
	assert.Nil(t, task.Due)
	assert.Contains(t, reply, "no longer open")
}

func TestHandleMessageExtractionUnavailable(t *testing.T) {
	ex := &mockExtractor{err: extraction.ErrUnavailable}
	svc := newMockTaskService()
	a, _ := newTestAssistant(t, ex, svc)

	reply, err := a.HandleMessage(context.Background(), "user-1", "remind me about the thing")
	require.ErrorIs(t, err, extraction.ErrUnavailable)
	assert.Equal(t, replyExtractionDown, reply)
	assert.Empty(t, svc.tasks)
}

func TestHandleMessageEmptyBatchShowsList(t *testing.T) {
	ex := &mockExtractor{batch: domain.IntentBatch{}}
	svc := newMockTaskService()
	_, err := svc.Create(context.Background(), "user-1", "call mom", nil, domain.PriorityNormal, domain.CategoryOrdinary)
	require.NoError(t, err)
	a, _ := newTestAssistant(t, ex, svc)

	reply, err := a.HandleMessage(context.Background(), "user-1", "show my tasks")
	require.NoError(t, err)
	assert.Contains(t, reply, "1. call mom")
}

func TestHandleMessageEmptyBatchEmptyList(t *testing.T) {
	ex := &mockExtractor{batch: domain.IntentBatch{}}
	svc := newMockTaskService()
	a, _ := newTestAssistant(t, ex, svc)

	reply, err := a.HandleMessage(context.Background(), "user-1", "how are you?")
	require.NoError(t, err)
	assert.Equal(t, "Your list is clear.", reply)
}

func TestRenderTaskList(t *testing.T) {
	due := time.Date(2025, 3, 12, 15, 0, 0, 0, time.UTC)
	tasks := []*domain.Task{
		{Description: "call mom", Due: &due, Priority: domain.PriorityHigh},
		{Description: "read a book", Priority: domain.PriorityNormal},
	}

	out := renderTaskList(tasks)
	assert.Contains(t, out, "1. call mom")
	assert.Contains(t, out, "Wed Mar 12 at 3:00 PM")
	assert.Contains(t, out, "[high]")
	assert.Contains(t, out, "2. read a book")

	assert.Equal(t, "Your list is clear.", renderTaskList(nil))
}
