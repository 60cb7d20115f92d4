package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aviraln/nudge/internal/domain"
	"github.com/aviraln/nudge/internal/store"
)

type stubTaskService struct {
	open    []*domain.Task
	listErr error
}

func (s *stubTaskService) Create(ctx context.Context, userID, description string, due *time.Time, priority domain.Priority, category domain.Category) (*domain.Task, error) {
	return nil, nil
}

func (s *stubTaskService) Complete(ctx context.Context, userID string, taskID uuid.UUID) (*domain.Task, error) {
	return nil, nil
}

func (s *stubTaskService) Update(ctx context.Context, userID string, taskID uuid.UUID, update domain.TaskUpdate) (*domain.Task, error) {
	return nil, nil
}

func (s *stubTaskService) ListOpen(ctx context.Context, userID string) ([]*domain.Task, error) {
	return s.open, s.listErr
}

func (s *stubTaskService) ExpireStale(ctx context.Context, window time.Duration) (int, error) {
	return 0, nil
}

func TestListOpenTasks(t *testing.T) {
	due := time.Date(2025, 3, 12, 15, 0, 0, 0, time.UTC)
	svc := &stubTaskService{open: []*domain.Task{
		{
			ID:          uuid.New(),
			UserID:      "user-3",
			Description: "call mom",
			Due:         &due,
			Priority:    domain.PriorityHigh,
			Status:      domain.StatusOpen,
			Category:    domain.CategoryOrdinary,
			CreatedAt:   due.Add(-time.Hour),
		},
	}}
	handler := NewTaskHandler(svc, nil)

	req := authedRequest(http.MethodGet, "/api/tasks", "")
	rec := httptest.NewRecorder()
	handler.ListOpenTasks(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp TaskListResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Len(t, resp.Tasks, 1)
	assert.Equal(t, "call mom", resp.Tasks[0].Description)
	assert.Equal(t, "high", resp.Tasks[0].Priority)
	require.NotNil(t, resp.Tasks[0].Due)
	assert.True(t, resp.Tasks[0].Due.Equal(due))
}

func TestListOpenTasksEmpty(t *testing.T) {
	handler := NewTaskHandler(&stubTaskService{}, nil)

	req := authedRequest(http.MethodGet, "/api/tasks", "")
	rec := httptest.NewRecorder()
	handler.ListOpenTasks(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp TaskListResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.NotNil(t, resp.Tasks)
	assert.Empty(t, resp.Tasks)
}

func TestListOpenTasksStoreFailure(t *testing.T) {
	handler := NewTaskHandler(&stubTaskService{listErr: store.ErrUnavailable}, nil)

	req := authedRequest(http.MethodGet, "/api/tasks", "")
	rec := httptest.NewRecorder()
	handler.ListOpenTasks(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestListOpenTasksMissingAuth(t *testing.T) {
	handler := NewTaskHandler(&stubTaskService{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/tasks", nil)
	rec := httptest.NewRecorder()
	handler.ListOpenTasks(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
