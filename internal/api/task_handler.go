package api

import (
	"log/slog"
	"net/http"

	"github.com/aviraln/nudge/internal/api/shared"
	"github.com/aviraln/nudge/internal/domain"
	"github.com/aviraln/nudge/internal/service"
)

// TaskHandler handles task read requests.
type TaskHandler struct {
	tasks  service.TaskService
	logger *slog.Logger
}

// NewTaskHandler creates a new TaskHandler.
func NewTaskHandler(tasks service.TaskService, logger *slog.Logger) *TaskHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &TaskHandler{
		tasks:  tasks,
		logger: logger.With(slog.String("component", "task_handler")),
	}
}

// ListOpenTasks handles GET /api/tasks requests. Tasks are returned in
// the same order they are numbered in assistant replies.
func (h *TaskHandler) ListOpenTasks(w http.ResponseWriter, r *http.Request) {
	userID, ok := shared.GetUserID(r.Context())
	if !ok {
		shared.RespondWithError(w, r, http.StatusUnauthorized, "User ID not found or invalid")
		return
	}

	tasks, err := h.tasks.ListOpen(r.Context(), userID)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError, "Failed to load tasks", err)
		return
	}

	resp := TaskListResponse{Tasks: make([]TaskResponse, 0, len(tasks))}
	for _, t := range tasks {
		resp.Tasks = append(resp.Tasks, taskToDTOResponse(t))
	}

	shared.RespondWithJSON(w, r, http.StatusOK, resp)
}

// taskToDTOResponse converts a domain.Task to a TaskResponse.
func taskToDTOResponse(t *domain.Task) TaskResponse {
	return TaskResponse{
		ID:           t.ID.String(),
		Description:  t.Description,
		Due:          t.Due,
		Priority:     string(t.Priority),
		Status:       string(t.Status),
		Category:     string(t.Category),
		ReminderSent: t.ReminderSent,
		CreatedAt:    t.CreatedAt,
	}
}
