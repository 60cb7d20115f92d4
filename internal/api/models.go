package api

import "time"

// MessageRequest represents the inbound webhook payload.
type MessageRequest struct {
	Text string `json:"text" validate:"required,min=1,max=4096"`
}

// MessageResponse carries the assistant's reply.
type MessageResponse struct {
	Reply string `json:"reply"`
}

// TaskResponse represents a task in list responses.
type TaskResponse struct {
	ID           string     `json:"id"`
	Description  string     `json:"description"`
	Due          *time.Time `json:"due,omitempty"`
	Priority     string     `json:"priority"`
	Status       string     `json:"status"`
	Category     string     `json:"category"`
	ReminderSent bool       `json:"reminder_sent"`
	CreatedAt    time.Time  `json:"created_at"`
}

// TaskListResponse wraps the open-task list.
type TaskListResponse struct {
	Tasks []TaskResponse `json:"tasks"`
}
