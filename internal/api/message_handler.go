// Package api exposes the webhook surface: one authenticated endpoint
// that accepts a user message and returns the assistant's reply, plus a
// read endpoint for the open-task list.
package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/aviraln/nudge/internal/api/shared"
	"github.com/aviraln/nudge/internal/redact"
)

// MessageProcessor handles one inbound message and returns the reply text.
type MessageProcessor interface {
	HandleMessage(ctx context.Context, userID, text string) (string, error)
}

// MessageHandler handles inbound message webhook requests.
type MessageHandler struct {
	processor MessageProcessor
	validator *validator.Validate
	logger    *slog.Logger
}

// NewMessageHandler creates a new MessageHandler.
func NewMessageHandler(processor MessageProcessor, logger *slog.Logger) *MessageHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &MessageHandler{
		processor: processor,
		validator: validator.New(),
		logger:    logger.With(slog.String("component", "message_handler")),
	}
}

// HandleMessage handles POST /api/messages requests.
func (h *MessageHandler) HandleMessage(w http.ResponseWriter, r *http.Request) {
	userID, ok := shared.GetUserID(r.Context())
	if !ok {
		shared.RespondWithError(w, r, http.StatusUnauthorized, "User ID not found or invalid")
		return
	}

	var req MessageRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Message text is required")
		return
	}

	reply, err := h.processor.HandleMessage(r.Context(), userID, req.Text)
	if err != nil {
		// The processor returns a user-safe reply even on failure; log
		// the underlying cause and still answer 200 so the messaging
		// channel relays the apology instead of retrying the webhook.
		h.logger.Error("message processing failed",
			"user_id", userID,
			"error", redact.Error(err))
	}

	shared.RespondWithJSON(w, r, http.StatusOK, MessageResponse{Reply: reply})
}
