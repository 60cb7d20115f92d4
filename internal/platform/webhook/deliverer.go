// Package webhook delivers reminders to the messaging channel over an
// outbound HTTP webhook.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/aviraln/nudge/internal/config"
	"github.com/aviraln/nudge/internal/domain"
	"github.com/aviraln/nudge/internal/redact"
	"github.com/aviraln/nudge/internal/reminder"
)

// deliveryPayload is the wire format of one reminder delivery.
type deliveryPayload struct {
	UserID string `json:"user_id"`
	TaskID string `json:"task_id"`
	Text   string `json:"text"`
}

// Deliverer POSTs reminder messages to the configured webhook URL.
type Deliverer struct {
	url    string
	client *http.Client
	logger *slog.Logger
}

// Verify Deliverer implements reminder.Deliverer.
var _ reminder.Deliverer = (*Deliverer)(nil)

// NewDeliverer creates a Deliverer from the delivery configuration.
func NewDeliverer(cfg config.DeliveryConfig, logger *slog.Logger) (*Deliverer, error) {
	if cfg.WebhookURL == "" {
		return nil, domain.NewValidationError("webhook_url", "cannot be empty", domain.ErrValidation)
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Deliverer{
		url:    cfg.WebhookURL,
		client: &http.Client{Timeout: cfg.Timeout()},
		logger: logger.With(slog.String("component", "webhook_deliverer")),
	}, nil
}

// DeliverReminder sends one reminder message. A non-2xx response is a
// delivery failure; the scheduler decides whether to retry.
func (d *Deliverer) DeliverReminder(ctx context.Context, userID string, taskID uuid.UUID, description string) error {
	payload := deliveryPayload{
		UserID: userID,
		TaskID: taskID.String(),
		Text:   fmt.Sprintf("Reminder: %s", description),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode reminder payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build reminder request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		d.logger.Warn("reminder delivery request failed",
			"task_id", taskID,
			"error", redact.Error(err))
		return fmt.Errorf("reminder delivery request failed: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		d.logger.Warn("reminder delivery rejected",
			"task_id", taskID,
			"status", resp.StatusCode)
		return fmt.Errorf("reminder delivery rejected with status %d", resp.StatusCode)
	}

	return nil
}
