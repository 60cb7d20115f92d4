// Package extraction defines the boundary between the application core
// and the external language-understanding service that turns free-form
// utterances into structured intent batches.
package extraction

import (
	"context"
	"time"

	"github.com/aviraln/nudge/internal/domain"
	"github.com/google/uuid"
)

// ListedTask is one entry of the numbered open-task list supplied to
// the extractor. The position is what lets a reference like "done 1"
// map deterministically to a task ID.
type ListedTask struct {
	Position    int
	ID          uuid.UUID
	Description string
	Due         *time.Time
}

// NumberTasks converts an ordered slice of open tasks into the numbered
// list the extractor receives. Positions are 1-based and follow the
// slice order, which must match the list shown to the user.
func NumberTasks(tasks []*domain.Task) []ListedTask {
	listed := make([]ListedTask, 0, len(tasks))
	for i, t := range tasks {
		listed = append(listed, ListedTask{
			Position:    i + 1,
			ID:          t.ID,
			Description: t.Description,
			Due:         t.Due,
		})
	}
	return listed
}

// Extractor converts an utterance plus the user's numbered open-task
// list into an intent batch. Implementations wrap an external service;
// the Gemini-backed one lives in internal/platform/gemini.
type Extractor interface {
	// Extract parses the utterance in the context of the numbered task
	// list. The reference now anchors all relative time calculations so
	// results are reproducible for a given message.
	//
	// Returns ErrUnavailable (possibly wrapped) when the service cannot
	// be reached or its response cannot be used; the caller must treat
	// that as retryable rather than as an empty batch.
	Extract(ctx context.Context, utterance string, tasks []ListedTask, now time.Time) (domain.IntentBatch, error)
}
