package domain

import (
	"time"

	"github.com/google/uuid"
)

// IntentKind identifies the operation an extracted intent represents.
type IntentKind string

// Intent kinds produced by the extraction layer.
const (
	IntentCreate   IntentKind = "create"
	IntentComplete IntentKind = "complete"
	IntentUpdate   IntentKind = "update"
	IntentNone     IntentKind = "none"
)

// TaskUpdate carries the mutable task fields an update intent may change.
// Nil fields are left untouched.
type TaskUpdate struct {
	Description *string
	Due         *time.Time
	Priority    *Priority
}

// Empty reports whether the update changes nothing.
func (u TaskUpdate) Empty() bool {
	return u.Description == nil && u.Due == nil && u.Priority == nil
}

// Intent is a single structured operation derived from an utterance.
//
// Create intents carry a description, an optional resolved due time and,
// when the utterance mentioned time only vaguely, the Vague flag with the
// matched phrase. Complete and update intents reference an existing task
// by ID, mapped from the numbered list shown to the user.
type Intent struct {
	Kind IntentKind

	// Create fields.
	Description string
	Due         *time.Time
	Priority    Priority
	Vague       bool
	VaguePhrase string

	// Complete/update fields.
	TaskID uuid.UUID
	Update TaskUpdate
}

// IntentBatch is the ordered set of intents extracted from one utterance.
// It is ephemeral: produced per message and consumed exactly once.
type IntentBatch []Intent

// Empty reports whether the batch contains no actionable intent.
func (b IntentBatch) Empty() bool {
	for _, in := range b {
		if in.Kind != IntentNone {
			return false
		}
	}
	return true
}
