package domain

import "time"

// ClarificationOption is one concrete time the user may pick to resolve
// a vague deadline, e.g. "in 1 hour".
type ClarificationOption struct {
	Label string    `json:"label"`
	At    time.Time `json:"at"`
}

// ClarificationSession holds a partially built task that is suspended
// until the user answers a clarifying time question. At most one session
// exists per user; a new ambiguous utterance replaces any existing one.
type ClarificationSession struct {
	UserID      string                `json:"user_id"`
	Description string                `json:"description"`
	Priority    Priority              `json:"priority"`
	Category    Category              `json:"category"`
	Phrase      string                `json:"phrase"`
	Options     []ClarificationOption `json:"options"`
	CreatedAt   time.Time             `json:"created_at"`
	ExpiresAt   time.Time             `json:"expires_at"`
}

// Validate checks if the session has valid data.
func (s *ClarificationSession) Validate() error {
	if s.UserID == "" {
		return ErrSessionUserIDEmpty
	}
	if s.Description == "" {
		return ErrTaskDescriptionEmpty
	}
	return nil
}

// Expired reports whether the session has passed its expiry at the given
// reference time.
func (s *ClarificationSession) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}
