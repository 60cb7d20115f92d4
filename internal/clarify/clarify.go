// Package clarify implements the per-user clarification state machine.
//
// When an utterance creates a task with a vague deadline ("pay john
// sometime today"), the pipeline suspends the partial task here and
// asks the user to pick a concrete time. Each user has at most one
// session; a new ambiguous utterance replaces any existing session
// rather than stacking. Sessions expire after a fixed timeout and an
// unrelated reply abandons them, so a user is never trapped.
package clarify

import (
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/aviraln/nudge/internal/domain"
	"github.com/aviraln/nudge/internal/timeparse"
)

// Result classifies what a user's message meant to an open session.
type Result int

const (
	// ResultNoSession means the user had no open session; the message
	// follows the normal extraction path.
	ResultNoSession Result = iota

	// ResultResolved means the message answered the session; the caller
	// finalizes the task with the resolved time.
	ResultResolved

	// ResultAbandoned means the message did not match the expected
	// answer shape; the session is gone and the message follows the
	// normal extraction path.
	ResultAbandoned

	// ResultExpired means the session had already timed out; it is
	// discarded and the message follows the normal extraction path.
	ResultExpired
)

// Manager holds the open clarification sessions keyed by user ID.
// All methods are safe for concurrent use; the internal mutex is the
// single point enforcing the one-session-per-user invariant.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*domain.ClarificationSession
	timeout  time.Duration
	logger   *slog.Logger
}

// NewManager creates a Manager with the given session timeout.
func NewManager(timeout time.Duration, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		sessions: make(map[string]*domain.ClarificationSession),
		timeout:  timeout,
		logger:   logger.With(slog.String("component", "clarify_manager")),
	}
}

// Begin opens a session for the partial task carried by a vague create
// intent, replacing any existing session for the user. No task record
// is written; the partial task lives only in the session until the
// user answers.
func (m *Manager) Begin(userID string, in domain.Intent, now time.Time) *domain.ClarificationSession {
	category := domain.CategoryForDescription(in.Description)
	session := &domain.ClarificationSession{
		UserID:      userID,
		Description: in.Description,
		Priority:    domain.PriorityForCategory(category, in.Priority),
		Category:    category,
		Phrase:      in.VaguePhrase,
		Options:     OptionsFor(in.VaguePhrase, now),
		CreatedAt:   now,
		ExpiresAt:   now.Add(m.timeout),
	}

	m.mu.Lock()
	_, replaced := m.sessions[userID]
	m.sessions[userID] = session
	m.mu.Unlock()

	m.logger.Debug("clarification session opened",
		"user_id", userID,
		"phrase", in.VaguePhrase,
		"replaced_existing", replaced)

	return session
}

// Answer checks a user's message against their open session.
//
// A message matching one of the offered options or parsing as a fresh
// concrete time resolves the session and returns it with the resolved
// timestamp. Any other message abandons the session. In every case the
// session is removed before Answer returns; when task finalization
// fails afterwards the caller may Restore the returned session.
func (m *Manager) Answer(userID, text string, now time.Time) (*domain.ClarificationSession, time.Time, Result) {
	m.mu.Lock()
	session, ok := m.sessions[userID]
	if ok {
		delete(m.sessions, userID)
	}
	m.mu.Unlock()

	if !ok {
		return nil, time.Time{}, ResultNoSession
	}

	if session.Expired(now) {
		m.logger.Debug("clarification session expired on touch", "user_id", userID)
		return nil, time.Time{}, ResultExpired
	}

	answer := strings.ToLower(strings.TrimSpace(text))
	for _, opt := range session.Options {
		if strings.ToLower(opt.Label) == answer {
			return session, opt.At, ResultResolved
		}
	}

	// The prompt numbers the options, so a bare "1" or "2." picks one.
	if idx, err := strconv.Atoi(strings.TrimRight(answer, ".)")); err == nil {
		if idx >= 1 && idx <= len(session.Options) {
			return session, session.Options[idx-1].At, ResultResolved
		}
	}

	if at, ok := timeparse.ResolveAnswer(text, now); ok {
		return session, at, ResultResolved
	}

	m.logger.Debug("clarification session abandoned", "user_id", userID)
	return nil, time.Time{}, ResultAbandoned
}

// HasSession reports whether the user currently has an open session.
func (m *Manager) HasSession(userID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.sessions[userID]
	return ok
}

// Restore re-opens a session removed by Answer. Used when task
// finalization fails after a resolved answer so the user can retry.
func (m *Manager) Restore(session *domain.ClarificationSession) {
	m.mu.Lock()
	m.sessions[session.UserID] = session
	m.mu.Unlock()
}

// SweepExpired discards all sessions past their expiry and returns how
// many were removed. Intended to run on a periodic timer.
func (m *Manager) SweepExpired(now time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for userID, session := range m.sessions {
		if session.Expired(now) {
			delete(m.sessions, userID)
			removed++
		}
	}

	if removed > 0 {
		m.logger.Info("swept expired clarification sessions", "count", removed)
	}
	return removed
}

// Default option anchors.
const endOfDayLabel = "end of day"

// OptionsFor derives the concrete time menu offered for a detected
// vague phrase. The menu is fixed per phrase class so replies can be
// matched deterministically.
func OptionsFor(phrase string, now time.Time) []domain.ClarificationOption {
	endOfDay := time.Date(now.Year(), now.Month(), now.Day(), 23, 59, 0, 0, now.Location())

	clockOption := func(label string, hour int) domain.ClarificationOption {
		return domain.ClarificationOption{
			Label: label,
			At:    time.Date(now.Year(), now.Month(), now.Day(), hour, 0, 0, 0, now.Location()),
		}
	}

	switch phrase {
	case "this afternoon", "sometime this afternoon":
		return []domain.ClarificationOption{
			clockOption("1:00 PM", 13),
			clockOption("3:00 PM", 15),
			clockOption("5:00 PM", 17),
		}
	case "this evening", "sometime this evening":
		return []domain.ClarificationOption{
			clockOption("6:00 PM", 18),
			clockOption("8:00 PM", 20),
			{Label: endOfDayLabel, At: endOfDay},
		}
	default:
		return []domain.ClarificationOption{
			{Label: "in 1 hour", At: now.Add(time.Hour)},
			{Label: "in 3 hours", At: now.Add(3 * time.Hour)},
			{Label: endOfDayLabel, At: endOfDay},
		}
	}
}
