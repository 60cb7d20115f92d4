package assistant

import (
	"fmt"
	"strings"
	"time"

	"github.com/aviraln/nudge/internal/domain"
)

// formatDue renders a due time for user-facing replies.
func formatDue(at time.Time) string {
	return at.Format("Mon Jan 2 at 3:04 PM")
}

// clarificationPrompt renders the option menu for a pending
// clarification session.
func clarificationPrompt(session *domain.ClarificationSession) string {
	var b strings.Builder
	fmt.Fprintf(&b, "When should I remind you about %q?", session.Description)
	if session.Phrase != "" {
		fmt.Fprintf(&b, " You said %q.", session.Phrase)
	}
	b.WriteString("\n")
	for i, opt := range session.Options {
		fmt.Fprintf(&b, "%d. %s\n", i+1, opt.Label)
	}
	b.WriteString("Pick one, or tell me a specific time.")
	return b.String()
}

// renderTaskList renders the user's open tasks with the same 1-based
// numbering the extractor sees, so positional references in the next
// message line up with what the user is looking at.
func renderTaskList(tasks []*domain.Task) string {
	if len(tasks) == 0 {
		return "Your list is clear."
	}

	var b strings.Builder
	b.WriteString("Your tasks:\n")
	for i, t := range tasks {
		fmt.Fprintf(&b, "%d. %s", i+1, t.Description)
		if t.Due != nil {
			fmt.Fprintf(&b, " (due %s)", formatDue(*t.Due))
		}
		if t.Priority == domain.PriorityHigh {
			b.WriteString(" [high]")
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// summaryBuilder accumulates the per-intent outcomes of one message
// into a single reply.
type summaryBuilder struct {
	lines []string
}

func (s *summaryBuilder) Created(t *domain.Task) {
	if t.Due != nil {
		s.lines = append(s.lines, fmt.Sprintf("Added %q, reminder set for %s.", t.Description, formatDue(*t.Due)))
		return
	}
	s.lines = append(s.lines, fmt.Sprintf("Added %q.", t.Description))
}

func (s *summaryBuilder) Completed(t *domain.Task) {
	s.lines = append(s.lines, fmt.Sprintf("Done: %q.", t.Description))
}

func (s *summaryBuilder) Updated(t *domain.Task) {
	if t.Due != nil {
		s.lines = append(s.lines, fmt.Sprintf("Updated %q, now due %s.", t.Description, formatDue(*t.Due)))
		return
	}
	s.lines = append(s.lines, fmt.Sprintf("Updated %q.", t.Description))
}

func (s *summaryBuilder) Note(line string) {
	s.lines = append(s.lines, line)
}

func (s *summaryBuilder) Failed(line string) {
	s.lines = append(s.lines, line)
}

func (s *summaryBuilder) String() string {
	return strings.Join(s.lines, "\n")
}

// WithList appends the refreshed open-task list to the summary.
func (s *summaryBuilder) WithList(open []*domain.Task) string {
	head := s.String()
	if head == "" {
		return renderTaskList(open)
	}
	return head + "\n\n" + renderTaskList(open)
}
