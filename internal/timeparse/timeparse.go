// Package timeparse resolves temporal expressions in free-form text.
//
// Resolve is a pure function: given the text and a reference "now" it
// either produces a concrete timestamp ("tomorrow at 2pm", "in 30
// minutes", "friday"), flags a vague-only time phrase ("later today",
// "soon") or reports that the text carries no temporal content at all.
// Callers treat the last case as "deadline not mentioned", which is
// distinct from "deadline intentionally vague".
package timeparse

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Resolution is the outcome of resolving temporal content in text.
// At is non-nil when an unambiguous timestamp was found. Vague is true
// when only a qualitative phrase was found, with Phrase holding the
// matched text. Both zero means no temporal content was detected.
type Resolution struct {
	At     *time.Time
	Vague  bool
	Phrase string
}

// vaguePhrases is the fixed vocabulary of qualitative time phrases,
// ordered longest-first so the most specific phrase wins.
var vaguePhrases = []string{
	"sometime this afternoon",
	"sometime this evening",
	"sometime today",
	"this afternoon",
	"this evening",
	"later today",
	"in a while",
	"in a bit",
	"later",
	"soon",
	"today",
}

var (
	relativeRe = regexp.MustCompile(`\bin\s+(\d+)\s*(seconds?|secs?|minutes?|mins?|hours?|hrs?|days?)\b`)
	tomorrowRe = regexp.MustCompile(`\btomorrow(?:\s+at\s+(\d{1,2})(?::(\d{2}))?\s*(am|pm)?)?\b`)
	weekdayRe  = regexp.MustCompile(`\b(?:on\s+|by\s+|next\s+)?(monday|tuesday|wednesday|thursday|friday|saturday|sunday)\b`)
	clockRe    = regexp.MustCompile(`\bat\s+(\d{1,2})(?::(\d{2}))?\s*(am|pm)?\b`)
	bareAmPmRe = regexp.MustCompile(`\b(\d{1,2})(?::(\d{2}))?\s*(am|pm)\b`)
	endOfDayRe = regexp.MustCompile(`\b(?:end of (?:the )?day|eod)\b`)
	tonightRe  = regexp.MustCompile(`\btonight\b`)
	noonRe     = regexp.MustCompile(`\b(?:at\s+)?noon\b`)
)

var weekdays = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// Hour anchors for day-level expressions.
const (
	defaultMorningHour = 9  // bare "tomorrow"
	weekdayAnchorHour  = 17 // bare weekday names
	tonightHour        = 20
)

// Resolve scans text for temporal content relative to now.
// Concrete expressions take precedence over vague phrases, so
// "today at 3pm" resolves to a timestamp rather than flagging "today".
func Resolve(text string, now time.Time) Resolution {
	lower := strings.ToLower(text)

	if at, ok := resolveConcrete(lower, now); ok {
		return Resolution{At: &at}
	}

	for _, phrase := range vaguePhrases {
		if containsPhrase(lower, phrase) {
			return Resolution{Vague: true, Phrase: phrase}
		}
	}

	return Resolution{}
}

// ResolveAnswer interprets a clarification answer as a concrete time.
// Unlike Resolve it never returns a vague result: the answer either
// parses to a timestamp or it does not.
func ResolveAnswer(text string, now time.Time) (time.Time, bool) {
	return resolveConcrete(strings.ToLower(text), now)
}

func resolveConcrete(lower string, now time.Time) (time.Time, bool) {
	if m := relativeRe.FindStringSubmatch(lower); m != nil {
		n, err := strconv.Atoi(m[1])
		if err != nil {
			return time.Time{}, false
		}
		var unit time.Duration
		switch {
		case strings.HasPrefix(m[2], "sec"):
			unit = time.Second
		case strings.HasPrefix(m[2], "min"):
			unit = time.Minute
		case strings.HasPrefix(m[2], "h"):
			unit = time.Hour
		default:
			unit = 24 * time.Hour
		}
		return now.Add(time.Duration(n) * unit), true
	}

	if m := tomorrowRe.FindStringSubmatch(lower); m != nil {
		day := now.AddDate(0, 0, 1)
		hour, minute := defaultMorningHour, 0
		switch {
		case m[1] != "":
			hour, minute = clockFields(m[1], m[2], m[3])
		default:
			// "at 3pm tomorrow" puts the clock before the day word.
			if c := clockRe.FindStringSubmatch(lower); c != nil {
				hour, minute = clockFields(c[1], c[2], c[3])
			} else if c := bareAmPmRe.FindStringSubmatch(lower); c != nil {
				hour, minute = clockFields(c[1], c[2], c[3])
			}
		}
		return timeOn(day, hour, minute), true
	}

	if m := weekdayRe.FindStringSubmatch(lower); m != nil {
		target := weekdays[m[1]]
		days := int(target-now.Weekday()+7) % 7
		if days == 0 {
			days = 7
		}
		day := now.AddDate(0, 0, days)
		hour, minute := weekdayAnchorHour, 0
		if c := clockRe.FindStringSubmatch(lower); c != nil {
			hour, minute = clockFields(c[1], c[2], c[3])
		}
		return timeOn(day, hour, minute), true
	}

	if endOfDayRe.MatchString(lower) {
		return timeOn(now, 23, 59), true
	}

	if tonightRe.MatchString(lower) {
		return timeOn(now, tonightHour, 0), true
	}

	if noonRe.MatchString(lower) {
		at := timeOn(now, 12, 0)
		if !at.After(now) {
			at = at.AddDate(0, 0, 1)
		}
		return at, true
	}

	for _, re := range []*regexp.Regexp{clockRe, bareAmPmRe} {
		if m := re.FindStringSubmatch(lower); m != nil {
			hour, minute := clockFields(m[1], m[2], m[3])
			at := timeOn(now, hour, minute)
			if !at.After(now) {
				at = at.AddDate(0, 0, 1)
			}
			return at, true
		}
	}

	return time.Time{}, false
}

// clockFields converts matched hour/minute/meridiem strings to 24h fields.
func clockFields(hourStr, minStr, meridiem string) (int, int) {
	hour, _ := strconv.Atoi(hourStr)
	minute := 0
	if minStr != "" {
		minute, _ = strconv.Atoi(minStr)
	}
	switch meridiem {
	case "pm":
		if hour < 12 {
			hour += 12
		}
	case "am":
		if hour == 12 {
			hour = 0
		}
	}
	if hour > 23 {
		hour = 23
	}
	if minute > 59 {
		minute = 59
	}
	return hour, minute
}

func timeOn(day time.Time, hour, minute int) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, day.Location())
}

// containsPhrase reports whether lower contains phrase on word
// boundaries. A bare "today" followed by a clock reference does not
// count; resolveConcrete has already claimed those.
func containsPhrase(lower, phrase string) bool {
	idx := strings.Index(lower, phrase)
	for idx >= 0 {
		before := idx == 0 || !isWordByte(lower[idx-1])
		end := idx + len(phrase)
		after := end == len(lower) || !isWordByte(lower[end])
		if before && after {
			return true
		}
		next := strings.Index(lower[idx+1:], phrase)
		if next < 0 {
			return false
		}
		idx = idx + 1 + next
	}
	return false
}

func isWordByte(b byte) bool {
	return b == '_' || (b >= 'a' && b <= 'z') || (b >= '0' && b <= '9')
}
