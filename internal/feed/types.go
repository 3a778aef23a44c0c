// Package feed defines core types shared across subsystems.
package feed

import (
	"net/url"
	"time"
)

// TemporalKind discriminates the representations a DTSTART value can take.
type TemporalKind int

// Temporal variants as they appear in calendar documents.
const (
	TemporalUnknown TemporalKind = iota
	TemporalZoned                // time with an explicit TZID zone
	TemporalOffset               // time with a UTC offset (the "Z" form)
	TemporalLocal                // floating local date-time, no zone
	TemporalDate                 // all-day date, no time component
)

// Temporal is a tagged temporal value. For Zoned and Offset the Time field
// is already absolute; Local and Date carry wall-clock fields that only
// become absolute once anchored in a target zone.
type Temporal struct {
	Kind TemporalKind
	Time time.Time
}

// IsZero reports whether the value carries no usable time at all.
func (t Temporal) IsZero() bool {
	return t.Kind == TemporalUnknown && t.Time.IsZero()
}

// Instant normalizes the value to an absolute instant. Local date-times
// and all-day dates are anchored in loc. The second return is false for
// an unrecognized representation.
func (t Temporal) Instant(loc *time.Location) (time.Time, bool) {
	switch t.Kind {
	case TemporalZoned, TemporalOffset:
		return t.Time, true
	case TemporalLocal:
		w := t.Time
		return time.Date(w.Year(), w.Month(), w.Day(), w.Hour(), w.Minute(), w.Second(), 0, loc), true
	case TemporalDate:
		w := t.Time
		return time.Date(w.Year(), w.Month(), w.Day(), 0, 0, 0, 0, loc), true
	default:
		return time.Time{}, false
	}
}

// Format renders the wall-clock reading of the value in loc.
func (t Temporal) Format(layout string, loc *time.Location) string {
	switch t.Kind {
	case TemporalZoned, TemporalOffset:
		return t.Time.In(loc).Format(layout)
	case TemporalLocal, TemporalDate:
		return t.Time.Format(layout)
	default:
		return ""
	}
}

// Event is one calendar event as extracted from a parsed component.
// Derived fresh each cycle, never persisted, immutable once built.
type Event struct {
	UID            string
	Version        time.Time // most recent of LAST-MODIFIED, CREATED, DTSTAMP
	Summary        string
	Description    string
	Start          Temporal
	Location       string
	URL            string
	Classification string
	Status         string
}

// CalendarSource is one configured feed. Built once at startup and shared
// read-only across cycles.
type CalendarSource struct {
	URI string
}

// ParseSource validates a configured source URI.
func ParseSource(raw string) (CalendarSource, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return CalendarSource{}, err
	}
	return CalendarSource{URI: u.String()}, nil
}

// Visibility is the access-control classification of a published post.
type Visibility string

// Visibility values understood by the publish target.
const (
	VisibilityPublic    Visibility = "public"
	VisibilityFollowers Visibility = "private"
	VisibilityDirect    Visibility = "direct"
)

// Post is one outgoing status: the text, its visibility, and a spoiler
// shown as preview before the body.
type Post struct {
	Text        string
	Visibility  Visibility
	SpoilerText string
}
