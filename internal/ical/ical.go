// Package ical extracts feed events from iCalendar documents.
package ical

import (
	"bytes"
	"fmt"
	"time"

	ics "github.com/arran4/golang-ical"
	"go.uber.org/zap"

	"github.com/ijug-ev/cindy/internal/feed"
)

const (
	layoutUTC      = "20060102T150405Z"
	layoutFloating = "20060102T150405"
	layoutDate     = "20060102"
)

// Extract parses an iCalendar payload and returns one feed.Event per
// VEVENT component, in document order. Component-level oddities are
// tolerated; a document that does not parse at all is an error.
func Extract(body []byte, logger *zap.Logger) ([]feed.Event, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	cal, err := ics.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse calendar: %w", err)
	}

	components := cal.Events()
	events := make([]feed.Event, 0, len(components))
	for _, ve := range components {
		events = append(events, extractEvent(ve, logger))
	}
	return events, nil
}

func extractEvent(ve *ics.VEvent, logger *zap.Logger) feed.Event {
	ev := feed.Event{
		UID:            text(ve, ics.ComponentPropertyUniqueId),
		Summary:        text(ve, ics.ComponentPropertySummary),
		Description:    text(ve, ics.ComponentPropertyDescription),
		Location:       text(ve, ics.ComponentPropertyLocation),
		URL:            text(ve, ics.ComponentPropertyUrl),
		Classification: text(ve, ics.ComponentPropertyClass),
		Status:         text(ve, ics.ComponentPropertyStatus),
	}
	ev.Version = version(ve)
	ev.Start = temporal(ve.GetProperty(ics.ComponentPropertyDtStart))

	if ev.Start.Kind == feed.TemporalUnknown && ve.GetProperty(ics.ComponentPropertyDtStart) != nil {
		logger.Warn("event start has an unrecognized temporal representation",
			zap.String("uid", ev.UID),
			zap.String("dtstart", ve.GetProperty(ics.ComponentPropertyDtStart).Value),
		)
	}
	return ev
}

func text(ve *ics.VEvent, name ics.ComponentProperty) string {
	p := ve.GetProperty(name)
	if p == nil {
		return ""
	}
	return p.Value
}

// version picks the most recent known modification timestamp: the first
// present of LAST-MODIFIED, CREATED, DTSTAMP.
func version(ve *ics.VEvent) time.Time {
	for _, name := range []ics.ComponentProperty{
		ics.ComponentPropertyLastModified,
		ics.ComponentPropertyCreated,
		ics.ComponentPropertyDtstamp,
	} {
		p := ve.GetProperty(name)
		if p == nil || p.Value == "" {
			continue
		}
		if t, err := time.Parse(layoutUTC, p.Value); err == nil {
			return t
		}
		if t, err := time.Parse(layoutFloating, p.Value); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

// temporal builds the tagged start value, preserving the document's
// zoned / offset / floating / date-only variant.
func temporal(p *ics.IANAProperty) feed.Temporal {
	if p == nil || p.Value == "" {
		return feed.Temporal{}
	}
	value := p.Value

	if tzids, ok := p.ICalParameters["TZID"]; ok && len(tzids) > 0 && tzids[0] != "" {
		loc, err := time.LoadLocation(tzids[0])
		if err != nil {
			return feed.Temporal{}
		}
		if t, err := time.ParseInLocation(layoutFloating, value, loc); err == nil {
			return feed.Temporal{Kind: feed.TemporalZoned, Time: t}
		}
		return feed.Temporal{}
	}

	if t, err := time.Parse(layoutUTC, value); err == nil {
		return feed.Temporal{Kind: feed.TemporalOffset, Time: t}
	}
	if t, err := time.Parse(layoutFloating, value); err == nil {
		return feed.Temporal{Kind: feed.TemporalLocal, Time: t}
	}
	if t, err := time.Parse(layoutDate, value); err == nil {
		return feed.Temporal{Kind: feed.TemporalDate, Time: t}
	}
	return feed.Temporal{}
}
