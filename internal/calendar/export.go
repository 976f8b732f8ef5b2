// Package calendar renders project events as iCalendar data.
package calendar

import (
	"context"
	"fmt"
	"strings"
	"time"

	"pwcal/internal/ident"
	"pwcal/internal/models"
)

// ProductID identifies this application in generated calendars.
const ProductID = "-//PW Calendar//NONSGML v1.0//EN"

const (
	dateFormat     = "20060102"
	dateTimeFormat = "20060102T150405Z"
	crlf           = "\r\n"
)

// EventLister is the read path the exporter needs.
type EventLister interface {
	ListByProject(ctx context.Context, projectID string) ([]models.Event, error)
}

// Exporter builds a project's subscribable feed.
type Exporter struct {
	events EventLister
	now    ident.Clock
}

// NewExporter returns an exporter. A nil clock uses the wall clock.
func NewExporter(events EventLister, clock ident.Clock) *Exporter {
	if clock == nil {
		clock = ident.Now
	}
	return &Exporter{events: events, now: clock}
}

// Export renders every live event of the project.
func (x *Exporter) Export(ctx context.Context, projectID string) (string, error) {
	events, err := x.events.ListByProject(ctx, projectID)
	if err != nil {
		return "", fmt.Errorf("failed to load events: %w", err)
	}
	return Render(events, x.now()), nil
}

// Render serialises events in the given order. Lines are joined with CRLF
// and the document has no trailing line break. Property values are written
// as stored, except that description newlines become the two characters \n.
func Render(events []models.Event, now time.Time) string {
	lines := []string{
		"BEGIN:VCALENDAR",
		"VERSION:2.0",
		"PRODID:" + ProductID,
		"CALSCALE:GREGORIAN",
		"METHOD:PUBLISH",
	}
	stamp := formatDateTime(now)
	for _, ev := range events {
		param := ""
		if ev.AllDay {
			param = ";VALUE=DATE"
		}
		lines = append(lines,
			"BEGIN:VEVENT",
			"UID:"+ev.ID,
			"DTSTAMP:"+stamp,
			"DTSTART"+param+":"+formatTime(ev.Start, ev.AllDay),
			"DTEND"+param+":"+formatTime(ev.End, ev.AllDay),
			"SUMMARY:"+ev.Title,
		)
		if ev.Description != "" {
			lines = append(lines, "DESCRIPTION:"+strings.ReplaceAll(ev.Description, "\n", `\n`))
		}
		lines = append(lines,
			"ATTENDEE:"+strings.Join(ev.Participants, ","),
			"END:VEVENT",
		)
	}
	lines = append(lines, "END:VCALENDAR")
	return strings.Join(lines, crlf)
}

// formatTime uses the UTC calendar date for all-day values.
func formatTime(t time.Time, allDay bool) string {
	if allDay {
		return t.UTC().Format(dateFormat)
	}
	return formatDateTime(t)
}

func formatDateTime(t time.Time) string {
	return t.UTC().Format(dateTimeFormat)
}
