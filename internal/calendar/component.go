package calendar

import (
	"net/url"
	"time"

	"github.com/emersion/go-ical"

	"pwcal/internal/models"
)

// Component maps an event to a VEVENT for CalDAV servers. Unlike Render, an
// all-day DTEND is the exclusive next day and each participant is its own
// ATTENDEE with a mailto URI, which is what servers expect.
func Component(ev models.Event, now time.Time) *ical.Component {
	ve := ical.NewComponent(ical.CompEvent)
	ve.Props.SetText(ical.PropUID, ev.ID)
	ve.Props.SetDateTime(ical.PropDateTimeStamp, now.UTC())
	if ev.AllDay {
		start := ev.Start.UTC()
		end := ev.End.UTC()
		ve.Props.SetDate(ical.PropDateTimeStart, start)
		ve.Props.SetDate(ical.PropDateTimeEnd, time.Date(end.Year(), end.Month(), end.Day()+1, 0, 0, 0, 0, time.UTC))
	} else {
		ve.Props.SetDateTime(ical.PropDateTimeStart, ev.Start.UTC())
		ve.Props.SetDateTime(ical.PropDateTimeEnd, ev.End.UTC())
	}
	ve.Props.SetText(ical.PropSummary, ev.Title)
	if ev.Description != "" {
		ve.Props.SetText(ical.PropDescription, ev.Description)
	}
	for _, email := range ev.Participants {
		p := ical.NewProp(ical.PropAttendee)
		p.SetURI(mailto(email))
		ve.Props.Add(p)
	}
	ve.Props.SetDateTime(ical.PropLastModified, ev.UpdatedAt.UTC())
	return ve
}

// Calendar wraps a single event in a VCALENDAR, the unit a CalDAV PUT carries.
func Calendar(ev models.Event, now time.Time) *ical.Calendar {
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, ProductID)
	cal.Children = append(cal.Children, Component(ev, now))
	return cal
}

func mailto(email string) *url.URL {
	return &url.URL{Scheme: "mailto", Opaque: email}
}
