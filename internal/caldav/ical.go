package caldav

import (
	"fmt"
	"strings"
	"time"

	"github.com/emersion/go-ical"
)

const productID = "-//caldav-mcp//CalDAV MCP Server//EN"

// parseEvents extracts all VEVENT components from an iCalendar object.
// A component without DTSTART or DTEND is reported as an error so the
// caller can log and skip the whole object.
func parseEvents(cal *ical.Calendar) ([]rawEvent, error) {
	if cal == nil {
		return nil, fmt.Errorf("no data in calendar object")
	}

	var events []rawEvent
	for _, comp := range cal.Children {
		if comp.Name != ical.CompEvent {
			continue
		}

		ev := rawEvent{}

		if prop := comp.Props.Get(ical.PropUID); prop != nil {
			ev.UID = prop.Value
		}
		if prop := comp.Props.Get(ical.PropSummary); prop != nil {
			ev.Summary = prop.Value
		}
		if prop := comp.Props.Get(ical.PropDescription); prop != nil {
			ev.Description = prop.Value
		}
		if prop := comp.Props.Get(ical.PropLocation); prop != nil {
			ev.Location = prop.Value
		}

		prop := comp.Props.Get(ical.PropDateTimeStart)
		if prop == nil {
			return nil, fmt.Errorf("event %s: missing DTSTART", ev.UID)
		}
		start, err := prop.DateTime(time.UTC)
		if err != nil {
			return nil, fmt.Errorf("event %s: parse DTSTART: %w", ev.UID, err)
		}
		ev.Start = start
		// Date-valued DTSTART marks an all-day event. DateTime already
		// placed it at midnight.
		if prop.Params.Get(ical.ParamValue) == string(ical.ValueDate) {
			ev.AllDay = true
		}

		if prop := comp.Props.Get(ical.PropDateTimeEnd); prop != nil {
			end, err := prop.DateTime(time.UTC)
			if err != nil {
				return nil, fmt.Errorf("event %s: parse DTEND: %w", ev.UID, err)
			}
			ev.End = end
		} else if ev.AllDay {
			// RFC 5545 3.6.1: without DTEND, a date-valued DTSTART spans
			// one day and a timed one takes up no time.
			ev.End = ev.Start.Add(24 * time.Hour)
		} else {
			ev.End = ev.Start
		}

		if prop := comp.Props.Get(ical.PropRecurrenceRule); prop != nil {
			ev.RRule = prop.Value
		}

		// EXDATE may appear multiple times, each with one or more
		// comma-separated values.
		for _, prop := range comp.Props[ical.PropExceptionDates] {
			for _, value := range strings.Split(prop.Value, ",") {
				single := prop
				single.Value = value
				if t, err := single.DateTime(time.UTC); err == nil {
					ev.ExDates = append(ev.ExDates, t)
				}
			}
		}

		events = append(events, ev)
	}

	return events, nil
}

// eventUIDs returns the UIDs of all VEVENT components in an iCalendar
// object. Used during deletion to match objects by event UID.
func eventUIDs(cal *ical.Calendar) []string {
	if cal == nil {
		return nil
	}

	var uids []string
	for _, comp := range cal.Children {
		if comp.Name != ical.CompEvent {
			continue
		}
		if prop := comp.Props.Get(ical.PropUID); prop != nil {
			uids = append(uids, prop.Value)
		}
	}
	return uids
}

// buildEventCalendar wraps a new VEVENT in a VCALENDAR suitable for a
// CalDAV PUT. Times are converted to UTC so the serialized form uses
// the Z suffix.
func buildEventCalendar(uid string, input EventInput) *ical.Calendar {
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, productID)

	vevent := ical.NewEvent()
	vevent.Props.SetText(ical.PropUID, uid)
	vevent.Props.SetText(ical.PropSummary, input.Summary)
	vevent.Props.SetDateTime(ical.PropDateTimeStart, input.Start.UTC())
	vevent.Props.SetDateTime(ical.PropDateTimeEnd, input.End.UTC())

	if input.Description != "" {
		vevent.Props.SetText(ical.PropDescription, input.Description)
	}
	if input.Location != "" {
		vevent.Props.SetText(ical.PropLocation, input.Location)
	}

	vevent.Props.SetDateTime(ical.PropDateTimeStamp, time.Now().UTC())

	cal.Children = append(cal.Children, vevent.Component)
	return cal
}
