package caldav

import (
	"log/slog"
	"time"

	"github.com/teambition/rrule-go"

	"github.com/Pillumz/caldav-mcp/internal/logging"
)

// maxOccurrencesPerEvent caps recurrence expansion so a pathological
// RRULE cannot produce an unbounded result.
const maxOccurrencesPerEvent = 5000

// expandEvents turns parsed VEVENTs into concrete occurrences
// overlapping the half-open window [rangeStart, rangeEnd). Non-recurring
// events pass through unchanged; recurring events are expanded via their
// RRULE with EXDATEs removed.
func expandEvents(events []rawEvent, calendarURL string, rangeStart, rangeEnd time.Time, logger *slog.Logger) []EventInfo {
	var out []EventInfo

	for _, ev := range events {
		if ev.RRule == "" {
			out = append(out, toEventInfo(ev, ev.Start, ev.End, calendarURL))
			continue
		}
		out = append(out, expandRecurring(ev, calendarURL, rangeStart, rangeEnd, logger)...)
	}

	return out
}

func expandRecurring(ev rawEvent, calendarURL string, rangeStart, rangeEnd time.Time, logger *slog.Logger) []EventInfo {
	r, err := rrule.StrToRRule(ev.RRule)
	if err != nil {
		logger.Warn("failed to parse RRULE, skipping recurring event",
			logging.UID(ev.UID),
			slog.String("rrule", ev.RRule),
			logging.Err(err),
		)
		return nil
	}
	r.DTStart(ev.Start)

	var set rrule.Set
	set.RRule(r)
	for _, ex := range ev.ExDates {
		set.ExDate(ex.In(ev.Start.Location()))
	}

	dur := ev.End.Sub(ev.Start)

	// Widen the query window by the occurrence duration so occurrences
	// that began before rangeStart but are still ongoing at rangeStart
	// are produced, then keep only those overlapping the half-open
	// window [rangeStart, rangeEnd).
	loc := ev.Start.Location()
	occTimes := set.Between(rangeStart.Add(-dur).In(loc), rangeEnd.In(loc), true)
	if len(occTimes) > maxOccurrencesPerEvent {
		logger.Warn("recurrence expansion truncated",
			logging.UID(ev.UID),
			slog.Int("cap", maxOccurrencesPerEvent),
		)
		occTimes = occTimes[:maxOccurrencesPerEvent]
	}

	out := make([]EventInfo, 0, len(occTimes))
	for _, occStart := range occTimes {
		if !occStart.Before(rangeEnd) {
			continue
		}
		occEnd := occStart.Add(dur)
		// A zero-length occurrence counts as overlapping when it starts
		// inside the window.
		if !occEnd.After(rangeStart) && occStart.Before(rangeStart) {
			continue
		}
		out = append(out, toEventInfo(ev, occStart, occEnd, calendarURL))
	}
	return out
}

func toEventInfo(ev rawEvent, start, end time.Time, calendarURL string) EventInfo {
	return EventInfo{
		UID:         ev.UID,
		Summary:     ev.Summary,
		Start:       start,
		End:         end,
		CalendarURL: calendarURL,
		Description: ev.Description,
		Location:    ev.Location,
	}
}
