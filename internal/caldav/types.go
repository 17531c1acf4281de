package caldav

import "time"

// CalendarInfo describes a calendar discovered on a CalDAV server.
type CalendarInfo struct {
	Name    string `json:"name"`
	URL     string `json:"url"`
	Account string `json:"account"`
}

// EventInfo describes a single event occurrence within a calendar.
// Recurring events are expanded, so each occurrence appears as its
// own EventInfo with concrete start and end times.
type EventInfo struct {
	UID         string    `json:"uid"`
	Summary     string    `json:"summary"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	CalendarURL string    `json:"calendar_url"`
	Description string    `json:"description,omitempty"`
	Location    string    `json:"location,omitempty"`
}

// EventInput holds the fields for creating a new event.
type EventInput struct {
	Summary     string
	Start       time.Time
	End         time.Time
	Description string
	Location    string
}

// rawEvent is the intermediate form of a VEVENT parsed from iCalendar
// data, before recurrence expansion.
type rawEvent struct {
	UID         string
	Summary     string
	Description string
	Location    string
	Start       time.Time
	End         time.Time
	AllDay      bool
	RRule       string
	ExDates     []time.Time
}
