package caldav

import (
	"fmt"
	"strings"
)

// NotFoundError is returned when no configured account owns the
// requested calendar URL. It carries the list of known calendar URLs
// so callers can surface them to the user.
type NotFoundError struct {
	CalendarURL string
	KnownURLs   []string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no account found for calendar URL: %s. Available URLs: %s",
		e.CalendarURL, strings.Join(e.KnownURLs, ", "))
}

// ConnectionError is returned when connecting to a CalDAV account fails.
type ConnectionError struct {
	Account string
	Err     error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("failed to connect to %s: %v", e.Account, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// EventNotFoundError is returned when deleting an event whose UID does
// not exist in the calendar.
type EventNotFoundError struct {
	UID string
}

func (e *EventNotFoundError) Error() string {
	return fmt.Sprintf("event with UID %s not found in calendar", e.UID)
}
