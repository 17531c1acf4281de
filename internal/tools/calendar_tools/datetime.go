package calendar_tools

import (
	"fmt"
	"time"
)

// defaultEventWindow is the range used by list_events when no end date
// is given.
const defaultEventWindow = 30 * 24 * time.Hour

// isoLayouts are tried in order when parsing ISO 8601 input. A trailing
// Z or an explicit offset is handled by RFC 3339; layouts without zone
// information are interpreted as UTC.
var isoLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// parseISOTime parses an ISO 8601 date or datetime string.
func parseISOTime(value string) (time.Time, error) {
	for _, layout := range isoLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid ISO 8601 date: %q", value)
}
