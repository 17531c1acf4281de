// Package calendar_tools implements the MCP tools for CalDAV calendar
// access: list_calendars, list_events, create_event, and delete_event.
//
// Calendars are addressed by the URL returned from list_calendars; each
// tool resolves that URL to the owning account before performing the
// operation. When the server runs in read-only mode the mutating tools
// are not registered.
package calendar_tools
