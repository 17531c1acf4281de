// Package caldav provides a multi-account CalDAV client layer.
//
// Accounts are configured from the environment and connected eagerly at
// startup. Calendars discovered during connection are cached for the
// lifetime of the process, and calendar URLs from tool requests are
// resolved against that cache to find the owning account.
package caldav
