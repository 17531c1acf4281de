// Package logging provides structured logging utilities for caldav-mcp.
//
// This package centralizes logging patterns to ensure consistent, structured
// logging throughout the codebase using the standard library's slog package.
//
// Create a logger with standard attributes:
//
//	logger := logging.WithTool(slog.Default(), "list_events")
//	logger.Info("listing events", logging.Account("Work"))
//
// Credentials are never logged directly; use SanitizeSecret when a secret
// must appear in diagnostics.
package logging
