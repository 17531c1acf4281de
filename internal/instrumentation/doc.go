// Package instrumentation provides OpenTelemetry-based observability:
// metrics, distributed tracing, and audit logging for MCP tool
// invocations and CalDAV operations.
//
// The Provider is configured from environment variables and supports
// Prometheus, OTLP, and stdout exporters for metrics, and OTLP, stdout,
// or no-op exporters for traces.
package instrumentation
