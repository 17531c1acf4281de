// Package server provides the MCP server runtime: shared server
// context, the streamable HTTP transport, health check endpoints for
// Kubernetes probes, and the dedicated Prometheus metrics server.
package server
