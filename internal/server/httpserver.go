package server

import (
	"context"
	"net/http"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/Pillumz/caldav-mcp/internal/instrumentation"
)

// HTTPServer serves the MCP protocol over streamable HTTP. It exposes
// the /mcp endpoint alongside health check endpoints, and records HTTP
// request metrics when instrumentation is configured.
type HTTPServer struct {
	mcpServer     *mcpserver.MCPServer
	healthChecker *HealthChecker
	metrics       *instrumentation.Metrics
	httpServer    *http.Server

	// TLS material; both must be set to enable TLS
	tlsCertFile string
	tlsKeyFile  string
}

// HTTPServerConfig holds configuration for the streamable HTTP server.
type HTTPServerConfig struct {
	MCPServer     *mcpserver.MCPServer
	HealthChecker *HealthChecker
	Metrics       *instrumentation.Metrics
	TLSCertFile   string
	TLSKeyFile    string
}

// NewHTTPServer creates a new HTTP server for the MCP streamable
// transport.
func NewHTTPServer(config HTTPServerConfig) *HTTPServer {
	return &HTTPServer{
		mcpServer:     config.MCPServer,
		healthChecker: config.HealthChecker,
		metrics:       config.Metrics,
		tlsCertFile:   config.TLSCertFile,
		tlsKeyFile:    config.TLSKeyFile,
	}
}

// Start starts the HTTP server on the given address. It blocks until
// the server stops.
func (s *HTTPServer) Start(addr string) error {
	mux := http.NewServeMux()

	streamable := mcpserver.NewStreamableHTTPServer(s.mcpServer,
		mcpserver.WithEndpointPath("/mcp"),
	)
	mux.Handle("/mcp", s.instrumented("/mcp", streamable))

	if s.healthChecker != nil {
		s.healthChecker.RegisterHealthEndpoints(mux)
	}

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	if s.tlsCertFile != "" && s.tlsKeyFile != "" {
		return s.httpServer.ListenAndServeTLS(s.tlsCertFile, s.tlsKeyFile)
	}
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}

// statusRecorder captures the response status code for metrics.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// instrumented wraps a handler with HTTP request metrics.
func (s *HTTPServer) instrumented(path string, next http.Handler) http.Handler {
	if s.metrics == nil {
		return next
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(recorder, r)

		s.metrics.RecordHTTPRequest(r.Context(), r.Method, path, recorder.status, time.Since(start))
	})
}
