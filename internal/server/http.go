package server

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/felixge/httpsnoop"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/transcon/cmsledger/internal/instrumentation"
)

// MCPEndpointPath is where the streamable HTTP transport is mounted.
const MCPEndpointPath = "/mcp"

// HTTPServerConfig configures the MCP HTTP server.
type HTTPServerConfig struct {
	Addr             string
	DisableStreaming bool
	HealthChecker    *HealthChecker
	Metrics          *instrumentation.Metrics
	TLSCertFile      string
	TLSKeyFile       string
}

// HTTPServer serves the MCP streamable HTTP transport and health endpoints.
type HTTPServer struct {
	mcpServer *mcpserver.MCPServer
	cfg       HTTPServerConfig

	mu         sync.Mutex
	httpServer *http.Server
	listenAddr string
}

// NewHTTPServer returns an HTTPServer for mcpServer.
func NewHTTPServer(mcpServer *mcpserver.MCPServer, cfg HTTPServerConfig) (*HTTPServer, error) {
	if mcpServer == nil {
		return nil, fmt.Errorf("MCP server is required")
	}
	if (cfg.TLSCertFile == "") != (cfg.TLSKeyFile == "") {
		return nil, fmt.Errorf("both TLS certificate and key files are required for HTTPS")
	}
	if cfg.Addr == "" {
		cfg.Addr = ":8080"
	}
	return &HTTPServer{mcpServer: mcpServer, cfg: cfg}, nil
}

// Handler returns the routed and instrumented handler.
func (s *HTTPServer) Handler() http.Handler {
	mux := http.NewServeMux()

	var opts []mcpserver.StreamableHTTPOption
	opts = append(opts, mcpserver.WithEndpointPath(MCPEndpointPath))
	if s.cfg.DisableStreaming {
		opts = append(opts, mcpserver.WithDisableStreaming(true))
	}
	mux.Handle(MCPEndpointPath, mcpserver.NewStreamableHTTPServer(s.mcpServer, opts...))

	if s.cfg.HealthChecker != nil {
		s.cfg.HealthChecker.RegisterHealthEndpoints(mux)
	}

	return otelhttp.NewHandler(s.metricsMiddleware(mux), "cmsledger.http")
}

// metricsMiddleware records one http_requests_total sample per request.
func (s *HTTPServer) metricsMiddleware(next http.Handler) http.Handler {
	if s.cfg.Metrics == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m := httpsnoop.CaptureMetrics(next, w, r)
		s.cfg.Metrics.RecordHTTPRequest(r.Context(), r.Method, r.URL.Path, m.Code, m.Duration)
	})
}

// Start binds the listener and serves until Shutdown.
func (s *HTTPServer) Start() error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.Addr, err)
	}

	s.mu.Lock()
	s.listenAddr = ln.Addr().String()
	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	srv := s.httpServer
	s.mu.Unlock()

	slog.Info("starting MCP HTTP server", "addr", ln.Addr().String(), "tls", s.cfg.TLSCertFile != "")
	if s.cfg.TLSCertFile != "" {
		return srv.ServeTLS(ln, s.cfg.TLSCertFile, s.cfg.TLSKeyFile)
	}
	return srv.Serve(ln)
}

// ListenAddr returns the bound address once Start has been called.
func (s *HTTPServer) ListenAddr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listenAddr
}

// Shutdown gracefully shuts down the server
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	srv := s.httpServer
	s.mu.Unlock()
	if srv != nil {
		return srv.Shutdown(ctx)
	}
	return nil
}
