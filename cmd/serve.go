package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/transcon/cmsledger/internal/instrumentation"
	"github.com/transcon/cmsledger/internal/ledger"
	"github.com/transcon/cmsledger/internal/logging"
	"github.com/transcon/cmsledger/internal/server"
	"github.com/transcon/cmsledger/internal/tools/ledger_tools"
)

const (
	transportStdio          = "stdio"
	transportStreamableHTTP = "streamable-http"

	metricsStartupTimeout = 5 * time.Second
	httpShutdownTimeout   = 30 * time.Second
)

// MetricsConfig holds configuration for the metrics server
type MetricsConfig struct {
	// Enabled determines whether to start the metrics server (default: true)
	Enabled bool

	// Addr is the address for the metrics server (e.g., ":9090")
	Addr string
}

// serveOptions holds the serve flags.
type serveOptions struct {
	transport             string
	httpAddr              string
	yolo                  bool
	disableStreaming      bool
	tlsCertFile           string
	tlsKeyFile            string
	googleTokenFile       string
	autoReconcileInterval time.Duration
	metrics               MetricsConfig
}

func newServeCmd() *cobra.Command {
	var so serveOptions

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server",
		Long: `Start the Model Context Protocol (MCP) server that exposes the CMS note
ledger to AI assistants.

Supports multiple transport types:
  - stdio: Standard input/output (default)
  - streamable-http: Streamable HTTP transport with health endpoints

Safety Mode:
  By default, the server operates in read-only mode (cms_check_pending,
  cms_bulk_stats). Use --yolo to enable cms_record_sent and
  cms_add_session_notes, plus cms_send_email when a Google token is cached.

Scheduled reconciliation:
  --auto-reconcile-interval 15m adds CMS notes for pending emails every
  15 minutes while the server runs. Off by default.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			loadServeEnvVars(cmd, &so)
			return runServe(cmd.Context(), so)
		},
	}

	cmd.Flags().StringVar(&so.transport, "transport", transportStdio, "Transport type: stdio or streamable-http")
	cmd.Flags().StringVar(&so.httpAddr, "http-addr", ":8080", "HTTP server address (for streamable-http transport)")
	cmd.Flags().BoolVar(&so.yolo, "yolo", false, "Enable write operations (recording, CMS notes, sending). Default is read-only mode.")
	cmd.Flags().BoolVar(&so.disableStreaming, "disable-streaming", false, "Disable streaming for HTTP transport (for compatibility with certain clients)")
	cmd.Flags().StringVar(&so.tlsCertFile, "tls-cert-file", "", "Path to TLS certificate file (PEM format). If provided with --tls-key-file, enables HTTPS. Can also use TLS_CERT_FILE env var.")
	cmd.Flags().StringVar(&so.tlsKeyFile, "tls-key-file", "", "Path to TLS private key file (PEM format). If provided with --tls-cert-file, enables HTTPS. Can also use TLS_KEY_FILE env var.")
	cmd.Flags().DurationVar(&so.autoReconcileInterval, "auto-reconcile-interval", 0, "Add CMS notes for pending emails on this interval (0 disables). Can also use CMSLEDGER_AUTO_RECONCILE_INTERVAL env var.")
	cmd.Flags().BoolVar(&so.metrics.Enabled, "metrics-enabled", true, "Enable the metrics server on a dedicated port. Can also use METRICS_ENABLED env var.")
	cmd.Flags().StringVar(&so.metrics.Addr, "metrics-addr", ":9090", "Metrics server address. Can also use METRICS_ADDR env var.")
	addGoogleFlags(cmd, &so.googleTokenFile)

	return cmd
}

// loadServeEnvVars applies env vars for serve flags that were not explicitly set.
func loadServeEnvVars(cmd *cobra.Command, so *serveOptions) {
	if !cmd.Flags().Changed("tls-cert-file") {
		if v := os.Getenv("TLS_CERT_FILE"); v != "" {
			so.tlsCertFile = v
		}
	}
	if !cmd.Flags().Changed("tls-key-file") {
		if v := os.Getenv("TLS_KEY_FILE"); v != "" {
			so.tlsKeyFile = v
		}
	}
	if !cmd.Flags().Changed("metrics-enabled") {
		switch os.Getenv("METRICS_ENABLED") {
		case "true":
			so.metrics.Enabled = true
		case "false":
			so.metrics.Enabled = false
		}
	}
	if !cmd.Flags().Changed("metrics-addr") {
		if v := os.Getenv("METRICS_ADDR"); v != "" {
			so.metrics.Addr = v
		}
	}
	if !cmd.Flags().Changed("auto-reconcile-interval") {
		if v := os.Getenv("CMSLEDGER_AUTO_RECONCILE_INTERVAL"); v != "" {
			if d, err := time.ParseDuration(v); err == nil && d >= 0 {
				so.autoReconcileInterval = d
			} else {
				logger.Warn("ignoring invalid CMSLEDGER_AUTO_RECONCILE_INTERVAL", "value", v)
			}
		}
	}
}

func runServe(parent context.Context, so serveOptions) error {
	if parent == nil {
		parent = context.Background()
	}
	switch so.transport {
	case transportStdio, transportStreamableHTTP:
	default:
		return fmt.Errorf("unsupported transport type: %s (supported: stdio, streamable-http)", so.transport)
	}

	// Setup graceful shutdown
	shutdownCtx, cancel := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	instrConfig := instrumentation.DefaultConfig()
	instrConfig.ServiceVersion = version
	instrConfig.LedgerBackend = ledger.Backend(opts.ledgerDSN)
	if err := instrConfig.Validate(); err != nil {
		return fmt.Errorf("invalid instrumentation config: %w", err)
	}

	provider, err := instrumentation.NewProvider(shutdownCtx, instrConfig)
	if err != nil {
		return fmt.Errorf("failed to create instrumentation provider: %w", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := provider.Shutdown(ctx); err != nil {
			logger.Warn("error during instrumentation shutdown", logging.Err(err))
		}
	}()

	// The metrics server only runs beside the HTTP transport
	var metricsServer *server.MetricsServer
	if so.transport != transportStdio && so.metrics.Enabled && provider.UsesPrometheus() {
		metricsServer, err = startMetricsServer(so.metrics, provider)
		if err != nil {
			return err
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := metricsServer.Shutdown(ctx); err != nil {
				logger.Warn("error during metrics server shutdown", logging.Err(err))
			}
		}()
	}

	var metrics *instrumentation.Metrics
	var auditLogger *instrumentation.AuditLogger
	if provider.Enabled() {
		metrics = provider.Metrics()
		auditLogger = instrumentation.NewAuditLogger(logger, instrConfig.AuditLogging)
	}

	co := contextOptions{beginSession: true}
	if !so.yolo {
		logger.Info("starting server in READ-ONLY mode (use --yolo to enable write operations)")
	} else {
		logger.Info("starting server with WRITE operations enabled (--yolo flag is set)")
		client, err := newGmailClient(shutdownCtx, googleConfig(so.googleTokenFile), metrics)
		if err != nil {
			logger.Info("cms_send_email disabled", logging.Err(err))
		} else {
			co.mailer = client
		}
	}

	serverContext, err := newServerContext(shutdownCtx, co, func(cfg *server.Config) {
		cfg.Metrics = metrics
		cfg.AuditLogger = auditLogger
	})
	if err != nil {
		return fmt.Errorf("failed to create server context: %w", err)
	}
	defer closeServerContext(serverContext)

	if so.autoReconcileInterval > 0 {
		if serverContext.Reconciler() == nil {
			return fmt.Errorf("--auto-reconcile-interval needs a CMS: set --cms-url or %s", envCMSURL)
		}
		auto := server.NewAutoReconciler(serverContext.Reconciler(), so.autoReconcileInterval, logger)
		auto.Start(shutdownCtx)
		defer auto.Stop()
	}

	mcpSrv := newMCPServer()
	if err := ledger_tools.RegisterLedgerTools(mcpSrv, serverContext, !so.yolo); err != nil {
		return fmt.Errorf("failed to register ledger tools: %w", err)
	}

	switch so.transport {
	case transportStdio:
		return runStdioServer(mcpSrv)
	default:
		return runStreamableHTTPServer(shutdownCtx, mcpSrv, serverContext, so, metrics, metricsServer)
	}
}

func newMCPServer() *mcpserver.MCPServer {
	return mcpserver.NewMCPServer("cmsledger", version,
		mcpserver.WithToolCapabilities(true),
	)
}

func startMetricsServer(cfg MetricsConfig, provider *instrumentation.Provider) (*server.MetricsServer, error) {
	metricsServer, err := server.NewMetricsServer(server.MetricsServerConfig{
		Addr:                    cfg.Addr,
		Enabled:                 true,
		InstrumentationProvider: provider,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create metrics server: %w", err)
	}

	// Use ready channel to confirm metrics server started successfully
	metricsReady := make(chan struct{})
	metricsErr := make(chan error, 1)
	go func() {
		if err := metricsServer.StartWithReadySignal(metricsReady); err != nil && !errors.Is(err, http.ErrServerClosed) {
			metricsErr <- err
		}
		close(metricsErr)
	}()

	select {
	case <-metricsReady:
		logger.Info("metrics server started", "addr", metricsServer.ListenAddr())
		return metricsServer, nil
	case err := <-metricsErr:
		return nil, fmt.Errorf("metrics server failed to start: %w", err)
	case <-time.After(metricsStartupTimeout):
		return nil, fmt.Errorf("metrics server startup timed out")
	}
}

func runStdioServer(mcpSrv *mcpserver.MCPServer) error {
	serverDone := make(chan error, 1)
	go func() {
		defer close(serverDone)
		if err := mcpserver.ServeStdio(mcpSrv); err != nil {
			serverDone <- err
		}
	}()

	err := <-serverDone
	if err != nil {
		return fmt.Errorf("server stopped with error: %w", err)
	}
	return nil
}

func runStreamableHTTPServer(ctx context.Context, mcpSrv *mcpserver.MCPServer, sc *server.ServerContext, so serveOptions, metrics *instrumentation.Metrics, metricsServer *server.MetricsServer) error {
	healthChecker := server.NewHealthChecker(sc)

	httpServer, err := server.NewHTTPServer(mcpSrv, server.HTTPServerConfig{
		Addr:             so.httpAddr,
		DisableStreaming: so.disableStreaming,
		HealthChecker:    healthChecker,
		Metrics:          metrics,
		TLSCertFile:      so.tlsCertFile,
		TLSKeyFile:       so.tlsKeyFile,
	})
	if err != nil {
		return fmt.Errorf("failed to create HTTP server: %w", err)
	}

	fmt.Fprintf(os.Stderr, "Streamable HTTP server starting on %s\n", so.httpAddr)
	fmt.Fprintf(os.Stderr, "  MCP endpoint: %s\n", server.MCPEndpointPath)
	fmt.Fprintf(os.Stderr, "  Health endpoints: /healthz, /readyz, /healthz/detailed\n")
	if metricsServer != nil {
		fmt.Fprintf(os.Stderr, "  Metrics endpoint: %s/metrics\n", metricsServer.ListenAddr())
	}

	serverDone := make(chan error, 1)
	go func() {
		defer close(serverDone)
		if err := httpServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverDone <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received, stopping HTTP server")
		healthChecker.SetReady(false)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), httpShutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("error shutting down HTTP server: %w", err)
		}
	case err := <-serverDone:
		if err != nil {
			return fmt.Errorf("HTTP server stopped with error: %w", err)
		}
	}

	logger.Info("HTTP server gracefully stopped")
	return nil
}
