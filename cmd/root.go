package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/transcon/cmsledger/internal/cms"
	"github.com/transcon/cmsledger/internal/gmail"
	"github.com/transcon/cmsledger/internal/ledger"
	"github.com/transcon/cmsledger/internal/logging"
	"github.com/transcon/cmsledger/internal/server"
	"github.com/transcon/cmsledger/internal/status"
)

const (
	envLedgerDSN  = "CMSLEDGER_LEDGER_DSN"
	envCMSURL     = "CMSLEDGER_CMS_URL"
	envCMSToken   = "CMSLEDGER_CMS_TOKEN"
	envCMSTimeout = "CMSLEDGER_CMS_TIMEOUT"
	envTestMode   = "CMSLEDGER_TEST_MODE"
	envTestEmail  = "CMSLEDGER_TEST_EMAIL"
	envSession    = "CMSLEDGER_SESSION_START"
)

// globalOptions holds the persistent flags shared by every command.
type globalOptions struct {
	ledgerDSN  string
	cmsURL     string
	cmsToken   string
	cmsTimeout time.Duration
	testMode   bool
	testEmail  string
	// sessionStart overrides the session marker when set (RFC 3339).
	sessionStart string
	debug        bool
	logFormat    string
}

var (
	opts globalOptions

	// processStart stands in for the session start until a session marker
	// exists.
	processStart = time.Now()

	logger = slog.Default()
)

// rootCmd represents the base command for the cmsledger application
var rootCmd = &cobra.Command{
	Use:   "cmsledger",
	Short: "Tracks sent case emails until a CMS note confirms each one",
	Long: `cmsledger records every case email that was sent, adds a confirmation note
to the case in the CMS, and reports which emails still need a note.

Typical session:
  cmsledger session start   start counting "sent this session" from now
  cmsledger send ...        send a case email and record it as pending
  cmsledger pending         list emails that still need a CMS note
  cmsledger reconcile       add CMS notes for every pending email
  cmsledger stats           session and lifetime statistics

It can also run as an MCP (Model Context Protocol) server for AI assistants.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := loadEnvOptions(cmd, &opts); err != nil {
			return err
		}
		logger = logging.New(os.Stderr, opts.debug, opts.logFormat)
		slog.SetDefault(logger)
		return nil
	},
}

// version will be set by main
var version = "dev"

// SetVersion sets the version for the root command
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

// Execute is the main entry point for the CLI application
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "cmsledger version %s\n" .Version}}`)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	bindGlobalFlags(rootCmd, &opts)

	rootCmd.AddCommand(newPendingCmd())
	rootCmd.AddCommand(newReconcileCmd())
	rootCmd.AddCommand(newStatsCmd())
	rootCmd.AddCommand(newSessionCmd())
	rootCmd.AddCommand(newRecordCmd())
	rootCmd.AddCommand(newSendCmd())
	rootCmd.AddCommand(newAuthCmd())
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newGenerateDocsCmd())
	rootCmd.AddCommand(newVersionCmd())
}

// bindGlobalFlags registers the persistent flags on cmd.
func bindGlobalFlags(cmd *cobra.Command, o *globalOptions) {
	flags := cmd.PersistentFlags()
	flags.StringVar(&o.ledgerDSN, "ledger", defaultLedgerDSN(), "Ledger location: a directory, file://path, memory:// or postgres://... Can also use "+envLedgerDSN+" env var.")
	flags.StringVar(&o.cmsURL, "cms-url", "", "Base URL of the CMS notes API. Can also use "+envCMSURL+" env var.")
	flags.StringVar(&o.cmsToken, "cms-token", "", "Bearer token for the CMS notes API. Can also use "+envCMSToken+" env var.")
	flags.DurationVar(&o.cmsTimeout, "cms-timeout", cms.DefaultTimeout, "Timeout for a single CMS call. Can also use "+envCMSTimeout+" env var.")
	flags.BoolVar(&o.testMode, "test-mode", false, "Redirect sent emails to the test address and mark notes as test notes. Can also use "+envTestMode+" env var.")
	flags.StringVar(&o.testEmail, "test-email", "", "Test inbox used in test mode. Can also use "+envTestEmail+" env var.")
	flags.StringVar(&o.sessionStart, "session-start", "", "Session start time (RFC 3339) used for session statistics, instead of the session marker. Can also use "+envSession+" env var.")
	flags.BoolVar(&o.debug, "debug", false, "Enable debug logging")
	flags.StringVar(&o.logFormat, "log-format", "text", "Log format: text or json")
}

func defaultLedgerDSN() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return filepath.Join(".", "cmsledger-data")
	}
	return "file://" + filepath.ToSlash(filepath.Join(dir, "cmsledger", "ledger"))
}

// loadEnvOptions fills options from the environment. An env var only applies
// if the matching flag was not explicitly set.
func loadEnvOptions(cmd *cobra.Command, o *globalOptions) error {
	changed := func(name string) bool {
		f := cmd.Flag(name)
		return f != nil && f.Changed
	}

	if !changed("ledger") {
		if v := os.Getenv(envLedgerDSN); v != "" {
			o.ledgerDSN = v
		}
	}
	if !changed("cms-url") {
		if v := os.Getenv(envCMSURL); v != "" {
			o.cmsURL = v
		}
	}
	if !changed("cms-token") {
		if v := os.Getenv(envCMSToken); v != "" {
			o.cmsToken = v
		}
	}
	if !changed("cms-timeout") {
		if v := os.Getenv(envCMSTimeout); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil || d <= 0 {
				return fmt.Errorf("invalid %s value %q (expected a duration like 30s)", envCMSTimeout, v)
			}
			o.cmsTimeout = d
		}
	}
	if !changed("test-mode") {
		if v := os.Getenv(envTestMode); v != "" {
			on, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("invalid %s value %q (expected true/false)", envTestMode, v)
			}
			o.testMode = on
		}
	}
	if !changed("test-email") {
		if v := os.Getenv(envTestEmail); v != "" {
			o.testEmail = v
		}
	}

	if !changed("session-start") {
		if v := os.Getenv(envSession); v != "" {
			o.sessionStart = v
		}
	}
	if o.sessionStart != "" {
		if _, err := time.Parse(time.RFC3339, o.sessionStart); err != nil {
			return fmt.Errorf("invalid session start %q (expected RFC 3339, e.g. 2026-03-02T09:00:00Z)", o.sessionStart)
		}
	}

	if o.testMode && o.testEmail == "" {
		return fmt.Errorf("test mode needs a test inbox: set --test-email or %s", envTestEmail)
	}
	return nil
}

// contextOptions selects the optional collaborators of a ServerContext.
type contextOptions struct {
	requireCMS bool
	// beginSession starts a session when no marker exists yet.
	beginSession bool
	mailer       gmail.MessageSender
}

// sessionFilePath returns the session marker location for the ledger: next
// to the log files for a file store, in the user config dir otherwise.
func sessionFilePath() string {
	if dir, ok := ledger.FileDir(opts.ledgerDSN); ok {
		return filepath.Join(dir, status.SessionFile)
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	return filepath.Join(dir, "cmsledger", status.SessionFile)
}

// resolveSessionStart returns the start of the operator session. The
// --session-start flag wins over the marker. Without either, begin writes a
// marker starting now, otherwise the process start is used.
func resolveSessionStart(begin bool) (time.Time, error) {
	if opts.sessionStart != "" {
		return time.Parse(time.RFC3339, opts.sessionStart)
	}
	path := sessionFilePath()
	start, err := status.LoadSessionStart(path)
	switch {
	case err == nil:
		return start, nil
	case !errors.Is(err, status.ErrNoSession):
		return time.Time{}, err
	case !begin:
		return processStart, nil
	}
	start = time.Now().UTC()
	if err := status.SaveSessionStart(path, start); err != nil {
		return time.Time{}, err
	}
	logger.Info("started new session", slog.Time("session_start", start))
	return start, nil
}

// newServerContext opens the ledger and wires the services the command needs.
// The returned context owns the store.
func newServerContext(ctx context.Context, co contextOptions, extra func(*server.Config)) (*server.ServerContext, error) {
	sessionStart, err := resolveSessionStart(co.beginSession)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve session start: %w", err)
	}

	store, err := ledger.Open(ctx, opts.ledgerDSN, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger: %w", err)
	}

	cfg := server.Config{
		Store:  store,
		Mailer: co.mailer,
		Session: status.Session{
			Start:     sessionStart,
			TestMode:  opts.testMode,
			TestEmail: opts.testEmail,
		},
		CallTimeout: opts.cmsTimeout,
		Logger:      logger,
	}

	client, err := cms.NewClient(cms.Config{
		BaseURL: opts.cmsURL,
		Token:   opts.cmsToken,
		Timeout: opts.cmsTimeout,
		Logger:  logging.ForComponent(logger, "cms"),
	})
	switch {
	case err == nil:
		cfg.CMS = client
	case errors.Is(err, cms.ErrNotConfigured) && !co.requireCMS:
		logger.Debug("CMS client not configured")
	default:
		_ = store.Close()
		return nil, fmt.Errorf("failed to configure CMS client (set --cms-url or %s): %w", envCMSURL, err)
	}

	if extra != nil {
		extra(&cfg)
	}

	sc, err := server.NewServerContext(ctx, cfg)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	return sc, nil
}

// closeServerContext shuts sc down and logs a failure.
func closeServerContext(sc *server.ServerContext) {
	if err := sc.Shutdown(); err != nil {
		logger.Warn("failed to close ledger", logging.Err(err))
	}
}
