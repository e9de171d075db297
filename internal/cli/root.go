// Package cli wires the cobra command surface for the synchronizer.
package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/chrisskurda/csv-to-dg/internal/config"
	"github.com/chrisskurda/csv-to-dg/internal/roster"
)

var (
	flagConfig   string
	flagLogLevel string
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "csvdg",
		Short: "Reconcile a distribution group against a personnel CSV export",
		Long: `csvdg reads a personnel CSV export, reduces it to the configured
columns, and reconciles a directory-service distribution group so its
membership matches the roster. Run history is kept for rollback.

Invoked without a subcommand it performs a normal sync.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSync(cmd)
		},
	}

	cmd.PersistentFlags().StringVar(&flagConfig, "config", "csvdg.yaml", "Path to the configuration file")
	cmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "Override the configured log level")

	cmd.AddCommand(newSyncCmd())
	cmd.AddCommand(newHistoryCmd())
	cmd.AddCommand(newRollbackCmd())
	cmd.AddCommand(newUndoCmd())

	return cmd
}

// Execute runs the CLI and returns the process exit code.
func Execute() int {
	if err := config.LoadDotEnv(".env"); err != nil {
		fmt.Fprintf(os.Stderr, "warning: %v\n", err)
	}
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	return 0
}

// loadConfig loads and validates the configuration, applying the
// --log-level override.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return nil, err
	}
	if flagLogLevel != "" {
		cfg.LogLevel = flagLogLevel
	}
	return cfg, nil
}

// newLogger builds the run logger: text handler to stderr plus a dated
// log file when a log directory is configured. Returns the log file
// path for notification attachments ("" when file logging is off).
func newLogger(cfg *config.Config, now time.Time) (*slog.Logger, string, error) {
	out := io.Writer(os.Stderr)
	logPath := ""

	if cfg.Roster.LogDir != "" {
		if err := os.MkdirAll(cfg.Roster.LogDir, 0o750); err != nil {
			return nil, "", fmt.Errorf("create log dir: %w", err)
		}
		logPath = filepath.Join(cfg.Roster.LogDir,
			fmt.Sprintf("sync-%s.log", now.Format(roster.DateLayout)))
		f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o640) //nolint:gosec
		if err != nil {
			return nil, "", fmt.Errorf("open log file: %w", err)
		}
		out = io.MultiWriter(os.Stderr, f)
	}

	handler := slog.NewTextHandler(out, &slog.HandlerOptions{Level: cfg.SlogLevel()})
	return slog.New(handler), logPath, nil
}
