package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/matchlink/internal/config"
	"github.com/roach88/matchlink/internal/engine"
	"github.com/roach88/matchlink/internal/store"
	"github.com/roach88/matchlink/internal/transport"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Config string
}

// NewRunCommand creates the run command: a single device reconciler
// over its local database, without a peer link. Useful for embedding
// experiments and for poking at a device store with the engine's
// invariants enforced.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a standalone device reconciler",
		Long: `Start one device's reconciler loop against its configured SQLite
database. The peer link is absent, so best-effort sends are dropped and
guaranteed sends queue nowhere; local recording still works and the
store stays consistent.

Example:
  matchlink run --config device.yaml`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDevice(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Config, "config", "", "path to device config YAML (required)")
	_ = cmd.MarkFlagRequired("config")

	return cmd
}

func runDevice(opts *RunOptions, cmd *cobra.Command) error {
	cfg, err := config.Load(opts.Config)
	if err != nil {
		return WrapExitError(ExitCommandError, "load config", err)
	}
	configureLoggingLevel(cfg.LogLevel, opts.Verbose)

	st, err := store.Open(cfg.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "open database", err)
	}
	defer st.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	e := engine.New(cfg.DeviceRole(), st, transport.Nop{})

	slog.Info("device running",
		"role", cfg.DeviceRole(),
		"database", cfg.Database,
	)
	fmt.Fprintf(cmd.OutOrStdout(), "%s device running on %s (ctrl-c to stop)\n",
		cfg.Role, cfg.Database)

	err = e.Run(ctx)
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		err = nil
	}
	if err != nil {
		return WrapExitError(ExitFailure, "reconciler stopped", err)
	}
	return nil
}

// configureLoggingLevel applies the configured level; --verbose still
// wins so a debug session never needs a config edit.
func configureLoggingLevel(level string, verbose bool) {
	l := slog.LevelInfo
	switch level {
	case "debug":
		l = slog.LevelDebug
	case "warn":
		l = slog.LevelWarn
	case "error":
		l = slog.LevelError
	}
	if verbose {
		l = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: l})
	slog.SetDefault(slog.New(handler))
}
