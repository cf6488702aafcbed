package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/stevdb/stevdb/internal/config"
	"github.com/stevdb/stevdb/internal/ingest"
	"github.com/stevdb/stevdb/internal/mesa"
	"github.com/stevdb/stevdb/internal/store"
)

// LogFileName is the base name of the log file.
const LogFileName = "stevdb.log"

// NewWatchCommand creates the watch command. It does what the root command
// does without a subcommand.
func NewWatchCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Poll the runs directory until interrupted",
		Long: `Poll the runs directory and store every finished run.

Between two polls stevdb sleeps waiting_time_in_sec seconds. Ctrl-C stops
the watch at once; a run being stored at that moment is rolled back and
picked up again on the next start.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd, rootOpts)
		},
	}
}

// NewOnceCommand creates the once command.
func NewOnceCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "once",
		Short: "Poll the runs directory a single time",
		Long: `Process every run not yet handled, print a summary and exit.

Example:
  stevdb -C grid.yaml once
  stevdb -C grid.yaml once --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOnce(cmd, rootOpts)
		},
	}
}

func runWatch(cmd *cobra.Command, opts *RootOptions) error {
	cfg, teardown, err := setup(cmd, opts)
	if cfg == nil {
		return err
	}
	defer teardown()

	ctx, cancel := signalContext(cmd)
	defer cancel()

	m, st, err := openManager(ctx, cfg, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer closeStore(st)

	if err := m.Watch(ctx); err != nil {
		return WrapExitError(ExitFailure, "watch stopped", err)
	}
	slog.Info("manager stopped")
	return nil
}

func runOnce(cmd *cobra.Command, opts *RootOptions) error {
	cfg, teardown, err := setup(cmd, opts)
	if cfg == nil {
		return err
	}
	defer teardown()

	ctx, cancel := signalContext(cmd)
	defer cancel()

	m, st, err := openManager(ctx, cfg, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer closeStore(st)

	report, err := m.Poll(ctx)
	if err != nil {
		if ctx.Err() != nil {
			slog.Info("poll interrupted")
			return nil
		}
		return WrapExitError(ExitFailure, "poll failed", err)
	}

	formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
	return formatter.Report(report)
}

// setup runs the print-and-exit flags, loads the configuration and
// installs logging. A nil config means the command is done and err is its
// result; otherwise teardown must be called when the command returns.
func setup(cmd *cobra.Command, opts *RootOptions) (*config.Config, func(), error) {
	if done, err := preflight(cmd, opts); done {
		return nil, nil, err
	}

	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, nil, err
	}

	restore, err := setupLogging(cmd.ErrOrStderr(), opts.logFile(), opts.Debug)
	if err != nil {
		return nil, nil, WrapExitError(ExitCommandError, "failed to open log file", err)
	}

	cwd, _ := os.Getwd()
	slog.Info("initialize database manager for stellar evolution models",
		"cwd", cwd,
		"go", runtime.Version(),
	)
	slog.Debug("command line arguments",
		"config_file", opts.ConfigFile,
		"debug", opts.Debug,
		"format", opts.Format,
	)
	return cfg, restore, nil
}

func loadConfig(opts *RootOptions) (*config.Config, error) {
	cfg, err := config.Load(opts.ConfigFile)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load configuration", err)
	}
	return cfg, nil
}

// DefaultLogFile returns the log file location: stevdb.log in the user
// cache directory, or in the temporary directory when there is none.
func DefaultLogFile() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "stevdb", LogFileName)
}

func (o *RootOptions) logFile() string {
	if o.LogFile != "" {
		return o.LogFile
	}
	return DefaultLogFile()
}

// setupLogging sends logs to w and to the file at path. The returned
// function restores the previous default logger and closes the file.
func setupLogging(w io.Writer, path string, debug bool) (func(), error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}

	logLevel := slog.LevelInfo
	if debug {
		logLevel = slog.LevelDebug
	}
	handler := slog.NewTextHandler(io.MultiWriter(w, f), &slog.HandlerOptions{
		Level: logLevel,
	})

	prev := slog.Default()
	slog.SetDefault(slog.New(handler))
	return func() {
		slog.SetDefault(prev)
		f.Close()
	}, nil
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
// The command's context is used as parent when set (for testing).
func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		defer signal.Stop(sigChan)
		select {
		case sig := <-sigChan:
			slog.Info("received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}

// openManager loads what a session needs from the configuration and
// starts it. The caller closes the returned store.
func openManager(ctx context.Context, cfg *config.Config, progress io.Writer) (*ingest.Manager, *store.Store, error) {
	mesaDir, err := cfg.MESADir()
	if err != nil {
		return nil, nil, WrapExitError(ExitCommandError, "MESA installation not found", err)
	}
	codes, err := mesa.LoadNativeCodes(mesaDir)
	if err != nil && !errors.Is(err, mesa.ErrNotFound) {
		return nil, nil, WrapExitError(ExitCommandError, "failed to load termination codes", err)
	}
	classifier := mesa.NewClassifier(codes)
	if err != nil {
		slog.Warn("MESA termination codes not found, every code will be custom or unknown", "error", err)
	} else {
		slog.Info("termination codes loaded", "mesa_dir", mesaDir, "codes", classifier.NativeCount())
	}

	columns, err := config.LoadHistoryColumns(cfg.Stevdb.HistoryColumnsList)
	if err != nil {
		return nil, nil, WrapExitError(ExitCommandError, "failed to load history columns", err)
	}

	slog.Info("opening database", "path", cfg.Stevdb.DatabaseName)
	st, err := store.Open(cfg.Stevdb.DatabaseName)
	if err != nil {
		return nil, nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}

	m, err := ingest.New(ctx, cfg, columns, st, classifier, ingest.WithProgress(progress))
	if err != nil {
		closeStore(st)
		return nil, nil, WrapExitError(ExitCommandError, "failed to start session", err)
	}
	return m, st, nil
}

func closeStore(st *store.Store) {
	if err := st.Close(); err != nil {
		slog.Error("error closing database", "error", err)
	}
}
