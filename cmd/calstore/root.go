package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/cyp0633/caldorafs/internal/config"
	"github.com/cyp0633/caldorafs/storage"
	"github.com/cyp0633/caldorafs/storage/filesystem"
	"github.com/spf13/cobra"
)

// app carries what every subcommand needs once the root command has run.
type app struct {
	configPath string
	root       string
	logLevel   string

	open   storeOpener
	cfg    *config.Config
	logger *slog.Logger
	store  storage.Storage
}

// storeOpener opens the store the subcommands work on.
type storeOpener func(cfg *config.Config, logger *slog.Logger) (storage.Storage, error)

func newRootCmd() *cobra.Command {
	return newRootCmdWith(openFilesystemStore)
}

func newRootCmdWith(open storeOpener) *cobra.Command {
	a := &app{open: open}

	rootCmd := &cobra.Command{
		Use:   "calstore",
		Short: "Manage a filesystem calendar store",
		Long: `calstore works on a directory of calendars, one directory per calendar
holding a _calendar.yaml descriptor and one <uid>.ics file per object.

Configuration is read from --config (created with defaults on first run);
--root and --log-level override the file.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}

	rootCmd.PersistentFlags().StringVar(&a.configPath, "config", defaultConfigPath(), "Path of the YAML configuration file")
	rootCmd.PersistentFlags().StringVar(&a.root, "root", "", "Calendar store root directory (overrides the config file)")
	rootCmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "Log level: debug, info, warn or error")

	rootCmd.AddCommand(newCalendarsCmd(a), newObjectsCmd(a), newQueryCmd(a))
	return rootCmd
}

func defaultConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "calstore.yaml"
	}
	return filepath.Join(dir, "calstore", "config.yaml")
}

// setup loads the configuration, builds the logger and opens the store.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		if cfg == nil {
			return fmt.Errorf("load config: %w", err)
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: cannot write default config: %v\n", err)
	}
	if a.root != "" {
		cfg.Root = a.root
	}
	if a.logLevel != "" {
		cfg.LogLevel = a.logLevel
	}
	cfg.Normalize()
	a.cfg = cfg

	a.logger = newLogger(cmd.ErrOrStderr(), cfg)

	store, err := a.open(cfg, a.logger)
	if err != nil {
		return err
	}
	a.store = store
	return nil
}

func openFilesystemStore(cfg *config.Config, logger *slog.Logger) (storage.Storage, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	store, err := filesystem.New(cfg.Root,
		filesystem.WithLogger(logger),
		filesystem.WithHrefPrefix(cfg.HrefPrefix),
		filesystem.WithDefaultLocation(loc),
	)
	if err != nil {
		return nil, err
	}
	return store, nil
}

func newLogger(w io.Writer, cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.Level()}
	if cfg.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// report prints a recoverable per-entry error and keeps going. Anything
// else aborts the command.
func report(cmd *cobra.Command, err error) error {
	if storage.IsRecoverable(err) {
		fmt.Fprintf(cmd.ErrOrStderr(), "skipped: %v\n", err)
		return nil
	}
	return err
}
