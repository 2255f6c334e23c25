// ABOUTME: Root Cobra command and global flags
// ABOUTME: Loads config and builds the logger, store, metrics, and reader core shared by subcommands

package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/harper/inkreader/internal/config"
	"github.com/harper/inkreader/internal/fetch"
	"github.com/harper/inkreader/internal/logctx"
	"github.com/harper/inkreader/internal/metrics"
	"github.com/harper/inkreader/internal/reader"
	"github.com/harper/inkreader/internal/storage"
)

// annotationNoCore marks commands that only need the config file.
const annotationNoCore = "inkreader/no-core"

var (
	cfgPath      string
	dataDirFlag  string
	syncKeyFlag  string
	logLevelFlag string

	cfg        *config.Config
	logger     *slog.Logger
	store      *storage.SQLiteStore
	appMetrics *metrics.Metrics
	core       *reader.Core
)

var rootCmd = &cobra.Command{
	Use:   "inkreader",
	Short: "RSS/Atom reader with cross-device read state",
	Long: `
██╗███╗   ██╗██╗  ██╗██████╗ ███████╗ █████╗ ██████╗ ███████╗██████╗
██║████╗  ██║██║ ██╔╝██╔══██╗██╔════╝██╔══██╗██╔══██╗██╔════╝██╔══██╗
██║██╔██╗ ██║█████╔╝ ██████╔╝█████╗  ███████║██║  ██║█████╗  ██████╔╝
██║██║╚██╗██║██╔═██╗ ██╔══██╗██╔══╝  ██╔══██║██║  ██║██╔══╝  ██╔══██╗
██║██║ ╚████║██║  ██╗██║  ██║███████╗██║  ██║██████╔╝███████╗██║  ██║
╚═╝╚═╝  ╚═══╝╚═╝  ╚═╝╚═╝  ╚═╝╚══════╝╚═╝  ╚═╝╚═════╝ ╚══════╝╚═╝  ╚═╝

RSS/Atom reader for humans and AI agents.

Subscribe to feeds, page through one merged stream, and carry your read
state between devices with an 8-character sync key.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		return teardown()
	},
}

// Execute runs the root command. The store is closed even when a command
// fails, since cobra skips post-run hooks after an error.
func Execute() error {
	err := rootCmd.Execute()
	if cerr := teardown(); err == nil {
		err = cerr
	}
	return err
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "config file path (default: ~/.config/inkreader/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&dataDirFlag, "data-dir", "", "data directory (overrides config)")
	rootCmd.PersistentFlags().StringVarP(&syncKeyFlag, "key", "k", "", "sync key for read state (overrides config)")
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "", "log level: debug, info, warn, error (overrides config)")
}

func setup(cmd *cobra.Command, args []string) error {
	var err error
	cfg, err = config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if dataDirFlag != "" {
		cfg.DataDir = dataDirFlag
	}
	if syncKeyFlag != "" {
		cfg.SyncKey = syncKeyFlag
	}
	if logLevelFlag != "" {
		cfg.LogLevel = logLevelFlag
	}

	logger, err = logctx.New(cfg.LogLevel, cfg.LogFormat, cmd.ErrOrStderr())
	if err != nil {
		return fmt.Errorf("failed to configure logging: %w", err)
	}
	cmd.SetContext(logctx.Into(cmd.Context(), logger))

	if cmd.Annotations[annotationNoCore] == "true" {
		return nil
	}

	store, err = storage.NewSQLiteStore(cmd.Context(), cfg.DBPath())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	appMetrics = metrics.New()
	core, err = reader.New(store, reader.Options{
		PageSize:      cfg.ArticlesPerPage,
		RetentionDays: cfg.RetentionDays,
		FetchTimeout:  cfg.FetchTimeout.Std(),
		Concurrency:   cfg.FetchConcurrency,
		Fetcher: fetch.New(fetch.Options{
			Timeout:      cfg.FetchTimeout.Std(),
			HostInterval: cfg.HostInterval.Std(),
		}),
		Metrics: appMetrics,
		Logger:  logger,
	})
	if err != nil {
		_ = store.Close()
		store = nil
		return fmt.Errorf("failed to start reader: %w", err)
	}
	return nil
}

func teardown() error {
	if store == nil {
		return nil
	}
	err := store.Close()
	store, core = nil, nil
	if err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	return nil
}

// syncKey returns the key read-state commands operate on.
func syncKey() (string, error) {
	if cfg == nil || cfg.SyncKey == "" {
		return "", fmt.Errorf("no sync key configured: run 'inkreader key new', 'inkreader setup', or pass --key")
	}
	return cfg.SyncKey, nil
}

// optionalSyncKey returns the configured key or "" when there is none.
func optionalSyncKey() string {
	if cfg == nil {
		return ""
	}
	return cfg.SyncKey
}
