package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/sitegrid/reportsnap/internal/config"
	"github.com/sitegrid/reportsnap/internal/metrics"
	"github.com/sitegrid/reportsnap/internal/rebuild"
	"github.com/sitegrid/reportsnap/internal/snapshot"
	"github.com/sitegrid/reportsnap/internal/sqlite"
)

var rootCmd = &cobra.Command{
	Use:           "reportsnap",
	Short:         "Aggregates project tracking data into report snapshot documents",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(rebuildCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(mcpCmd)
}

// app bundles the wired services every subcommand needs.
type app struct {
	cfg       config.Config
	logger    *slog.Logger
	db        *sqlite.DB
	store     *sqlite.Store
	builder   *snapshot.Builder
	checker   *snapshot.Checker
	rebuilder *rebuild.Rebuilder
}

// newApp loads config and wires the store and services. logWriter
// receives log output; stdio-mode commands pass stderr to keep stdout
// clean for the protocol.
func newApp(logWriter *os.File, m *metrics.Metrics) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("config error: %w", err)
	}

	logger := slog.New(slog.NewTextHandler(logWriter, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.Log.Level),
	}))

	if err := ensureDBDir(cfg.DB.Path); err != nil {
		return nil, fmt.Errorf("preparing database path: %w", err)
	}

	db, err := sqlite.New(cfg.DB.Path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.RunMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	store := sqlite.NewStore(db)
	builder := snapshot.NewBuilder(store, m, logger)
	checker := snapshot.NewChecker(store, builder, logger)
	rebuilder := rebuild.NewRebuilder(
		builder,
		rebuild.StoreLister{Store: store},
		cfg.Snapshot.BatchSize,
		cfg.Snapshot.BatchPause(),
		logger,
	)

	return &app{
		cfg:       cfg,
		logger:    logger,
		db:        db,
		store:     store,
		builder:   builder,
		checker:   checker,
		rebuilder: rebuilder,
	}, nil
}

func (a *app) Close() {
	if err := a.db.Close(); err != nil {
		a.logger.Error("closing database", "error", err)
	}
}

func ensureDBDir(path string) error {
	if path == ":memory:" || path == "" {
		return nil
	}
	dir := filepath.Dir(path)
	if dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
