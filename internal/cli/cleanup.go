package cli

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/minhvu/geofetch/internal/core/config"
	"github.com/minhvu/geofetch/internal/core/worker"
)

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Delete expired jobs and their artifacts",
	Run:   runCleanup,
}

func init() {
	rootCmd.AddCommand(cleanupCmd)
}

func runCleanup(cmd *cobra.Command, args []string) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}
	initLogging(cfg.Logging)

	if cfg.Jobs.Retention == 0 {
		slog.Info("Retention is disabled, nothing to clean up")
		return
	}

	ctx := context.Background()
	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		slog.Error("Failed to open job store", "error", err)
		os.Exit(1)
	}
	defer closeStore()

	pruner := worker.NewPruner(store, cfg.Jobs.ResultsDir, time.Duration(cfg.Jobs.Retention))
	removed, err := pruner.RunOnce(ctx)
	if err != nil {
		slog.Error("Cleanup failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Cleanup finished", "removed", removed)
}
