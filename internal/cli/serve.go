package cli

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/minhvu/geofetch/internal/api"
	"github.com/minhvu/geofetch/internal/core/config"
	"github.com/minhvu/geofetch/internal/core/worker"
	"github.com/minhvu/geofetch/internal/fetch"
	redisinfra "github.com/minhvu/geofetch/internal/infra/redis"
	"github.com/minhvu/geofetch/internal/infra/storage"
	filestore "github.com/minhvu/geofetch/internal/infra/storage/file"
	"github.com/minhvu/geofetch/internal/infra/storage/memory"
	"github.com/minhvu/geofetch/internal/infra/storage/postgres"
	"github.com/minhvu/geofetch/internal/jobs/executor"
	"github.com/minhvu/geofetch/internal/jobs/manager"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the download service",
	Run:   runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) {
	_ = godotenv.Load()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}
	initLogging(cfg.Logging)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		slog.Error("Failed to open job store", "error", err)
		os.Exit(1)
	}
	defer closeStore()

	var cache *redisinfra.StatusCache
	if cfg.Redis.URL != "" {
		client, err := redisinfra.NewClient(cfg.Redis)
		if err != nil {
			slog.Error("Failed to connect to redis", "error", err)
			os.Exit(1)
		}
		defer func() { _ = client.Close() }()
		cache = redisinfra.NewStatusCache(client, time.Duration(cfg.Jobs.CacheTTL))
	}

	sources := fetch.DefaultRegistry(time.Duration(cfg.Jobs.FetchTimeout))
	exec := executor.New(cfg.Retry.Policy())

	mgr, err := manager.New(ctx, store, sources, exec, cache, cfg.Jobs.ResultsDir)
	if err != nil {
		slog.Error("Failed to initialize job manager", "error", err)
		os.Exit(1)
	}

	pruner := worker.NewPruner(store, cfg.Jobs.ResultsDir, time.Duration(cfg.Jobs.Retention))
	go pruner.Start(ctx)

	server := api.NewServer(api.NewHandler(mgr, sources), cfg.Server.Port)
	go func() {
		slog.Info("API server listening", "port", cfg.Server.Port)
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("API server failed", "error", err)
			cancel()
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		slog.Info("Received signal, shutting down...", "signal", sig)
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Stop(shutdownCtx); err != nil {
		slog.Error("Error during server shutdown", "error", err)
	}
	if err := mgr.Wait(shutdownCtx); err != nil {
		slog.Warn("Timed out waiting for running jobs", "error", err)
	}

	slog.Info("geofetch stopped gracefully")
}

// openStore selects the job store backend from config.
func openStore(ctx context.Context, cfg *config.AppConfig) (storage.JobRepository, func(), error) {
	switch cfg.Storage.Backend {
	case "postgres":
		db, err := postgres.NewDB(ctx, cfg.Database)
		if err != nil {
			return nil, nil, err
		}
		return postgres.NewJobRepo(db), func() { _ = db.Close() }, nil
	case "memory":
		return memory.NewJobRepo(), func() {}, nil
	default:
		repo, err := filestore.NewJobRepo(cfg.Storage.Dir)
		if err != nil {
			return nil, nil, err
		}
		return repo, func() {}, nil
	}
}
