package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/lifecyclelab/ecolca/internal/config"
	"github.com/lifecyclelab/ecolca/internal/dataset"
	"github.com/lifecyclelab/ecolca/internal/lca"
	"github.com/lifecyclelab/ecolca/internal/logging"
	"github.com/lifecyclelab/ecolca/internal/version"
	"github.com/lifecyclelab/ecolca/internal/web"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Setup structured logging based on config
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("configuration loaded",
		"port", cfg.Server.Port,
		"databases_dir", cfg.Storage.DatabasesDir,
		"versions_dir", cfg.Storage.VersionsDir,
		"rate_limit_enabled", cfg.Rate.Enabled,
	)

	manager, err := dataset.NewManager(dataset.ManagerOptions{
		DatabasesDir: cfg.Storage.DatabasesDir,
		PointerFile:  cfg.Storage.PointerFile,
		BackupsDir:   cfg.Storage.BackupsDir,
		Policy:       dataset.DuplicatePolicy(cfg.Calculation.DuplicatePolicy),
		StrictLoad:   cfg.Calculation.StrictLoad,
		Logger:       slog.Default(),
	})
	if err != nil {
		slog.Error("failed to create dataset manager", "error", err)
		os.Exit(1)
	}

	// Warm the dataset cache so pointer problems surface at startup
	// rather than on the first request. An empty store is not an error;
	// the first import will populate it.
	if snap, err := manager.Snapshot(context.Background()); err != nil {
		if errors.Is(err, dataset.ErrNoActiveDatabase) {
			slog.Info("no active database yet, waiting for first import")
		} else {
			slog.Warn("active database failed to load", "error", err)
		}
	} else {
		slog.Info("active database loaded",
			"source", snap.Info.Source,
			"materials", snap.Info.MaterialsCount,
			"processes", snap.Info.ProcessesCount,
		)
	}

	engine := lca.NewEngine(lca.Params{
		TreeCO2KgPerYear: cfg.Calculation.TreeCO2KgPerYear,
	})

	store, err := version.NewStore(cfg.Storage.VersionsDir, slog.Default())
	if err != nil {
		slog.Error("failed to open version store", "error", err)
		os.Exit(1)
	}

	server := web.NewServer(manager, engine, store, cfg)

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	// Start server (uses addr from config internally)
	slog.Info("server starting", "addr", cfg.Server.Addr())
	if err := server.Start(); err != nil {
		slog.Info("server stopped", "error", err)
	}
}
