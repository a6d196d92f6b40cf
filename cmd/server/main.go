package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"assettree/internal/server/api"
	"assettree/internal/server/config"
	"assettree/internal/server/database"
	"assettree/internal/server/service"
	"assettree/internal/server/storage"
)

func main() {
	// Structured logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// Load config
	cfg := config.Load()
	slog.Info("configuration loaded",
		"port", cfg.Port,
		"default_depth", cfg.DefaultDepth,
		"refresh_interval", cfg.RefreshInterval,
		"lookup_retention", cfg.LookupRetention,
		"watch", cfg.Watch,
	)

	// Connect to database
	ctx := context.Background()
	db, err := database.New(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// Run migrations
	if err := db.RunMigrations(ctx); err != nil {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}
	slog.Info("database migrations complete")

	// Snapshot store, plus the optional filesystem watcher
	store := storage.NewMemoryStore()
	bgCtx, bgCancel := context.WithCancel(context.Background())

	var watcher *storage.Watcher
	var syncer service.Syncer
	if cfg.Watch {
		watcher, err = storage.NewWatcher(store)
		if err != nil {
			slog.Error("failed to create filesystem watcher", "error", err)
			os.Exit(1)
		}
		syncer = watcher
		watcher.Start(bgCtx)
		slog.Info("filesystem watcher started")
	}

	// Initialize repository and service
	repo := database.NewRepository(db)
	svc := service.NewLookupService(repo, store, syncer, cfg)
	if err := svc.LoadAll(ctx); err != nil {
		slog.Error("failed to load roots", "error", err)
		os.Exit(1)
	}

	// Start refresh service
	refresh := storage.NewRefreshService(repo, store, cfg.RefreshInterval, cfg.LookupRetention)
	if watcher != nil {
		refresh.OnChange = watcher.Sync
	}
	refresh.Start(bgCtx)

	// Setup HTTP router
	handler := api.NewHandler(svc, db)
	e := api.SetupRouter(handler, cfg)

	// Start server in a goroutine
	go func() {
		addr := fmt.Sprintf(":%s", cfg.Port)
		slog.Info("starting server", "addr", addr)
		if err := e.Start(addr); err != nil {
			slog.Info("server stopped", "reason", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	slog.Info("shutting down", "signal", sig)

	// Stop accepting new requests, finish in-flight with 30s timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	}

	// Stop background services
	bgCancel()
	refresh.Wait()
	if watcher != nil {
		watcher.Wait()
	}

	slog.Info("server exited cleanly")
}
