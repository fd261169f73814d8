package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mathwake/wake-engine/internal/alarm"
	"github.com/mathwake/wake-engine/internal/api"
	"github.com/mathwake/wake-engine/internal/avatar"
	"github.com/mathwake/wake-engine/internal/config"
	"github.com/mathwake/wake-engine/internal/presets"
	"github.com/mathwake/wake-engine/internal/storage"
	"github.com/mathwake/wake-engine/internal/trigger"
)

func main() {
	// Setup structured logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	slog.Info("starting wake-engine",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
	)

	// Create context for initialization
	initCtx, initCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer initCancel()

	// Run database migrations
	slog.Info("running database migrations", "dir", cfg.Database.MigrationsDir)
	if err := storage.Migrate(initCtx, cfg.Database.DSN, cfg.Database.MigrationsDir); err != nil {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	// Initialize database repository
	repo, err := storage.NewPostgresRepository(initCtx, storage.PostgresConfig{
		DSN:          cfg.Database.DSN,
		MaxOpenConns: int32(cfg.Database.MaxOpenConns),
		MaxIdleConns: int32(cfg.Database.MaxIdleConns),
	})
	if err != nil {
		slog.Error("failed to create database repository", "error", err)
		os.Exit(1)
	}
	slog.Info("database connected successfully")

	// Load difficulty presets
	presetLoader := presets.NewLoader()
	if err := presetLoader.LoadFromDir(cfg.Presets.Dir); err != nil {
		slog.Warn("failed to load presets from dir", "dir", cfg.Presets.Dir, "error", err)
	}

	// Initialize avatar pipeline. The avatar is decorative: if Redis is not
	// reachable, fall back to in-memory caching rather than refusing to start.
	var avatarStore avatar.Store
	cache, err := avatar.NewCache(cfg.Redis.Address, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		slog.Warn("redis unavailable, using in-memory avatar cache", "error", err)
		avatarStore = avatar.NewMemoryStore()
	} else {
		defer cache.Close()
		avatarStore = cache
	}
	generator := avatar.NewHTTPGenerator(cfg.Avatar.Endpoint, cfg.Avatar.Timeout)
	avatars := avatar.NewService(generator, avatarStore, cfg.Avatar.Prompt)

	// Initialize alarm controller
	controller := alarm.NewController(alarm.Config{
		FeedbackClearDelay: cfg.Quiz.FeedbackClearDelay,
		DismissDelay:       cfg.Quiz.DismissDelay,
	}, alarm.SystemClock{}, repo, presetLoader)

	if err := controller.LoadSessions(initCtx); err != nil {
		slog.Error("failed to load alarm sessions", "error", err)
		os.Exit(1)
	}

	// Initialize trigger watcher
	watcher := trigger.NewWatcher(controller, cfg.Trigger.Interval)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Start trigger watcher
	watcher.Start(ctx)

	// Setup HTTP server
	server := api.NewServer(cfg.Server, controller, presetLoader, avatars, repo)
	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      server.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		slog.Info("HTTP server starting", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down gracefully...")

	// Cancel context to stop background workers
	cancel()

	// Shutdown HTTP server with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	// Close database connections
	if err := repo.Close(); err != nil {
		slog.Error("repository close error", "error", err)
	}

	slog.Info("wake-engine stopped")
}
