// chatkeep - chat session storage server
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ashureev/chatkeep/internal/config"
	"github.com/ashureev/chatkeep/internal/conversation"
	"github.com/ashureev/chatkeep/internal/store"
	"github.com/joho/godotenv"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("Starting server", "port", cfg.Port, "dev", cfg.IsDevelopment(), "db_driver", cfg.DBDriver)

	// A store that cannot be reached at startup is logged, not fatal:
	// requests are still served and storage operations fail on their own path.
	connectCtx, cancelConnect := context.WithTimeout(context.Background(), 10*time.Second)
	repo, err := store.Open(connectCtx, cfg)
	cancelConnect()
	if err != nil {
		slog.Error("Error connecting to database", "error", err)
	} else {
		slog.Info("Database connected")
	}
	defer func() {
		if closeErr := repo.Close(); closeErr != nil {
			slog.Error("Failed to close repository", "error", closeErr)
		}
	}()

	svc := conversation.NewService(repo, repo, logger)

	handler, limiter := newRouter(cfg, repo, svc)
	if limiter != nil {
		defer limiter.Close()
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	conversation.StartReconcileWorker(ctx, svc, cfg.ReconcileInterval)
	if cfg.ReconcileInterval > 0 {
		slog.Info("Reconcile worker started", "interval", cfg.ReconcileInterval)
	}

	go func() {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal.
	<-ctx.Done()
	stop()

	slog.Info("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("Server stopped successfully")
}
