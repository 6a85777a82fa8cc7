// Package app provides application orchestration and component lifecycle
// management for the ReplyDesk dashboard service.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/jmoiron/sqlx"
	"golang.org/x/sync/errgroup"

	"github.com/lcastro/replydesk/internal/config"
	"github.com/lcastro/replydesk/internal/database"
	"github.com/lcastro/replydesk/internal/server"
)

// App represents the application and manages its components' lifecycle.
type App struct {
	logger    *slog.Logger
	cfg       *config.Config
	db        *sqlx.DB
	store     database.Store
	server    *server.Server
	scheduler *Scheduler
}

// NewApp creates a new application instance with all required dependencies.
func NewApp(
	logger *slog.Logger,
	cfg *config.Config,
	db *sqlx.DB,
	store database.Store,
	srv *server.Server,
	scheduler *Scheduler,
) *App {
	return &App{
		logger:    logger.With("component", "app_orchestrator"),
		cfg:       cfg,
		db:        db,
		store:     store,
		server:    srv,
		scheduler: scheduler,
	}
}

// Run starts the HTTP server and scheduler, handling graceful shutdown on
// context cancellation. It returns an error if any component fails during
// startup or execution.
func (a *App) Run(ctx context.Context) error {
	a.logger.Info("Starting application orchestrator...")

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.logger.Info("Starting HTTP server...", "addr", a.cfg.Server.Addr)

		if err := a.server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("HTTP server stopped unexpectedly", "error", err)
			return fmt.Errorf("http server failed: %w", err)
		}
		a.logger.Info("HTTP server stopped.")
		return nil
	})

	g.Go(func() error {
		<-gCtx.Done()
		a.logger.Info("Shutdown signal received, stopping HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := a.server.Shutdown(shutdownCtx); err != nil {
			a.logger.Error("Error shutting down HTTP server", "error", err)
			return fmt.Errorf("http server shutdown failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		a.logger.Info("Starting scheduler...")
		if err := a.scheduler.Start(); err != nil {
			a.logger.Error("Failed to start scheduler", "error", err)
			return fmt.Errorf("failed to start scheduler: %w", err)
		}

		<-gCtx.Done()
		a.logger.Info("Shutdown signal received, stopping scheduler...")

		if err := a.scheduler.Stop(); err != nil {
			a.logger.Error("Error stopping scheduler", "error", err)
		}

		return nil
	})

	a.logger.Info("Application orchestrator running. Waiting for shutdown signal or error...")
	err := g.Wait()

	if err != nil && !errors.Is(err, context.Canceled) {
		a.logger.Error("Application orchestrator stopped due to error", "error", err)
		return err
	}

	a.logger.Info("Application orchestrator stopped gracefully.")
	return nil
}
