// Package main contains the entrypoint for the ReplyDesk dashboard service.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/lcastro/replydesk/internal/app"
	"github.com/lcastro/replydesk/internal/app/tasks"
	"github.com/lcastro/replydesk/internal/config"
	"github.com/lcastro/replydesk/internal/database"
	"github.com/lcastro/replydesk/internal/graph"
	"github.com/lcastro/replydesk/internal/logger"
	"github.com/lcastro/replydesk/internal/server"

	_ "modernc.org/sqlite"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	exitCode := run(ctx)
	stop() // Ensure context cancellation is signaled before exit
	os.Exit(exitCode)
}

// run initializes and starts all application components (config, logger, db,
// graph client, server, scheduler), handles graceful shutdown, and returns an
// exit code (0 for success, 1 for failure).
func run(ctx context.Context) int {
	configPath := flag.String("config", "./config.yaml", "Path to configuration file")
	flag.Parse()

	// Load .env if present; META_ACCESS_TOKEN usually lives there in dev.
	_ = godotenv.Load()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		slog.Error("Failed to load configuration", "path", *configPath, "error", err)
		return 1
	}

	log := logger.NewLogger(cfg.Logger.Level, cfg.Logger.JSON)
	slog.SetDefault(log)
	log.Info("Logger initialized", "level", cfg.Logger.Level, "json", cfg.Logger.JSON)

	db, err := database.NewDB(cfg.Database.Path)
	if err != nil {
		log.Error("Failed to connect to database", "path", cfg.Database.Path, "error", err)
		return 1
	}
	defer database.CloseDB(db)
	store := database.NewStore(db, log)

	if err := database.SeedSampleMessages(ctx, store, log); err != nil {
		log.Error("Failed to seed sample messages", "error", err)
		return 1
	}

	dispatcher := graph.NewClient(cfg.Meta, log)
	srv := server.NewServer(cfg, store, dispatcher, log)

	tDeps := tasks.TaskDeps{
		Logger: log,
		Store:  store,
		Config: cfg,
	}
	sched := app.NewScheduler(log, &cfg.Scheduler, tasks.RegisterAllTasks(tDeps))

	application := app.NewApp(log, cfg, db, store, srv, sched)

	log.Info("Starting ReplyDesk...")
	runErr := application.Run(ctx) // Run blocks until context is cancelled or an error occurs
	log.Info("Run loop finished. Initiating shutdown...")

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		log.Error("Application stopped due to error", "error", runErr)
		// Allow logs to flush before exiting on error
		time.Sleep(time.Second)
		return 1
	}

	log.Info("Application stopped gracefully.")
	return 0
}
