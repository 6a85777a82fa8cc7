package tasks

import (
	"context"
	"fmt"
	"time"
)

// newDBMaintenanceTask creates the scheduled task function for running
// database maintenance. The activity log is unbounded and append-only, so
// periodic VACUUM keeps the database file from growing stale.
func newDBMaintenanceTask(deps TaskDeps) ScheduledTaskFunc {
	log := deps.Logger.With("task", "db_maintenance")

	return func(ctx context.Context) error {
		log.InfoContext(ctx, "Starting scheduled database maintenance task...")
		startTime := time.Now()

		err := deps.Store.RunMaintenance(ctx)

		duration := time.Since(startTime)

		if err != nil {
			log.ErrorContext(ctx, "Database maintenance task failed", "error", err, "duration", duration)
			return fmt.Errorf("database maintenance failed: %w", err)
		}

		log.InfoContext(ctx, "Scheduled database maintenance task completed successfully", "duration", duration)
		return nil
	}
}
