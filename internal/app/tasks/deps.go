// Package tasks implements scheduled background tasks for ReplyDesk.
// It includes task definitions, dependencies, and registration mechanisms.
package tasks

import (
	"log/slog"

	"github.com/lcastro/replydesk/internal/config"
	"github.com/lcastro/replydesk/internal/database"
)

// TaskDeps contains all dependencies required by scheduled tasks.
type TaskDeps struct {
	Logger *slog.Logger
	Store  database.Store
	Config *config.Config
}
