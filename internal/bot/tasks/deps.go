// Package tasks implements the bot's periodic maintenance jobs.
package tasks

import (
	"log/slog"

	"github.com/edgard/habitbot/internal/conversation"
	"github.com/edgard/habitbot/internal/database"
)

// TaskDeps contains the dependencies of scheduled tasks.
type TaskDeps struct {
	Logger   *slog.Logger
	Store    database.Store
	Sessions conversation.Store
}
