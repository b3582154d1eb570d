package tasks

import "context"

// ScheduledTaskFunc is the signature of every scheduled task. The context
// is cancelled on shutdown.
type ScheduledTaskFunc func(ctx context.Context) error

// RegisterAllTasks returns all tasks keyed by the names used in the
// scheduler.tasks configuration section.
func RegisterAllTasks(deps TaskDeps) map[string]ScheduledTaskFunc {
	tasks := map[string]ScheduledTaskFunc{
		"sql_maintenance": newSQLMaintenanceTask(deps),
		"session_sweep":   newSessionSweepTask(deps),
	}

	deps.Logger.Info("Initialized scheduled tasks", "count", len(tasks))
	return tasks
}
