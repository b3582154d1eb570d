package tasks

import (
	"context"
	"fmt"
	"time"
)

// newSQLMaintenanceTask vacuums and analyzes the habit database.
func newSQLMaintenanceTask(deps TaskDeps) ScheduledTaskFunc {
	log := deps.Logger.With("task", "sql_maintenance")

	return func(ctx context.Context) error {
		start := time.Now()
		if err := deps.Store.RunSQLMaintenance(ctx); err != nil {
			log.ErrorContext(ctx, "SQL maintenance failed", "error", err, "duration", time.Since(start))
			return fmt.Errorf("sql maintenance failed: %w", err)
		}
		log.InfoContext(ctx, "SQL maintenance completed", "duration", time.Since(start))
		return nil
	}
}
