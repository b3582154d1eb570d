package tasks

import (
	"context"
	"fmt"
)

// newSessionSweepTask drops conversations that have been idle past their TTL.
func newSessionSweepTask(deps TaskDeps) ScheduledTaskFunc {
	log := deps.Logger.With("task", "session_sweep")

	return func(ctx context.Context) error {
		if deps.Sessions == nil {
			return nil
		}
		removed, err := deps.Sessions.Sweep(ctx)
		if err != nil {
			return fmt.Errorf("session sweep failed: %w", err)
		}
		if removed > 0 {
			log.InfoContext(ctx, "Expired conversations removed", "count", removed)
		}
		return nil
	}
}
