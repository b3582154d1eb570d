package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"

	"github.com/edgard/habitbot/internal/bot/tasks"
	"github.com/edgard/habitbot/internal/config"
	"github.com/edgard/habitbot/internal/reminders"
)

// Scheduler owns the gocron instance. It runs the configured maintenance
// tasks on cron schedules and serves as the reminders.Deferrer for one-shot
// reminder jobs.
type Scheduler struct {
	scheduler gocron.Scheduler
	logger    *slog.Logger
	cfg       *config.SchedulerConfig
	taskMap   map[string]tasks.ScheduledTaskFunc
	baseCtx   context.Context
	cancel    context.CancelFunc
	mu        sync.Mutex
	running   bool
}

// NewScheduler creates a scheduler. Jobs run in UTC; reminder instants are
// absolute so the location only matters for cron expressions.
func NewScheduler(logger *slog.Logger, cfg *config.SchedulerConfig, taskMap map[string]tasks.ScheduledTaskFunc) (*Scheduler, error) {
	if logger == nil {
		logger = slog.Default()
	}
	log := logger.With("component", "scheduler")

	s, err := gocron.NewScheduler(
		gocron.WithLocation(time.UTC),
		gocron.WithLogger(&gocronLogAdapter{log: log}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create gocron scheduler: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		scheduler: s,
		logger:    log,
		cfg:       cfg,
		taskMap:   taskMap,
		baseCtx:   ctx,
		cancel:    cancel,
	}, nil
}

// Start registers all enabled cron tasks and starts ticking.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("scheduler is already running")
	}

	scheduled := 0
	if s.cfg != nil {
		for name, taskCfg := range s.cfg.Tasks {
			if err := s.addCronTask(name, taskCfg); err != nil {
				s.logger.Error("Failed to schedule task", "task_name", name, "schedule", taskCfg.Schedule, "error", err)
				continue
			}
			if taskCfg.Enabled {
				scheduled++
			}
		}
	}
	if scheduled == 0 {
		s.logger.Warn("No scheduler tasks configured.")
	}

	s.scheduler.Start()
	s.running = true
	s.logger.Info("Scheduler started", "tasks_scheduled", scheduled)
	return nil
}

func (s *Scheduler) addCronTask(name string, taskCfg config.TaskConfig) error {
	if !taskCfg.Enabled {
		s.logger.Info("Skipping disabled task", "task_name", name)
		return nil
	}
	taskFunc, ok := s.taskMap[name]
	if !ok {
		return fmt.Errorf("task %q is not registered", name)
	}

	_, err := s.scheduler.NewJob(
		gocron.CronJob(taskCfg.Schedule, true),
		gocron.NewTask(func() {
			s.logger.Info("Running scheduled task", "task_name", name)
			start := time.Now()
			if err := taskFunc(s.baseCtx); err != nil {
				s.logger.Error("Scheduled task failed", "task_name", name, "error", err)
			}
			s.logger.Info("Finished scheduled task", "task_name", name, "duration", time.Since(start))
		}),
		gocron.WithName(name),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return err
	}
	s.logger.Info("Scheduled task", "task_name", name, "schedule", taskCfg.Schedule)
	return nil
}

// ScheduleAt registers a one-shot job. The job's handle is generated up
// front so the task can learn it. The job is removed once it has run.
func (s *Scheduler) ScheduleAt(name string, at time.Time, task reminders.Task) (uuid.UUID, error) {
	id := uuid.New()
	_, err := s.scheduler.NewJob(
		gocron.OneTimeJob(gocron.OneTimeJobStartDateTime(at)),
		gocron.NewTask(func() {
			task(s.baseCtx, id)
		}),
		gocron.WithName(name),
		gocron.WithIdentifier(id),
		gocron.WithLimitedRuns(1),
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to schedule %s at %s: %w", name, at.Format(time.RFC3339), err)
	}
	s.logger.Debug("Deferred job scheduled", "job_name", name, "job_id", id, "at", at)
	return id, nil
}

// Cancel removes a pending one-shot job. Unknown handles are ignored.
func (s *Scheduler) Cancel(id uuid.UUID) error {
	if err := s.scheduler.RemoveJob(id); err != nil {
		if errors.Is(err, gocron.ErrJobNotFound) {
			return nil
		}
		return fmt.Errorf("failed to cancel job %s: %w", id, err)
	}
	s.logger.Debug("Deferred job cancelled", "job_id", id)
	return nil
}

// Stop cancels the context handed to running jobs and waits for them.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}

	s.cancel()
	err := s.scheduler.Shutdown()
	if err != nil {
		s.logger.Error("Error during scheduler shutdown", "error", err)
	} else {
		s.logger.Info("Scheduler stopped gracefully.")
	}
	s.running = false
	return err
}

// gocronLogAdapter routes gocron's logging into slog.
type gocronLogAdapter struct {
	log *slog.Logger
}

func (l *gocronLogAdapter) Debug(msg string, args ...any) { l.log.Debug(msg, args...) }
func (l *gocronLogAdapter) Info(msg string, args ...any)  { l.log.Info(msg, args...) }
func (l *gocronLogAdapter) Warn(msg string, args ...any)  { l.log.Warn(msg, args...) }
func (l *gocronLogAdapter) Error(msg string, args ...any) { l.log.Error(msg, args...) }

var _ reminders.Deferrer = (*Scheduler)(nil)
