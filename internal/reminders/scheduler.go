package reminders

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/edgard/habitbot/internal/database"
	apperrors "github.com/edgard/habitbot/internal/errors"
)

// Task is the body of a deferred job. It receives the handle it was
// scheduled under.
type Task func(ctx context.Context, jobID uuid.UUID)

// Deferrer runs one-shot jobs at an absolute instant. Cancel of a job that
// already ran or never existed is not an error.
type Deferrer interface {
	ScheduleAt(name string, at time.Time, task Task) (uuid.UUID, error)
	Cancel(id uuid.UUID) error
}

// Dispatcher delivers a reminder text to a chat.
type Dispatcher interface {
	Deliver(ctx context.Context, chatID int64, text string) error
}

// Composer produces the reminder text for a user.
type Composer interface {
	ReminderText(ctx context.Context, telegramID int64) string
}

// Recorder receives reminder lifecycle events for metrics.
type Recorder interface {
	ReminderScheduled()
	ReminderCancelled()
	ReminderDelivered(ok bool)
}

type noopRecorder struct{}

func (noopRecorder) ReminderScheduled()     {}
func (noopRecorder) ReminderCancelled()     {}
func (noopRecorder) ReminderDelivered(bool) {}

// Deps holds the collaborators of a Scheduler.
type Deps struct {
	Logger     *slog.Logger
	Store      database.Store
	Deferrer   Deferrer
	Dispatcher Dispatcher
	Composer   Composer
	Recorder   Recorder
	Now        func() time.Time
}

// Scheduler owns the reminder chain of every user: each delivered reminder
// schedules the next one, and every preference change replaces the pending
// job. Operations on the same user are serialized.
type Scheduler struct {
	store      database.Store
	deferrer   Deferrer
	dispatcher Dispatcher
	composer   Composer
	recorder   Recorder
	now        func() time.Time
	logger     *slog.Logger

	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

// NewScheduler creates a reminder scheduler.
func NewScheduler(deps Deps) *Scheduler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	recorder := deps.Recorder
	if recorder == nil {
		recorder = noopRecorder{}
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &Scheduler{
		store:      deps.Store,
		deferrer:   deps.Deferrer,
		dispatcher: deps.Dispatcher,
		composer:   deps.Composer,
		recorder:   recorder,
		now:        now,
		logger:     logger.With("component", "reminder_scheduler"),
		locks:      make(map[int64]*sync.Mutex),
	}
}

// lockUser serializes work on one user's reminder state. Locks are never
// dropped, so the map holds at most one entry per user who touched reminders.
func (s *Scheduler) lockUser(telegramID int64) func() {
	s.mu.Lock()
	m, ok := s.locks[telegramID]
	if !ok {
		m = &sync.Mutex{}
		s.locks[telegramID] = m
	}
	s.mu.Unlock()

	m.Lock()
	return m.Unlock
}

// Schedule replaces the user's pending reminder with one at the next
// occurrence of their reminder time and returns the new job handle.
func (s *Scheduler) Schedule(ctx context.Context, telegramID int64) (uuid.UUID, error) {
	unlock := s.lockUser(telegramID)
	defer unlock()

	user, err := s.store.GetUser(ctx, telegramID)
	if err != nil {
		return uuid.Nil, err
	}
	return s.schedule(ctx, user, uuid.Nil)
}

// schedule must be called with the user's lock held. fired is the handle of
// the job that is currently running, which needs no cancellation.
func (s *Scheduler) schedule(ctx context.Context, user *database.User, fired uuid.UUID) (uuid.UUID, error) {
	log := s.logger.With("user_id", user.TelegramID)

	if err := s.cancelStored(ctx, user, fired); err != nil {
		return uuid.Nil, err
	}

	loc, err := ParseOffset(user.Timezone)
	if err != nil {
		s.clearHandle(ctx, user)
		return uuid.Nil, fmt.Errorf("user %d has invalid timezone: %w", user.TelegramID, err)
	}
	clock, err := ParseClock(user.ReminderTime)
	if err != nil {
		s.clearHandle(ctx, user)
		return uuid.Nil, fmt.Errorf("user %d has invalid reminder time: %w", user.TelegramID, err)
	}

	fireAt := NextFire(s.now(), clock, loc)
	telegramID := user.TelegramID
	jobID, err := s.deferrer.ScheduleAt(jobName(telegramID), fireAt, func(ctx context.Context, jobID uuid.UUID) {
		s.fire(ctx, telegramID, jobID)
	})
	if err != nil {
		log.ErrorContext(ctx, "Failed to schedule reminder job", "fire_at", fireAt, "error", err)
		s.clearHandle(ctx, user)
		return uuid.Nil, fmt.Errorf("failed to schedule reminder: %w", err)
	}

	if err := s.store.SetReminderTaskID(ctx, telegramID, jobID.String()); err != nil {
		// Without a stored handle the job could never be cancelled.
		if cancelErr := s.deferrer.Cancel(jobID); cancelErr != nil {
			log.WarnContext(ctx, "Failed to cancel unpersisted reminder job", "job_id", jobID, "error", cancelErr)
		}
		return uuid.Nil, err
	}
	user.ReminderTaskID.String, user.ReminderTaskID.Valid = jobID.String(), true

	s.recorder.ReminderScheduled()
	log.InfoContext(ctx, "Reminder scheduled", "job_id", jobID, "fire_at", fireAt,
		"reminder_time", user.ReminderTime, "timezone", user.Timezone)
	return jobID, nil
}

// clearHandle forgets a handle whose job was already cancelled or has fired.
func (s *Scheduler) clearHandle(ctx context.Context, user *database.User) {
	if !user.ReminderTaskID.Valid {
		return
	}
	if err := s.store.SetReminderTaskID(ctx, user.TelegramID, ""); err != nil {
		s.logger.ErrorContext(ctx, "Failed to clear reminder task id", "user_id", user.TelegramID, "error", err)
		return
	}
	user.ReminderTaskID.Valid = false
}

// cancelStored cancels the job referenced by the user's stored handle unless
// it is the one currently running.
func (s *Scheduler) cancelStored(ctx context.Context, user *database.User, fired uuid.UUID) error {
	if !user.ReminderTaskID.Valid || user.ReminderTaskID.String == "" {
		return nil
	}
	id, err := uuid.Parse(user.ReminderTaskID.String)
	if err != nil {
		s.logger.WarnContext(ctx, "Ignoring malformed reminder task id",
			"user_id", user.TelegramID, "task_id", user.ReminderTaskID.String, "error", err)
		return nil
	}
	if id == fired {
		return nil
	}
	if err := s.deferrer.Cancel(id); err != nil {
		return fmt.Errorf("failed to cancel reminder job %s: %w", id, err)
	}
	s.recorder.ReminderCancelled()
	s.logger.DebugContext(ctx, "Cancelled pending reminder", "user_id", user.TelegramID, "job_id", id)
	return nil
}

// Cancel removes the user's pending reminder, if any, and clears the handle.
func (s *Scheduler) Cancel(ctx context.Context, telegramID int64) error {
	unlock := s.lockUser(telegramID)
	defer unlock()

	user, err := s.store.GetUser(ctx, telegramID)
	if err != nil {
		return err
	}
	return s.cancel(ctx, user)
}

func (s *Scheduler) cancel(ctx context.Context, user *database.User) error {
	if err := s.cancelStored(ctx, user, uuid.Nil); err != nil {
		return err
	}
	if !user.ReminderTaskID.Valid {
		return nil
	}
	if err := s.store.SetReminderTaskID(ctx, user.TelegramID, ""); err != nil {
		return err
	}
	user.ReminderTaskID.Valid = false
	return nil
}

// Enable turns reminders on and schedules the first one.
func (s *Scheduler) Enable(ctx context.Context, telegramID int64) error {
	unlock := s.lockUser(telegramID)
	defer unlock()

	user, err := s.store.GetUser(ctx, telegramID)
	if err != nil {
		return err
	}
	return s.enable(ctx, user)
}

func (s *Scheduler) enable(ctx context.Context, user *database.User) error {
	if err := s.store.SetRemindersEnabled(ctx, user.TelegramID, true); err != nil {
		return err
	}
	user.RemindersEnabled = true
	if _, err := s.schedule(ctx, user, uuid.Nil); err != nil {
		if revertErr := s.store.SetRemindersEnabled(ctx, user.TelegramID, false); revertErr != nil {
			s.logger.ErrorContext(ctx, "Failed to revert reminders flag", "user_id", user.TelegramID, "error", revertErr)
		}
		user.RemindersEnabled = false
		return err
	}
	return nil
}

// Disable turns reminders off and cancels the pending one.
func (s *Scheduler) Disable(ctx context.Context, telegramID int64) error {
	unlock := s.lockUser(telegramID)
	defer unlock()

	user, err := s.store.GetUser(ctx, telegramID)
	if err != nil {
		return err
	}
	return s.disable(ctx, user)
}

func (s *Scheduler) disable(ctx context.Context, user *database.User) error {
	if err := s.store.SetRemindersEnabled(ctx, user.TelegramID, false); err != nil {
		return err
	}
	user.RemindersEnabled = false
	if err := s.cancel(ctx, user); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "Reminders disabled", "user_id", user.TelegramID)
	return nil
}

// Toggle flips the reminders setting and reports the new state.
func (s *Scheduler) Toggle(ctx context.Context, telegramID int64) (bool, error) {
	unlock := s.lockUser(telegramID)
	defer unlock()

	user, err := s.store.GetUser(ctx, telegramID)
	if err != nil {
		return false, err
	}
	if user.RemindersEnabled {
		return false, s.disable(ctx, user)
	}
	return true, s.enable(ctx, user)
}

// SetTime validates and stores a new reminder time, rescheduling when
// reminders are on. It returns the normalized time.
func (s *Scheduler) SetTime(ctx context.Context, telegramID int64, input string) (string, error) {
	clock, err := NormalizeClock(input)
	if err != nil {
		return "", err
	}

	unlock := s.lockUser(telegramID)
	defer unlock()

	if err := s.store.UpdateReminderTime(ctx, telegramID, clock); err != nil {
		return "", err
	}
	return clock, s.rescheduleIfEnabled(ctx, telegramID)
}

// SetTimezone validates and stores a new offset, rescheduling when reminders
// are on. It returns the normalized offset.
func (s *Scheduler) SetTimezone(ctx context.Context, telegramID int64, input string) (string, error) {
	tz, err := NormalizeOffset(input)
	if err != nil {
		return "", err
	}

	unlock := s.lockUser(telegramID)
	defer unlock()

	if err := s.store.UpdateUserTimezone(ctx, telegramID, tz); err != nil {
		return "", err
	}
	return tz, s.rescheduleIfEnabled(ctx, telegramID)
}

func (s *Scheduler) rescheduleIfEnabled(ctx context.Context, telegramID int64) error {
	user, err := s.store.GetUser(ctx, telegramID)
	if err != nil {
		return err
	}
	if !user.RemindersEnabled {
		return nil
	}
	if _, err := s.schedule(ctx, user, uuid.Nil); err != nil {
		if !user.ReminderTaskID.Valid {
			// No job is pending; reflect that in the settings.
			if offErr := s.store.SetRemindersEnabled(ctx, telegramID, false); offErr != nil {
				s.logger.ErrorContext(ctx, "Failed to turn reminders off", "user_id", telegramID, "error", offErr)
			}
		}
		return err
	}
	return nil
}

// Restore re-arms the reminder of every user with reminders enabled. Jobs
// live in memory only, so this runs once at startup.
func (s *Scheduler) Restore(ctx context.Context) (int, error) {
	users, err := s.store.ListReminderUsers(ctx)
	if err != nil {
		return 0, err
	}

	restored := 0
	for i := range users {
		if ctx.Err() != nil {
			return restored, ctx.Err()
		}
		user := &users[i]
		unlock := s.lockUser(user.TelegramID)
		_, err := s.schedule(ctx, user, uuid.Nil)
		unlock()
		if err != nil {
			s.logger.ErrorContext(ctx, "Failed to restore reminder", "user_id", user.TelegramID, "error", err)
			continue
		}
		restored++
	}

	s.logger.InfoContext(ctx, "Reminders restored", "restored", restored, "candidates", len(users))
	return restored, nil
}

// fire is the body of every reminder job.
func (s *Scheduler) fire(ctx context.Context, telegramID int64, jobID uuid.UUID) {
	log := s.logger.With("user_id", telegramID, "job_id", jobID)

	if !s.isCurrent(ctx, telegramID, jobID) {
		log.InfoContext(ctx, "Skipping stale reminder job")
		return
	}

	text := s.composer.ReminderText(ctx, telegramID)
	deliverErr := s.dispatcher.Deliver(ctx, telegramID, text)
	s.recorder.ReminderDelivered(deliverErr == nil)

	unlock := s.lockUser(telegramID)
	defer unlock()

	user, err := s.store.GetUser(ctx, telegramID)
	if err != nil {
		log.ErrorContext(ctx, "Failed to load user after reminder", "error", err)
		return
	}
	if !user.RemindersEnabled || user.ReminderTaskID.String != jobID.String() {
		// Preferences changed while delivering; whoever changed them owns the chain now.
		return
	}

	if deliverErr != nil {
		log.ErrorContext(ctx, "Reminder delivery failed, reminder chain stopped", "error", deliverErr)
		if err := s.store.SetReminderTaskID(ctx, telegramID, ""); err != nil {
			log.ErrorContext(ctx, "Failed to clear reminder task id", "error", err)
		}
		return
	}

	if _, err := s.schedule(ctx, user, jobID); err != nil {
		log.ErrorContext(ctx, "Failed to schedule next reminder", "error", err)
	}
}

func (s *Scheduler) isCurrent(ctx context.Context, telegramID int64, jobID uuid.UUID) bool {
	unlock := s.lockUser(telegramID)
	defer unlock()

	user, err := s.store.GetUser(ctx, telegramID)
	if err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			s.logger.ErrorContext(ctx, "Failed to load user for reminder", "user_id", telegramID, "error", err)
		}
		return false
	}
	return user.RemindersEnabled && user.ReminderTaskID.String == jobID.String()
}

func jobName(telegramID int64) string {
	return "reminder_" + strconv.FormatInt(telegramID, 10)
}
