package reminders_test

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/edgard/habitbot/internal/database"
	"github.com/edgard/habitbot/internal/reminders"
)

type fakeJob struct {
	name string
	at   time.Time
	task reminders.Task
}

type fakeDeferrer struct {
	mu        sync.Mutex
	jobs      map[uuid.UUID]fakeJob
	cancelled []uuid.UUID
	failNext  bool
}

func newFakeDeferrer() *fakeDeferrer {
	return &fakeDeferrer{jobs: make(map[uuid.UUID]fakeJob)}
}

func (f *fakeDeferrer) ScheduleAt(name string, at time.Time, task reminders.Task) (uuid.UUID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failNext {
		f.failNext = false
		return uuid.Nil, errors.New("scheduler stopped")
	}
	id := uuid.New()
	f.jobs[id] = fakeJob{name: name, at: at, task: task}
	return id, nil
}

func (f *fakeDeferrer) Cancel(id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.jobs, id)
	f.cancelled = append(f.cancelled, id)
	return nil
}

func (f *fakeDeferrer) active() map[uuid.UUID]fakeJob {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[uuid.UUID]fakeJob, len(f.jobs))
	for id, j := range f.jobs {
		out[id] = j
	}
	return out
}

// run executes a job the way the real scheduler would and drops it.
func (f *fakeDeferrer) run(t *testing.T, id uuid.UUID) {
	t.Helper()
	f.mu.Lock()
	job, ok := f.jobs[id]
	delete(f.jobs, id)
	f.mu.Unlock()
	if !ok {
		t.Fatalf("job %s is not scheduled", id)
	}
	job.task(context.Background(), id)
}

type fakeDispatcher struct {
	mu   sync.Mutex
	sent []string
	err  error
}

func (f *fakeDispatcher) Deliver(_ context.Context, _ int64, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, text)
	return nil
}

type staticComposer string

func (c staticComposer) ReminderText(context.Context, int64) string { return string(c) }

type fixture struct {
	store      database.Store
	deferrer   *fakeDeferrer
	dispatcher *fakeDispatcher
	scheduler  *reminders.Scheduler
	now        time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db, err := database.NewDB(filepath.Join(t.TempDir(), "reminders.db"))
	if err != nil {
		t.Fatalf("NewDB() error = %v", err)
	}
	t.Cleanup(func() { database.CloseDB(db) })

	f := &fixture{
		store:      database.NewStore(db, nil),
		deferrer:   newFakeDeferrer(),
		dispatcher: &fakeDispatcher{},
		// 10:00 in UTC+3.
		now: time.Date(2024, time.June, 10, 7, 0, 0, 0, time.UTC),
	}
	f.scheduler = reminders.NewScheduler(reminders.Deps{
		Store:      f.store,
		Deferrer:   f.deferrer,
		Dispatcher: f.dispatcher,
		Composer:   staticComposer("time to check in"),
		Now:        func() time.Time { return f.now },
	})
	return f
}

func (f *fixture) addUser(t *testing.T, telegramID int64, tz, clock string) {
	t.Helper()
	ctx := context.Background()
	if _, err := f.store.UpsertUser(ctx, &database.User{TelegramID: telegramID}); err != nil {
		t.Fatalf("UpsertUser() error = %v", err)
	}
	if err := f.store.UpdateUserTimezone(ctx, telegramID, tz); err != nil {
		t.Fatalf("UpdateUserTimezone() error = %v", err)
	}
	if err := f.store.UpdateReminderTime(ctx, telegramID, clock); err != nil {
		t.Fatalf("UpdateReminderTime() error = %v", err)
	}
}

func (f *fixture) storedHandle(t *testing.T, telegramID int64) string {
	t.Helper()
	user, err := f.store.GetUser(context.Background(), telegramID)
	if err != nil {
		t.Fatalf("GetUser() error = %v", err)
	}
	if !user.ReminderTaskID.Valid {
		return ""
	}
	return user.ReminderTaskID.String
}

// onlyJob asserts exactly one job is active, that it matches the stored
// handle, and returns it.
func (f *fixture) onlyJob(t *testing.T, telegramID int64) (uuid.UUID, fakeJob) {
	t.Helper()
	jobs := f.deferrer.active()
	if len(jobs) != 1 {
		t.Fatalf("active jobs = %d, want 1", len(jobs))
	}
	for id, job := range jobs {
		if handle := f.storedHandle(t, telegramID); handle != id.String() {
			t.Fatalf("stored handle = %q, want %q", handle, id)
		}
		return id, job
	}
	return uuid.Nil, fakeJob{}
}

func TestEnableSchedulesNextOccurrence(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.addUser(t, 1, "UTC+03", "09:00")

	if err := f.scheduler.Enable(context.Background(), 1); err != nil {
		t.Fatalf("Enable() error = %v", err)
	}

	_, job := f.onlyJob(t, 1)
	want := time.Date(2024, time.June, 11, 6, 0, 0, 0, time.UTC)
	if !job.at.Equal(want) {
		t.Errorf("fire time = %v, want %v", job.at, want)
	}
	if job.name != "reminder_1" {
		t.Errorf("job name = %q", job.name)
	}
}

func TestSetTimeReplacesPendingJob(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	f.addUser(t, 1, "UTC+03", "09:00")

	if err := f.scheduler.Enable(ctx, 1); err != nil {
		t.Fatalf("Enable() error = %v", err)
	}
	first, _ := f.onlyJob(t, 1)

	clock, err := f.scheduler.SetTime(ctx, 1, "11:30")
	if err != nil {
		t.Fatalf("SetTime() error = %v", err)
	}
	if clock != "11:30" {
		t.Errorf("SetTime() = %q, want 11:30", clock)
	}

	second, job := f.onlyJob(t, 1)
	if second == first {
		t.Fatal("SetTime() kept the old job")
	}
	if want := time.Date(2024, time.June, 10, 8, 30, 0, 0, time.UTC); !job.at.Equal(want) {
		t.Errorf("fire time = %v, want %v", job.at, want)
	}
}

func TestSetTimezoneWhileDisabledDoesNotSchedule(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.addUser(t, 1, "UTC", "09:00")

	tz, err := f.scheduler.SetTimezone(context.Background(), 1, "UTC+5")
	if err != nil {
		t.Fatalf("SetTimezone() error = %v", err)
	}
	if tz != "UTC+05" {
		t.Errorf("SetTimezone() = %q, want UTC+05", tz)
	}
	if n := len(f.deferrer.active()); n != 0 {
		t.Errorf("active jobs = %d, want 0", n)
	}

	if _, err := f.scheduler.SetTimezone(context.Background(), 1, "UTC+15"); err == nil {
		t.Error("SetTimezone(UTC+15) expected error")
	}
}

func TestDisableCancelsAndClearsHandle(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	f.addUser(t, 1, "UTC", "09:00")

	if err := f.scheduler.Enable(ctx, 1); err != nil {
		t.Fatalf("Enable() error = %v", err)
	}
	if err := f.scheduler.Disable(ctx, 1); err != nil {
		t.Fatalf("Disable() error = %v", err)
	}

	if n := len(f.deferrer.active()); n != 0 {
		t.Errorf("active jobs = %d, want 0", n)
	}
	if handle := f.storedHandle(t, 1); handle != "" {
		t.Errorf("stored handle = %q, want empty", handle)
	}
	user, _ := f.store.GetUser(ctx, 1)
	if user.RemindersEnabled {
		t.Error("RemindersEnabled still true")
	}
}

func TestToggle(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	f.addUser(t, 1, "UTC", "09:00")

	enabled, err := f.scheduler.Toggle(ctx, 1)
	if err != nil || !enabled {
		t.Fatalf("first Toggle() = %v, %v, want true", enabled, err)
	}
	f.onlyJob(t, 1)

	enabled, err = f.scheduler.Toggle(ctx, 1)
	if err != nil || enabled {
		t.Fatalf("second Toggle() = %v, %v, want false", enabled, err)
	}
	if n := len(f.deferrer.active()); n != 0 {
		t.Errorf("active jobs = %d, want 0", n)
	}
}

func TestFireDeliversAndReschedules(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.addUser(t, 1, "UTC+03", "09:00")

	if err := f.scheduler.Enable(context.Background(), 1); err != nil {
		t.Fatalf("Enable() error = %v", err)
	}
	id, job := f.onlyJob(t, 1)

	f.now = job.at
	f.deferrer.run(t, id)

	if len(f.dispatcher.sent) != 1 || f.dispatcher.sent[0] != "time to check in" {
		t.Fatalf("sent = %v, want one reminder", f.dispatcher.sent)
	}
	next, nextJob := f.onlyJob(t, 1)
	if next == id {
		t.Fatal("next job reused the fired handle")
	}
	if want := job.at.AddDate(0, 0, 1); !nextJob.at.Equal(want) {
		t.Errorf("next fire time = %v, want %v", nextJob.at, want)
	}
}

func TestFireFailureStopsChain(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.addUser(t, 1, "UTC", "09:00")
	f.dispatcher.err = errors.New("bot was blocked by the user")

	if err := f.scheduler.Enable(context.Background(), 1); err != nil {
		t.Fatalf("Enable() error = %v", err)
	}
	id, _ := f.onlyJob(t, 1)
	f.deferrer.run(t, id)

	if n := len(f.deferrer.active()); n != 0 {
		t.Errorf("active jobs = %d, want 0", n)
	}
	if handle := f.storedHandle(t, 1); handle != "" {
		t.Errorf("stored handle = %q, want empty", handle)
	}
}

func TestStaleJobIsSkipped(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	f.addUser(t, 1, "UTC", "09:00")

	if err := f.scheduler.Enable(ctx, 1); err != nil {
		t.Fatalf("Enable() error = %v", err)
	}
	stale, job := f.onlyJob(t, 1)
	if _, err := f.scheduler.SetTime(ctx, 1, "10:00"); err != nil {
		t.Fatalf("SetTime() error = %v", err)
	}

	// The old job raced its cancellation and runs anyway.
	job.task(ctx, stale)

	if len(f.dispatcher.sent) != 0 {
		t.Errorf("stale job delivered %v", f.dispatcher.sent)
	}
	f.onlyJob(t, 1)
}

func TestScheduleFailureLeavesNoHandle(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.addUser(t, 1, "UTC", "09:00")
	f.deferrer.failNext = true

	if err := f.scheduler.Enable(context.Background(), 1); err == nil {
		t.Fatal("Enable() expected error")
	}
	if handle := f.storedHandle(t, 1); handle != "" {
		t.Errorf("stored handle = %q, want empty", handle)
	}
}

func TestRescheduleFailureTurnsRemindersOff(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name   string
		change func(ctx context.Context, s *reminders.Scheduler) error
		check  func(u *database.User) bool
	}{
		{
			name: "set time",
			change: func(ctx context.Context, s *reminders.Scheduler) error {
				_, err := s.SetTime(ctx, 1, "11:00")
				return err
			},
			check: func(u *database.User) bool { return u.ReminderTime == "11:00" },
		},
		{
			name: "set timezone",
			change: func(ctx context.Context, s *reminders.Scheduler) error {
				_, err := s.SetTimezone(ctx, 1, "UTC+5")
				return err
			},
			check: func(u *database.User) bool { return u.Timezone == "UTC+05" },
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			f := newFixture(t)
			ctx := context.Background()
			f.addUser(t, 1, "UTC+03", "09:00")
			if err := f.scheduler.Enable(ctx, 1); err != nil {
				t.Fatalf("Enable() error = %v", err)
			}
			f.onlyJob(t, 1)

			f.deferrer.failNext = true
			if err := tc.change(ctx, f.scheduler); err == nil {
				t.Fatal("expected scheduling error")
			}

			if jobs := f.deferrer.active(); len(jobs) != 0 {
				t.Errorf("active jobs = %d, want 0", len(jobs))
			}
			user, err := f.store.GetUser(ctx, 1)
			if err != nil {
				t.Fatalf("GetUser() error = %v", err)
			}
			if user.RemindersEnabled {
				t.Error("reminders still enabled with nothing pending")
			}
			if user.ReminderTaskID.Valid {
				t.Errorf("stored handle = %q, want none", user.ReminderTaskID.String)
			}
			if !tc.check(user) {
				t.Errorf("new preference not kept: %+v", user)
			}

			// Turning reminders back on recovers the chain.
			if err := f.scheduler.Enable(ctx, 1); err != nil {
				t.Fatalf("Enable() error = %v", err)
			}
			f.onlyJob(t, 1)
		})
	}
}

func TestRestore(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	f.addUser(t, 1, "UTC", "09:00")
	f.addUser(t, 2, "UTC-05", "07:15")
	f.addUser(t, 3, "UTC", "09:00")

	for _, id := range []int64{1, 2} {
		if err := f.store.SetRemindersEnabled(ctx, id, true); err != nil {
			t.Fatalf("SetRemindersEnabled() error = %v", err)
		}
		// Handle left behind by a previous process.
		if err := f.store.SetReminderTaskID(ctx, id, uuid.NewString()); err != nil {
			t.Fatalf("SetReminderTaskID() error = %v", err)
		}
	}

	restored, err := f.scheduler.Restore(ctx)
	if err != nil {
		t.Fatalf("Restore() error = %v", err)
	}
	if restored != 2 {
		t.Errorf("Restore() = %d, want 2", restored)
	}

	jobs := f.deferrer.active()
	if len(jobs) != 2 {
		t.Fatalf("active jobs = %d, want 2", len(jobs))
	}
	for _, id := range []int64{1, 2} {
		handle := f.storedHandle(t, id)
		parsed, err := uuid.Parse(handle)
		if err != nil {
			t.Fatalf("stored handle %q is not a uuid", handle)
		}
		if _, ok := jobs[parsed]; !ok {
			t.Errorf("user %d handle %s does not match an active job", id, handle)
		}
	}
}

func TestConcurrentChangesKeepOneJob(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	f.addUser(t, 1, "UTC", "09:00")

	if err := f.scheduler.Enable(ctx, 1); err != nil {
		t.Fatalf("Enable() error = %v", err)
	}

	var wg sync.WaitGroup
	for _, clock := range []string{"06:00", "07:00", "08:00", "10:00", "12:00", "18:00"} {
		clock := clock
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := f.scheduler.SetTime(ctx, 1, clock); err != nil {
				t.Errorf("SetTime(%s) error = %v", clock, err)
			}
		}()
	}
	wg.Wait()

	f.onlyJob(t, 1)
}
