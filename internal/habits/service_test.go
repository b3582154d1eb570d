package habits_test

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/edgard/habitbot/internal/chart"
	"github.com/edgard/habitbot/internal/database"
	apperrors "github.com/edgard/habitbot/internal/errors"
	"github.com/edgard/habitbot/internal/habits"
)

const (
	alice int64 = 100
	bob   int64 = 200
)

type countingRecorder struct {
	mu      sync.Mutex
	results map[string]int
}

func (r *countingRecorder) HabitLogged(result string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results[result]++
}

type fixture struct {
	svc      *habits.Service
	store    database.Store
	recorder *countingRecorder
	now      time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db, err := database.NewDB(filepath.Join(t.TempDir(), "habits.db"))
	if err != nil {
		t.Fatalf("NewDB() error = %v", err)
	}
	t.Cleanup(func() { database.CloseDB(db) })

	f := &fixture{
		store:    database.NewStore(db, nil),
		recorder: &countingRecorder{results: make(map[string]int)},
		now:      time.Date(2024, time.May, 10, 12, 0, 0, 0, time.UTC),
	}
	f.svc = habits.NewService(habits.Deps{
		Store:    f.store,
		Recorder: f.recorder,
		Now:      func() time.Time { return f.now },
	})

	for _, id := range []int64{alice, bob} {
		if _, err := f.svc.Register(context.Background(), &database.User{TelegramID: id}); err != nil {
			t.Fatalf("Register() error = %v", err)
		}
	}
	return f
}

func (f *fixture) create(t *testing.T, userID int64, d habits.Draft) *database.Habit {
	t.Helper()
	h, err := f.svc.Create(context.Background(), userID, d)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	return h
}

func (f *fixture) logOn(t *testing.T, userID int64, h *database.Habit, day time.Time, e habits.Entry) {
	t.Helper()
	saved := f.now
	f.now = day
	defer func() { f.now = saved }()
	if _, err := f.svc.Log(context.Background(), userID, h.ID, e); err != nil {
		t.Fatalf("Log(%s) error = %v", day.Format(database.DateLayout), err)
	}
}

func TestCreateValidation(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name    string
		draft   habits.Draft
		wantErr error
	}{
		{"boolean", habits.Draft{Name: "  Meditate  ", Type: database.HabitTypeBoolean, AllowNotes: true}, nil},
		{"numeric", habits.Draft{Name: "Read", Type: database.HabitTypeNumeric, Unit: "pages"}, nil},
		{"empty name", habits.Draft{Name: "   ", Type: database.HabitTypeBoolean}, apperrors.ErrInvalidInput},
		{"long name", habits.Draft{Name: strings.Repeat("я", 101), Type: database.HabitTypeBoolean}, apperrors.ErrInvalidInput},
		{"numeric without unit", habits.Draft{Name: "Run", Type: database.HabitTypeNumeric}, apperrors.ErrInvalidInput},
		{"long unit", habits.Draft{Name: "Run", Type: database.HabitTypeNumeric, Unit: strings.Repeat("k", 21)}, apperrors.ErrInvalidInput},
		{"unknown type", habits.Draft{Name: "Run", Type: "weekly"}, apperrors.ErrInvalidInput},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			f := newFixture(t)
			h, err := f.svc.Create(context.Background(), alice, tc.draft)
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("Create() error = %v, want %v", err, tc.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Create() error = %v", err)
			}
			if h.Name != strings.TrimSpace(tc.draft.Name) {
				t.Errorf("Name = %q", h.Name)
			}
			if h.IsNumeric() && h.AllowNotes {
				t.Error("numeric habit must not allow notes")
			}
		})
	}
}

func TestNumericHabitIgnoresAllowNotes(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	h := f.create(t, alice, habits.Draft{Name: "Read", Type: database.HabitTypeNumeric, Unit: "pages", AllowNotes: true})
	if h.AllowNotes {
		t.Error("AllowNotes = true for numeric habit")
	}
}

func TestOwnership(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	h := f.create(t, alice, habits.Draft{Name: "Read", Type: database.HabitTypeBoolean})

	if _, err := f.svc.Rename(ctx, bob, h.ID, "Mine now"); !errors.Is(err, apperrors.ErrForbidden) {
		t.Errorf("Rename() by other user error = %v, want Forbidden", err)
	}
	if _, err := f.svc.Delete(ctx, bob, h.ID); !errors.Is(err, apperrors.ErrForbidden) {
		t.Errorf("Delete() by other user error = %v, want Forbidden", err)
	}
	if _, err := f.svc.Log(ctx, bob, h.ID, habits.Entry{}); !errors.Is(err, apperrors.ErrForbidden) {
		t.Errorf("Log() by other user error = %v, want Forbidden", err)
	}
	if _, err := f.svc.Get(ctx, alice, 9999); !errors.Is(err, apperrors.ErrNotFound) {
		t.Errorf("Get(missing) error = %v, want NotFound", err)
	}

	got, err := f.svc.Get(ctx, alice, h.ID)
	if err != nil || got.Name != "Read" {
		t.Errorf("Get() = %+v, %v; habit must be unchanged", got, err)
	}
}

func TestLogUnlogRelogScenario(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	h := f.create(t, alice, habits.Draft{Name: "Stretch", Type: database.HabitTypeBoolean})

	if _, err := f.svc.Log(ctx, alice, h.ID, habits.Entry{}); err != nil {
		t.Fatalf("first Log() error = %v", err)
	}
	if _, err := f.svc.Log(ctx, alice, h.ID, habits.Entry{}); !errors.Is(err, apperrors.ErrAlreadyLogged) {
		t.Fatalf("second Log() error = %v, want AlreadyLogged", err)
	}
	if err := f.svc.Unlog(ctx, alice, h.ID); err != nil {
		t.Fatalf("Unlog() error = %v", err)
	}
	if err := f.svc.Unlog(ctx, alice, h.ID); !errors.Is(err, apperrors.ErrNotFound) {
		t.Fatalf("second Unlog() error = %v, want NotFound", err)
	}
	if _, err := f.svc.Log(ctx, alice, h.ID, habits.Entry{}); err != nil {
		t.Fatalf("Log() after unlog error = %v", err)
	}

	dates, err := f.store.ListLogDates(ctx, h.ID)
	if err != nil {
		t.Fatalf("ListLogDates() error = %v", err)
	}
	if len(dates) != 1 {
		t.Errorf("log rows = %d, want 1", len(dates))
	}

	logged, err := f.svc.IsLoggedToday(ctx, alice, h.ID)
	if err != nil || !logged {
		t.Errorf("IsLoggedToday() = %v, %v, want true", logged, err)
	}

	if got := f.recorder.results[habits.ResultLogged]; got != 2 {
		t.Errorf("logged results = %d, want 2", got)
	}
	if got := f.recorder.results[habits.ResultAlreadyLogged]; got != 1 {
		t.Errorf("already_logged results = %d, want 1", got)
	}
}

func TestConcurrentDoubleTapLogsOnce(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	h := f.create(t, alice, habits.Draft{Name: "Water", Type: database.HabitTypeBoolean})

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Log(ctx, alice, h.ID, habits.Entry{})
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
				return
			}
			if !errors.Is(err, apperrors.ErrAlreadyLogged) {
				t.Errorf("Log() error = %v", err)
			}
		}()
	}
	wg.Wait()

	if succeeded != 1 {
		t.Errorf("successful logs = %d, want 1", succeeded)
	}
}

func TestLogNumeric(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	h := f.create(t, alice, habits.Draft{Name: "Read", Type: database.HabitTypeNumeric, Unit: "pages"})

	for _, bad := range []string{"", "abc", "0", "-3", "1.5", "+4", "99999999999999999999"} {
		if _, err := f.svc.Log(ctx, alice, h.ID, habits.Entry{Quantity: bad}); !errors.Is(err, apperrors.ErrInvalidQuantity) {
			t.Errorf("Log(%q) error = %v, want InvalidQuantity", bad, err)
		}
	}
	if logged, _ := f.svc.IsLoggedToday(ctx, alice, h.ID); logged {
		t.Fatal("invalid quantity mutated state")
	}

	entry, err := f.svc.Log(ctx, alice, h.ID, habits.Entry{Quantity: " 12 "})
	if err != nil {
		t.Fatalf("Log(12) error = %v", err)
	}
	if !entry.Value.Valid || entry.Value.Int64 != 12 {
		t.Errorf("Value = %+v, want 12", entry.Value)
	}

	_, notes, err := f.svc.Notes(ctx, alice, h.ID)
	if err != nil {
		t.Fatalf("Notes() error = %v", err)
	}
	if len(notes) != 1 || notes[0].Text != "12 pages" {
		t.Errorf("notes = %+v, want [12 pages]", notes)
	}

	spec, err := f.svc.ChartSeries(ctx, alice, h.ID, 7)
	if err != nil {
		t.Fatalf("ChartSeries() error = %v", err)
	}
	cum := chart.Cumulative(spec.Points)
	if cum[len(cum)-1] != 12 {
		t.Errorf("cumulative = %v, want to end at 12", cum)
	}
	if spec.Unit != "pages" {
		t.Errorf("Unit = %q", spec.Unit)
	}
}

func TestLogBooleanNotes(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name       string
		allowNotes bool
		note       string
		wantNotes  int
	}{
		{"note kept", true, "felt great", 1},
		{"skip sentinel", true, "-", 0},
		{"notes disabled", false, "ignored", 0},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			f := newFixture(t)
			ctx := context.Background()
			h := f.create(t, alice, habits.Draft{Name: "Yoga", Type: database.HabitTypeBoolean, AllowNotes: tc.allowNotes})

			if _, err := f.svc.Log(ctx, alice, h.ID, habits.Entry{Note: tc.note}); err != nil {
				t.Fatalf("Log() error = %v", err)
			}
			_, notes, err := f.svc.Notes(ctx, alice, h.ID)
			if err != nil {
				t.Fatalf("Notes() error = %v", err)
			}
			if len(notes) != tc.wantNotes {
				t.Errorf("notes = %d, want %d", len(notes), tc.wantNotes)
			}
		})
	}
}

func TestTodayFollowsUserOffset(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	if err := f.store.UpdateUserTimezone(ctx, alice, "UTC+03"); err != nil {
		t.Fatalf("UpdateUserTimezone() error = %v", err)
	}
	h := f.create(t, alice, habits.Draft{Name: "Journal", Type: database.HabitTypeBoolean})

	// 22:30 UTC on May 10 is 01:30 on May 11 in UTC+3.
	f.now = time.Date(2024, time.May, 10, 22, 30, 0, 0, time.UTC)
	if _, err := f.svc.Log(ctx, alice, h.ID, habits.Entry{}); err != nil {
		t.Fatalf("Log() error = %v", err)
	}

	want := time.Date(2024, time.May, 11, 0, 0, 0, 0, time.UTC)
	if _, err := f.store.GetLog(ctx, h.ID, want); err != nil {
		t.Errorf("log not stored on the local day: %v", err)
	}
}

func TestStreakAndStats(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	h := f.create(t, alice, habits.Draft{Name: "Walk", Type: database.HabitTypeBoolean})

	// Four days ending today, and an older run of five.
	for i := 0; i < 4; i++ {
		f.logOn(t, alice, h, f.now.AddDate(0, 0, -i), habits.Entry{})
	}
	for i := 10; i < 15; i++ {
		f.logOn(t, alice, h, f.now.AddDate(0, 0, -i), habits.Entry{})
	}

	got, err := f.svc.Streak(ctx, alice, h.ID)
	if err != nil || got != 4 {
		t.Errorf("Streak() = %d, %v, want 4", got, err)
	}

	stats, err := f.svc.Stats(ctx, alice, h.ID, 14)
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	if stats.CompletedDays != 8 || stats.TotalDays != 14 || stats.CompletionRate != 57 {
		t.Errorf("Stats() = %+v", stats.Stats)
	}
	if stats.Current != 4 || stats.Best != 5 {
		t.Errorf("Current/Best = %d/%d, want 4/5", stats.Current, stats.Best)
	}

	if _, err := f.svc.Stats(ctx, alice, h.ID, 10); !errors.Is(err, apperrors.ErrInvalidInput) {
		t.Errorf("Stats(10) error = %v, want InvalidInput", err)
	}

	list, err := f.svc.List(ctx, alice)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(list) != 1 || list[0].Streak != 4 {
		t.Errorf("List() = %+v", list)
	}
}

func TestStreakBrokenWhenTodayMissing(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	h := f.create(t, alice, habits.Draft{Name: "Walk", Type: database.HabitTypeBoolean})

	for i := 1; i <= 20; i++ {
		f.logOn(t, alice, h, f.now.AddDate(0, 0, -i), habits.Entry{})
	}
	detail, err := f.svc.Detail(context.Background(), alice, h.ID)
	if err != nil {
		t.Fatalf("Detail() error = %v", err)
	}
	if detail.Streak != 0 || detail.LoggedToday {
		t.Errorf("Detail() = streak %d logged %v, want 0 false", detail.Streak, detail.LoggedToday)
	}
}

func TestOverview(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	read := f.create(t, alice, habits.Draft{Name: "Read", Type: database.HabitTypeNumeric, Unit: "pages"})
	walk := f.create(t, alice, habits.Draft{Name: "Walk", Type: database.HabitTypeBoolean})

	f.logOn(t, alice, read, f.now, habits.Entry{Quantity: "5"})
	f.logOn(t, alice, walk, f.now, habits.Entry{})
	f.logOn(t, alice, walk, f.now.AddDate(0, 0, -6), habits.Entry{})
	f.logOn(t, alice, walk, f.now.AddDate(0, 0, -7), habits.Entry{}) // outside the window

	o, err := f.svc.Overview(ctx, alice)
	if err != nil {
		t.Fatalf("Overview() error = %v", err)
	}
	if o.Total != 2 || o.Numeric != 1 || o.Boolean != 1 {
		t.Errorf("counts = %+v", o)
	}
	if o.RecentLogs != 3 {
		t.Errorf("RecentLogs = %d, want 3", o.RecentLogs)
	}
	if want := 3.0 / 7; o.AveragePerDay != want {
		t.Errorf("AveragePerDay = %v, want %v", o.AveragePerDay, want)
	}
}

func TestDeleteCascades(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	h := f.create(t, alice, habits.Draft{Name: "Yoga", Type: database.HabitTypeBoolean, AllowNotes: true})
	f.logOn(t, alice, h, f.now, habits.Entry{Note: "good"})
	f.logOn(t, alice, h, f.now.AddDate(0, 0, -1), habits.Entry{Note: "ok"})

	deleted, err := f.svc.Delete(ctx, alice, h.ID)
	if err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if deleted.Name != "Yoga" {
		t.Errorf("deleted habit = %+v", deleted)
	}

	dates, _ := f.store.ListLogDates(ctx, h.ID)
	notes, _ := f.store.ListRecentNotes(ctx, h.ID, 20)
	if len(dates) != 0 || len(notes) != 0 {
		t.Errorf("rows left after delete: logs=%d notes=%d", len(dates), len(notes))
	}
	if _, err := f.svc.Get(ctx, alice, h.ID); !errors.Is(err, apperrors.ErrNotFound) {
		t.Errorf("Get() after delete error = %v, want NotFound", err)
	}
}

func TestRename(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	h := f.create(t, alice, habits.Draft{Name: "Read", Type: database.HabitTypeBoolean})

	if _, err := f.svc.Rename(ctx, alice, h.ID, "  "); !errors.Is(err, apperrors.ErrInvalidInput) {
		t.Errorf("Rename(blank) error = %v, want InvalidInput", err)
	}
	renamed, err := f.svc.Rename(ctx, alice, h.ID, " Read books ")
	if err != nil {
		t.Fatalf("Rename() error = %v", err)
	}
	if renamed.Name != "Read books" {
		t.Errorf("Name = %q", renamed.Name)
	}
}

func TestParseQuantity(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		in   string
		want int64
		ok   bool
	}{
		{"1", 1, true},
		{" 42\n", 42, true},
		{"007", 7, true},
		{"0", 0, false},
		{"-1", 0, false},
		{"3.0", 0, false},
		{"12 pages", 0, false},
		{"١٢", 0, false},
	}
	for _, tc := range testCases {
		got, err := habits.ParseQuantity(tc.in)
		if tc.ok != (err == nil) || got != tc.want {
			t.Errorf("ParseQuantity(%q) = %d, %v", tc.in, got, err)
		}
		if err != nil && !errors.Is(err, apperrors.ErrInvalidInput) {
			t.Errorf("ParseQuantity(%q) error %v should also match InvalidInput", tc.in, err)
		}
	}
}

func TestPending(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	read := f.create(t, alice, habits.Draft{Name: "Read", Type: database.HabitTypeBoolean})
	walk := f.create(t, alice, habits.Draft{Name: "Walk", Type: database.HabitTypeBoolean})

	f.logOn(t, alice, read, f.now, habits.Entry{})
	f.logOn(t, alice, walk, f.now.AddDate(0, 0, -1), habits.Entry{})
	f.logOn(t, alice, walk, f.now.AddDate(0, 0, -2), habits.Entry{})

	pending, err := f.svc.Pending(context.Background(), alice)
	if err != nil {
		t.Fatalf("Pending() error = %v", err)
	}
	if len(pending) != 1 || pending[0].Habit.ID != walk.ID {
		t.Fatalf("Pending() = %+v, want only Walk", pending)
	}
	if pending[0].Streak != 2 {
		t.Errorf("Streak = %d, want 2 (run ending yesterday)", pending[0].Streak)
	}
}

func TestValidateNameAndUnit(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name     string
		validate func(string) (string, error)
		input    string
		want     string
		wantMsg  string
	}{
		{"name trimmed", habits.ValidateName, "  Read  ", "Read", ""},
		{"name at limit", habits.ValidateName, strings.Repeat("я", habits.MaxNameLength), strings.Repeat("я", habits.MaxNameLength), ""},
		{"name too long", habits.ValidateName, strings.Repeat("я", habits.MaxNameLength+1), "", "longer than 100"},
		{"name blank", habits.ValidateName, " \t ", "", "cannot be empty"},
		{"unit at limit", habits.ValidateUnit, strings.Repeat("k", habits.MaxUnitLength), strings.Repeat("k", habits.MaxUnitLength), ""},
		{"unit too long", habits.ValidateUnit, strings.Repeat("k", habits.MaxUnitLength+1), "", "longer than 20"},
		{"unit blank", habits.ValidateUnit, "", "", "cannot be empty"},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, err := tc.validate(tc.input)
			if tc.wantMsg != "" {
				if !errors.Is(err, apperrors.ErrInvalidInput) || !strings.Contains(err.Error(), tc.wantMsg) {
					t.Fatalf("error = %v, want InvalidInput containing %q", err, tc.wantMsg)
				}
				return
			}
			if err != nil || got != tc.want {
				t.Errorf("got %q, %v, want %q", got, err, tc.want)
			}
		})
	}
}
