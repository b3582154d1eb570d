// Package habits implements the habit lifecycle: creating, renaming and
// deleting habits, logging and unlogging days, and the statistics derived
// from the log history. Every operation checks that the requesting user owns
// the habit.
package habits

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/edgard/habitbot/internal/chart"
	"github.com/edgard/habitbot/internal/database"
	apperrors "github.com/edgard/habitbot/internal/errors"
	"github.com/edgard/habitbot/internal/reminders"
	"github.com/edgard/habitbot/internal/streak"
)

const (
	MaxNameLength = 100
	MaxUnitLength = 20
	// NotesLimit is how many notes the notes view shows.
	NotesLimit = 20
	// OverviewDays is the window of the overall statistics.
	OverviewDays = 7
	// SkipNote is the reply that logs a day without a note.
	SkipNote = "-"
	// DefaultUnit labels quantities of numeric habits without a unit.
	DefaultUnit = "times"
)

// StatsPeriods are the windows offered by the statistics view, in days.
var StatsPeriods = []int{7, 14, 31}

// Log results reported to the Recorder.
const (
	ResultLogged          = "logged"
	ResultAlreadyLogged   = "already_logged"
	ResultInvalidQuantity = "invalid_quantity"
	ResultUnlogged        = "unlogged"
)

// Recorder receives the outcome of log operations for metrics.
type Recorder interface {
	HabitLogged(result string)
}

type noopRecorder struct{}

func (noopRecorder) HabitLogged(string) {}

// Draft holds the answers collected by the creation flow.
type Draft struct {
	Name        string
	Description string
	Type        database.HabitType
	Unit        string
	AllowNotes  bool
}

// Entry is the payload of a log operation. Quantity is the raw user input for
// numeric habits; Note is the optional note for boolean habits.
type Entry struct {
	Quantity string
	Note     string
}

// Summary is a habit as shown in the list.
type Summary struct {
	Habit  database.Habit
	Streak int
}

// Detail is a habit as shown in its own menu.
type Detail struct {
	Habit       database.Habit
	Streak      int
	LoggedToday bool
}

// PeriodStats is the statistics view of one habit.
type PeriodStats struct {
	Habit   database.Habit
	Days    int
	Start   time.Time
	End     time.Time
	Current int
	Best    int
	streak.Stats
}

// Overview summarises all of a user's habits.
type Overview struct {
	Total         int
	Numeric       int
	Boolean       int
	RecentLogs    int
	AveragePerDay float64
}

// Deps holds the collaborators of a Service.
type Deps struct {
	Logger   *slog.Logger
	Store    database.Store
	Recorder Recorder
	Now      func() time.Time
}

// Service implements habit operations on top of the store.
type Service struct {
	store    database.Store
	recorder Recorder
	now      func() time.Time
	logger   *slog.Logger
}

// NewService creates a habit service.
func NewService(deps Deps) *Service {
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
	return &Service{
		store:    deps.Store,
		recorder: recorder,
		now:      now,
		logger:   logger.With("component", "habits"),
	}
}

// Register records the user on first contact and refreshes their display
// names afterwards.
func (s *Service) Register(ctx context.Context, user *database.User) (*database.User, error) {
	return s.store.UpsertUser(ctx, user)
}

// Today returns the user's current calendar day.
func (s *Service) Today(ctx context.Context, userID int64) time.Time {
	tz := "UTC"
	user, err := s.store.GetUser(ctx, userID)
	if err == nil {
		tz = user.Timezone
	} else if !errors.Is(err, apperrors.ErrNotFound) {
		s.logger.WarnContext(ctx, "Falling back to UTC for today", "user_id", userID, "error", err)
	}
	return reminders.Today(s.now(), tz)
}

var validate = validator.New()

// checkText requires a non-empty value of at most maxLen runes.
func checkText(value, what string, maxLen int) error {
	err := validate.Var(value, fmt.Sprintf("required,max=%d", maxLen))
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 && verrs[0].Tag() == "max" {
		return apperrors.InvalidInput("%s is longer than %d characters", what, maxLen)
	}
	return apperrors.InvalidInput("%s cannot be empty", what)
}

// ValidateName trims and checks a habit name.
func ValidateName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if err := checkText(name, "habit name", MaxNameLength); err != nil {
		return "", err
	}
	return name, nil
}

// ValidateUnit trims and checks a numeric unit.
func ValidateUnit(unit string) (string, error) {
	unit = strings.TrimSpace(unit)
	if err := checkText(unit, "unit", MaxUnitLength); err != nil {
		return "", err
	}
	return unit, nil
}

// ParseQuantity accepts a positive base-10 integer, surrounding spaces
// allowed.
func ParseQuantity(text string) (int64, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return 0, apperrors.InvalidQuantity("quantity is empty")
	}
	for _, r := range text {
		if r < '0' || r > '9' {
			return 0, apperrors.InvalidQuantity("quantity %q is not a whole number", text)
		}
	}
	n, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return 0, apperrors.InvalidQuantity("quantity %q is too large", text)
	}
	if n <= 0 {
		return 0, apperrors.InvalidQuantity("quantity must be positive")
	}
	return n, nil
}

// Unit returns the label for quantities of h.
func Unit(h *database.Habit) string {
	if h.NumericUnit.Valid && h.NumericUnit.String != "" {
		return h.NumericUnit.String
	}
	return DefaultUnit
}

// Create validates d and stores a new habit for userID.
func (s *Service) Create(ctx context.Context, userID int64, d Draft) (*database.Habit, error) {
	name, err := ValidateName(d.Name)
	if err != nil {
		return nil, err
	}

	habit := &database.Habit{
		UserID:    userID,
		Name:      name,
		IsActive:  true,
		HabitType: d.Type,
		CreatedAt: s.now().UTC(),
	}
	if desc := strings.TrimSpace(d.Description); desc != "" {
		habit.Description = sql.NullString{String: desc, Valid: true}
	}

	switch d.Type {
	case database.HabitTypeNumeric:
		unit, err := ValidateUnit(d.Unit)
		if err != nil {
			return nil, err
		}
		habit.NumericUnit = sql.NullString{String: unit, Valid: true}
	case database.HabitTypeBoolean:
		habit.AllowNotes = d.AllowNotes
	default:
		return nil, apperrors.InvalidInput("unknown habit type %q", d.Type)
	}

	if err := s.store.CreateHabit(ctx, habit); err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "Habit created", "user_id", userID, "habit_id", habit.ID, "habit_type", habit.HabitType)
	return habit, nil
}

// Get returns an active habit owned by userID.
func (s *Service) Get(ctx context.Context, userID, habitID int64) (*database.Habit, error) {
	habit, err := s.store.GetHabit(ctx, habitID)
	if err != nil {
		return nil, err
	}
	if habit.UserID != userID {
		s.logger.WarnContext(ctx, "Rejected access to foreign habit", "user_id", userID, "habit_id", habitID)
		return nil, apperrors.Forbidden("habit %d does not belong to user %d", habitID, userID)
	}
	if !habit.IsActive {
		return nil, apperrors.NotFound("habit %d is not active", habitID)
	}
	return habit, nil
}

// List returns the user's active habits with their current streaks.
func (s *Service) List(ctx context.Context, userID int64) ([]Summary, error) {
	habits, err := s.store.ListActiveHabits(ctx, userID)
	if err != nil {
		return nil, err
	}
	today := s.Today(ctx, userID)

	out := make([]Summary, 0, len(habits))
	for _, h := range habits {
		dates, err := s.store.ListLogDates(ctx, h.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, Summary{Habit: h, Streak: streak.Current(dates, today)})
	}
	return out, nil
}

// Pending returns the active habits that have no log for today, with the
// streak they would extend.
func (s *Service) Pending(ctx context.Context, userID int64) ([]Summary, error) {
	habits, err := s.store.ListActiveHabits(ctx, userID)
	if err != nil {
		return nil, err
	}
	today := s.Today(ctx, userID)
	yesterday := today.AddDate(0, 0, -1)

	var out []Summary
	for _, h := range habits {
		dates, err := s.store.ListLogDates(ctx, h.ID)
		if err != nil {
			return nil, err
		}
		if containsDay(dates, today) {
			continue
		}
		out = append(out, Summary{Habit: h, Streak: streak.Current(dates, yesterday)})
	}
	return out, nil
}

func containsDay(dates []time.Time, day time.Time) bool {
	for _, d := range dates {
		if d.Equal(day) {
			return true
		}
	}
	return false
}

// Detail returns a habit with its current streak and today's status.
func (s *Service) Detail(ctx context.Context, userID, habitID int64) (*Detail, error) {
	habit, err := s.Get(ctx, userID, habitID)
	if err != nil {
		return nil, err
	}
	dates, err := s.store.ListLogDates(ctx, habitID)
	if err != nil {
		return nil, err
	}
	today := s.Today(ctx, userID)

	return &Detail{Habit: *habit, Streak: streak.Current(dates, today), LoggedToday: containsDay(dates, today)}, nil
}

// Rename changes the name of a habit owned by userID.
func (s *Service) Rename(ctx context.Context, userID, habitID int64, name string) (*database.Habit, error) {
	name, err := ValidateName(name)
	if err != nil {
		return nil, err
	}
	habit, err := s.Get(ctx, userID, habitID)
	if err != nil {
		return nil, err
	}
	if err := s.store.RenameHabit(ctx, habitID, name); err != nil {
		return nil, err
	}
	habit.Name = name
	return habit, nil
}

// Delete removes a habit with all its logs and notes.
func (s *Service) Delete(ctx context.Context, userID, habitID int64) (*database.Habit, error) {
	habit, err := s.Get(ctx, userID, habitID)
	if err != nil {
		return nil, err
	}
	if err := s.store.DeleteHabitCascade(ctx, habitID); err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "Habit deleted", "user_id", userID, "habit_id", habitID)
	return habit, nil
}

// Log marks today as done. Numeric habits need a valid quantity in e; on
// invalid input nothing is written.
func (s *Service) Log(ctx context.Context, userID, habitID int64, e Entry) (*database.HabitLog, error) {
	habit, err := s.Get(ctx, userID, habitID)
	if err != nil {
		return nil, err
	}

	entry := &database.HabitLog{HabitID: habitID, Date: s.Today(ctx, userID)}
	note := ""
	if habit.IsNumeric() {
		qty, err := ParseQuantity(e.Quantity)
		if err != nil {
			s.recorder.HabitLogged(ResultInvalidQuantity)
			return nil, err
		}
		entry.Value = sql.NullInt64{Int64: qty, Valid: true}
		note = fmt.Sprintf("%d %s", qty, Unit(habit))
	} else if habit.AllowNotes {
		note = strings.TrimSpace(e.Note)
		if note == SkipNote {
			note = ""
		}
	}

	if err := s.store.InsertLog(ctx, entry, note); err != nil {
		if errors.Is(err, apperrors.ErrAlreadyLogged) {
			s.recorder.HabitLogged(ResultAlreadyLogged)
		}
		return nil, err
	}
	s.recorder.HabitLogged(ResultLogged)
	return entry, nil
}

// Unlog removes today's log and its note.
func (s *Service) Unlog(ctx context.Context, userID, habitID int64) error {
	if _, err := s.Get(ctx, userID, habitID); err != nil {
		return err
	}
	if err := s.store.DeleteLogCascade(ctx, habitID, s.Today(ctx, userID)); err != nil {
		return err
	}
	s.recorder.HabitLogged(ResultUnlogged)
	return nil
}

// IsLoggedToday reports whether the habit has a log for the user's today.
func (s *Service) IsLoggedToday(ctx context.Context, userID, habitID int64) (bool, error) {
	if _, err := s.Get(ctx, userID, habitID); err != nil {
		return false, err
	}
	_, err := s.store.GetLog(ctx, habitID, s.Today(ctx, userID))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, apperrors.ErrNotFound):
		return false, nil
	default:
		return false, err
	}
}

// Streak returns the current streak of a habit.
func (s *Service) Streak(ctx context.Context, userID, habitID int64) (int, error) {
	if _, err := s.Get(ctx, userID, habitID); err != nil {
		return 0, err
	}
	dates, err := s.store.ListLogDates(ctx, habitID)
	if err != nil {
		return 0, err
	}
	return streak.Current(dates, s.Today(ctx, userID)), nil
}

// ValidPeriod reports whether days is one of StatsPeriods.
func ValidPeriod(days int) bool {
	for _, p := range StatsPeriods {
		if p == days {
			return true
		}
	}
	return false
}

// Stats computes completion over the last days days, today included.
func (s *Service) Stats(ctx context.Context, userID, habitID int64, days int) (*PeriodStats, error) {
	if !ValidPeriod(days) {
		return nil, apperrors.InvalidInput("unsupported statistics period %d", days)
	}
	habit, err := s.Get(ctx, userID, habitID)
	if err != nil {
		return nil, err
	}
	dates, err := s.store.ListLogDates(ctx, habitID)
	if err != nil {
		return nil, err
	}

	end := s.Today(ctx, userID)
	start := end.AddDate(0, 0, -(days - 1))
	return &PeriodStats{
		Habit:   *habit,
		Days:    days,
		Start:   start,
		End:     end,
		Current: streak.Current(dates, end),
		Best:    streak.Best(dates),
		Stats:   streak.Period(dates, start, end),
	}, nil
}

// Overview computes the overall statistics of a user.
func (s *Service) Overview(ctx context.Context, userID int64) (*Overview, error) {
	counts, err := s.store.CountHabitsByType(ctx, userID)
	if err != nil {
		return nil, err
	}
	since := s.Today(ctx, userID).AddDate(0, 0, -(OverviewDays - 1))
	recent, err := s.store.CountLogsSince(ctx, userID, since)
	if err != nil {
		return nil, err
	}
	return &Overview{
		Total:         counts.Total,
		Numeric:       counts.Numeric,
		Boolean:       counts.Boolean,
		RecentLogs:    recent,
		AveragePerDay: float64(recent) / OverviewDays,
	}, nil
}

// Notes returns the latest notes of a habit, newest first.
func (s *Service) Notes(ctx context.Context, userID, habitID int64) (*database.Habit, []database.NoteEntry, error) {
	habit, err := s.Get(ctx, userID, habitID)
	if err != nil {
		return nil, nil, err
	}
	notes, err := s.store.ListRecentNotes(ctx, habitID, NotesLimit)
	if err != nil {
		return nil, nil, err
	}
	return habit, notes, nil
}

// ChartSeries builds the chart of a habit for the last days days.
func (s *Service) ChartSeries(ctx context.Context, userID, habitID int64, days int) (*chart.Spec, error) {
	if !ValidPeriod(days) {
		return nil, apperrors.InvalidInput("unsupported chart period %d", days)
	}
	habit, err := s.Get(ctx, userID, habitID)
	if err != nil {
		return nil, err
	}

	end := s.Today(ctx, userID)
	logs, err := s.store.ListLogsInRange(ctx, habitID, end.AddDate(0, 0, -(days-1)), end)
	if err != nil {
		return nil, err
	}

	spec := &chart.Spec{
		Title:     habit.Name,
		HabitType: habit.HabitType,
		Points:    chart.BuildSeries(habit.HabitType, days, end, logs),
	}
	if habit.IsNumeric() {
		spec.Unit = Unit(habit)
	}
	return spec, nil
}
