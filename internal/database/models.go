package database

import (
	"database/sql"
	"time"
)

// DateLayout is the on-disk format of a calendar day in habit_logs.date.
const DateLayout = "2006-01-02"

// HabitType distinguishes done/not-done habits from quantity-based ones.
type HabitType string

const (
	HabitTypeBoolean HabitType = "boolean"
	HabitTypeNumeric HabitType = "numeric"
)

// User is a Telegram user known to the bot. TelegramID is the external
// identity; habits reference it through Habit.UserID.
type User struct {
	ID               int64          `db:"id"`
	TelegramID       int64          `db:"telegram_id"`
	Username         sql.NullString `db:"username"`
	FullName         sql.NullString `db:"full_name"`
	RegisteredAt     time.Time      `db:"registered_at"`
	Timezone         string         `db:"timezone"`
	RemindersEnabled bool           `db:"reminders_enabled"`
	ReminderTime     string         `db:"reminder_time"`
	ReminderTaskID   sql.NullString `db:"reminder_task_id"` // handle of the pending reminder job
}

// Habit is a trackable behaviour owned by one user.
type Habit struct {
	ID          int64          `db:"id"`
	UserID      int64          `db:"user_id"`
	Name        string         `db:"name"`
	Description sql.NullString `db:"description"`
	CreatedAt   time.Time      `db:"created_at"`
	IsActive    bool           `db:"is_active"`
	AllowNotes  bool           `db:"allow_notes"`
	HabitType   HabitType      `db:"habit_type"`
	NumericUnit sql.NullString `db:"numeric_unit"`
}

// IsNumeric reports whether the habit records quantities.
func (h *Habit) IsNumeric() bool {
	return h.HabitType == HabitTypeNumeric
}

// HabitLog marks a habit as done on one calendar day. Value is set for
// numeric habits only.
type HabitLog struct {
	ID        int64         `db:"id"`
	HabitID   int64         `db:"habit_id"`
	Date      time.Time     `db:"-"`
	Completed bool          `db:"completed"`
	Value     sql.NullInt64 `db:"value"`
}

// HabitNote is free text attached to a log.
type HabitNote struct {
	ID        int64     `db:"id"`
	LogID     int64     `db:"log_id"`
	Text      string    `db:"text"`
	CreatedAt time.Time `db:"created_at"`
}

// LogEntry is a log joined with its note, as used by charts and stats.
type LogEntry struct {
	Date  time.Time
	Value sql.NullInt64
	Note  string
}

// NoteEntry is a note together with the day of the log it belongs to.
type NoteEntry struct {
	Date time.Time
	Text string
}

// HabitTypeCounts summarises a user's active habits.
type HabitTypeCounts struct {
	Total   int `db:"total"`
	Numeric int `db:"numeric_count"`
	Boolean int `db:"boolean_count"`
}

// logRow is the raw habit_logs row with the date still in DateLayout form.
type logRow struct {
	ID        int64         `db:"id"`
	HabitID   int64         `db:"habit_id"`
	Date      string        `db:"date"`
	Completed bool          `db:"completed"`
	Value     sql.NullInt64 `db:"value"`
}

type logEntryRow struct {
	Date  string         `db:"date"`
	Value sql.NullInt64  `db:"value"`
	Note  sql.NullString `db:"note"`
}

type noteEntryRow struct {
	Date string `db:"date"`
	Text string `db:"text"`
}

// FormatDate renders the calendar day of t in DateLayout.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// ParseDate parses a DateLayout day as UTC midnight.
func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, s, time.UTC)
}
