package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	apperrors "github.com/edgard/habitbot/internal/errors"
)

// Store defines the interface for database operations.
// Methods accept context.Context for cancellation and timeouts.
type Store interface {
	// Ping checks the database connection.
	Ping(ctx context.Context) error

	// RunSQLMaintenance performs database maintenance tasks like VACUUM.
	RunSQLMaintenance(ctx context.Context) error

	// UpsertUser registers a user on first contact and refreshes the display
	// fields on later contacts. Preferences are never overwritten.
	UpsertUser(ctx context.Context, user *User) (*User, error)

	// GetUser returns the user with the given Telegram ID or a NotFound error.
	GetUser(ctx context.Context, telegramID int64) (*User, error)

	// ListReminderUsers returns all users with reminders enabled.
	ListReminderUsers(ctx context.Context) ([]User, error)

	UpdateUserTimezone(ctx context.Context, telegramID int64, timezone string) error
	UpdateReminderTime(ctx context.Context, telegramID int64, reminderTime string) error
	SetRemindersEnabled(ctx context.Context, telegramID int64, enabled bool) error

	// SetReminderTaskID stores the pending reminder job handle. An empty
	// taskID clears it.
	SetReminderTaskID(ctx context.Context, telegramID int64, taskID string) error

	CreateHabit(ctx context.Context, habit *Habit) error
	GetHabit(ctx context.Context, habitID int64) (*Habit, error)
	ListActiveHabits(ctx context.Context, userID int64) ([]Habit, error)
	RenameHabit(ctx context.Context, habitID int64, name string) error

	// DeleteHabitCascade deletes the habit's notes, logs and the habit itself
	// in one transaction.
	DeleteHabitCascade(ctx context.Context, habitID int64) error

	CountHabitsByType(ctx context.Context, userID int64) (HabitTypeCounts, error)

	// InsertLog inserts a log and, when note is non-empty, its note in one
	// transaction. A second log for the same habit and day fails with
	// AlreadyLogged.
	InsertLog(ctx context.Context, log *HabitLog, note string) error

	GetLog(ctx context.Context, habitID int64, date time.Time) (*HabitLog, error)

	// DeleteLogCascade deletes the log for the day and its notes, or returns
	// NotFound when the day has no log.
	DeleteLogCascade(ctx context.Context, habitID int64, date time.Time) error

	// ListLogDates returns all logged days of a habit, newest first.
	ListLogDates(ctx context.Context, habitID int64) ([]time.Time, error)

	// ListLogsInRange returns logs with their notes for from..to inclusive, oldest first.
	ListLogsInRange(ctx context.Context, habitID int64, from, to time.Time) ([]LogEntry, error)

	// CountLogsSince counts logs of the user's active habits on or after since.
	CountLogsSince(ctx context.Context, userID int64, since time.Time) (int, error)

	// ListRecentNotes returns the newest notes of a habit.
	ListRecentNotes(ctx context.Context, habitID int64, limit int) ([]NoteEntry, error)
}

// sqlxStore provides an implementation of the Store interface using sqlx.
type sqlxStore struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewStore creates a new Store implementation backed by sqlx.
// It requires a connected sqlx.DB instance and a logger.
func NewStore(db *sqlx.DB, logger *slog.Logger) Store {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &sqlxStore{
		db:     db,
		logger: logger.With("component", "store"),
	}
}

// Ping checks the database connection.
func (s *sqlxStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// fail logs err and converts it into the error returned to callers.
// Context errors pass through untouched so callers can match them.
func (s *sqlxStore) fail(ctx context.Context, op string, err error, attrs ...any) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		s.logger.WarnContext(ctx, "Context timeout or cancellation during "+op, append(attrs, "error", err)...)
		return err
	}
	s.logger.ErrorContext(ctx, "Database operation failed: "+op, append(attrs, "error", err)...)
	return apperrors.Storage("failed to "+op, err)
}

// withTx runs fn inside a transaction, rolling back on error.
func (s *sqlxStore) withTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if tx != nil {
			if rollbackErr := tx.Rollback(); rollbackErr != nil && !errors.Is(rollbackErr, sql.ErrTxDone) {
				s.logger.WarnContext(ctx, "Error rolling back transaction", "error", rollbackErr)
			}
		}
	}()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	// Successfully committed, set tx to nil to avoid rollback
	tx = nil
	return nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) && sqliteErr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE {
		return true
	}
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// RunSQLMaintenance executes a VACUUM command on the SQLite database.
func (s *sqlxStore) RunSQLMaintenance(ctx context.Context) error {
	if ctx.Err() != nil {
		s.logger.WarnContext(ctx, "Context cancelled or timed out before starting VACUUM", "error", ctx.Err())
		return ctx.Err()
	}

	s.logger.InfoContext(ctx, "Starting database maintenance (VACUUM)...")

	// VACUUM must run outside a transaction in SQLite.
	if _, err := s.db.ExecContext(ctx, "VACUUM;"); err != nil {
		return s.fail(ctx, "run VACUUM", err)
	}

	s.logger.InfoContext(ctx, "Database maintenance (VACUUM) completed successfully")
	return nil
}

// --- Users ---

func (s *sqlxStore) UpsertUser(ctx context.Context, user *User) (*User, error) {
	if user == nil {
		return nil, fmt.Errorf("cannot upsert nil user")
	}
	if user.TelegramID == 0 {
		return nil, fmt.Errorf("user must have a non-zero telegram_id")
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	if user.RegisteredAt.IsZero() {
		user.RegisteredAt = time.Now().UTC()
	}
	if user.Timezone == "" {
		user.Timezone = "UTC"
	}
	if user.ReminderTime == "" {
		user.ReminderTime = "09:00"
	}

	query := `
        INSERT INTO users (telegram_id, username, full_name, registered_at, timezone, reminders_enabled, reminder_time)
        VALUES (:telegram_id, :username, :full_name, :registered_at, :timezone, :reminders_enabled, :reminder_time)
        ON CONFLICT (telegram_id) DO UPDATE SET
            username = excluded.username,
            full_name = excluded.full_name;
    `
	if _, err := s.db.NamedExecContext(ctx, query, user); err != nil {
		return nil, s.fail(ctx, "upsert user", err, "telegram_id", user.TelegramID)
	}

	s.logger.DebugContext(ctx, "User upserted", "telegram_id", user.TelegramID)
	return s.GetUser(ctx, user.TelegramID)
}

func (s *sqlxStore) GetUser(ctx context.Context, telegramID int64) (*User, error) {
	if telegramID == 0 {
		return nil, fmt.Errorf("telegram_id cannot be zero")
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	var user User
	query := `SELECT id, telegram_id, username, full_name, registered_at, timezone,
	                 reminders_enabled, reminder_time, reminder_task_id
	          FROM users WHERE telegram_id = ?`

	err := s.db.GetContext(ctx, &user, query, telegramID)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, apperrors.NotFound("user %d not found", telegramID)
	case err != nil:
		return nil, s.fail(ctx, "get user", err, "telegram_id", telegramID)
	}

	return &user, nil
}

func (s *sqlxStore) ListReminderUsers(ctx context.Context) ([]User, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	var users []User
	query := `SELECT id, telegram_id, username, full_name, registered_at, timezone,
	                 reminders_enabled, reminder_time, reminder_task_id
	          FROM users WHERE reminders_enabled = 1 ORDER BY telegram_id`

	if err := s.db.SelectContext(ctx, &users, query); err != nil {
		return nil, s.fail(ctx, "list reminder users", err)
	}

	s.logger.DebugContext(ctx, "Fetched users with reminders enabled", "count", len(users))
	return users, nil
}

// updateUser runs a single-row UPDATE on users and reports NotFound when no
// row matched.
func (s *sqlxStore) updateUser(ctx context.Context, op string, telegramID int64, query string, args ...any) error {
	if telegramID == 0 {
		return fmt.Errorf("telegram_id cannot be zero")
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}

	result, err := s.db.ExecContext(ctx, query, append(args, telegramID)...)
	if err != nil {
		return s.fail(ctx, op, err, "telegram_id", telegramID)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return apperrors.NotFound("user %d not found", telegramID)
	}

	s.logger.DebugContext(ctx, "User updated", "operation", op, "telegram_id", telegramID)
	return nil
}

func (s *sqlxStore) UpdateUserTimezone(ctx context.Context, telegramID int64, timezone string) error {
	return s.updateUser(ctx, "update timezone", telegramID,
		`UPDATE users SET timezone = ? WHERE telegram_id = ?`, timezone)
}

func (s *sqlxStore) UpdateReminderTime(ctx context.Context, telegramID int64, reminderTime string) error {
	return s.updateUser(ctx, "update reminder time", telegramID,
		`UPDATE users SET reminder_time = ? WHERE telegram_id = ?`, reminderTime)
}

func (s *sqlxStore) SetRemindersEnabled(ctx context.Context, telegramID int64, enabled bool) error {
	return s.updateUser(ctx, "toggle reminders", telegramID,
		`UPDATE users SET reminders_enabled = ? WHERE telegram_id = ?`, enabled)
}

func (s *sqlxStore) SetReminderTaskID(ctx context.Context, telegramID int64, taskID string) error {
	return s.updateUser(ctx, "set reminder task", telegramID,
		`UPDATE users SET reminder_task_id = ? WHERE telegram_id = ?`,
		sql.NullString{String: taskID, Valid: taskID != ""})
}

// --- Habits ---

func (s *sqlxStore) CreateHabit(ctx context.Context, habit *Habit) error {
	if habit == nil {
		return fmt.Errorf("cannot create nil habit")
	}
	if habit.UserID == 0 {
		return fmt.Errorf("habit must have a non-zero user_id")
	}
	if habit.Name == "" {
		return fmt.Errorf("habit must have a non-empty name")
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}

	if habit.CreatedAt.IsZero() {
		habit.CreatedAt = time.Now().UTC()
	}
	if habit.HabitType == "" {
		habit.HabitType = HabitTypeBoolean
	}

	query := `
        INSERT INTO habits (user_id, name, description, created_at, is_active, allow_notes, habit_type, numeric_unit)
        VALUES (:user_id, :name, :description, :created_at, :is_active, :allow_notes, :habit_type, :numeric_unit);
    `
	result, err := s.db.NamedExecContext(ctx, query, habit)
	if err != nil {
		return s.fail(ctx, "create habit", err, "user_id", habit.UserID)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return s.fail(ctx, "read habit id", err, "user_id", habit.UserID)
	}
	habit.ID = id

	s.logger.DebugContext(ctx, "Habit created", "user_id", habit.UserID, "habit_id", habit.ID, "habit_type", habit.HabitType)
	return nil
}

func (s *sqlxStore) GetHabit(ctx context.Context, habitID int64) (*Habit, error) {
	if habitID == 0 {
		return nil, fmt.Errorf("habit_id cannot be zero")
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	var habit Habit
	query := `SELECT id, user_id, name, description, created_at, is_active, allow_notes, habit_type, numeric_unit
	          FROM habits WHERE id = ?`

	err := s.db.GetContext(ctx, &habit, query, habitID)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, apperrors.NotFound("habit %d not found", habitID)
	case err != nil:
		return nil, s.fail(ctx, "get habit", err, "habit_id", habitID)
	}

	return &habit, nil
}

func (s *sqlxStore) ListActiveHabits(ctx context.Context, userID int64) ([]Habit, error) {
	if userID == 0 {
		return nil, fmt.Errorf("user_id cannot be zero")
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	var habits []Habit
	query := `SELECT id, user_id, name, description, created_at, is_active, allow_notes, habit_type, numeric_unit
	          FROM habits WHERE user_id = ? AND is_active = 1 ORDER BY id`

	if err := s.db.SelectContext(ctx, &habits, query, userID); err != nil {
		return nil, s.fail(ctx, "list habits", err, "user_id", userID)
	}

	s.logger.DebugContext(ctx, "Fetched active habits", "user_id", userID, "count", len(habits))
	return habits, nil
}

func (s *sqlxStore) RenameHabit(ctx context.Context, habitID int64, name string) error {
	if habitID == 0 {
		return fmt.Errorf("habit_id cannot be zero")
	}
	if name == "" {
		return fmt.Errorf("habit name cannot be empty")
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}

	result, err := s.db.ExecContext(ctx, `UPDATE habits SET name = ? WHERE id = ?`, name, habitID)
	if err != nil {
		return s.fail(ctx, "rename habit", err, "habit_id", habitID)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return apperrors.NotFound("habit %d not found", habitID)
	}

	s.logger.DebugContext(ctx, "Habit renamed", "habit_id", habitID)
	return nil
}

func (s *sqlxStore) DeleteHabitCascade(ctx context.Context, habitID int64) error {
	if habitID == 0 {
		return fmt.Errorf("habit_id cannot be zero")
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}

	var notesDeleted, logsDeleted int64
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx,
			`DELETE FROM habit_notes WHERE log_id IN (SELECT id FROM habit_logs WHERE habit_id = ?)`, habitID)
		if err != nil {
			return err
		}
		notesDeleted, _ = res.RowsAffected()

		res, err = tx.ExecContext(ctx, `DELETE FROM habit_logs WHERE habit_id = ?`, habitID)
		if err != nil {
			return err
		}
		logsDeleted, _ = res.RowsAffected()

		res, err = tx.ExecContext(ctx, `DELETE FROM habits WHERE id = ?`, habitID)
		if err != nil {
			return err
		}
		if affected, err := res.RowsAffected(); err == nil && affected == 0 {
			return apperrors.NotFound("habit %d not found", habitID)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return err
		}
		return s.fail(ctx, "delete habit", err, "habit_id", habitID)
	}

	s.logger.InfoContext(ctx, "Habit deleted with its history",
		"habit_id", habitID, "logs_deleted", logsDeleted, "notes_deleted", notesDeleted)
	return nil
}

func (s *sqlxStore) CountHabitsByType(ctx context.Context, userID int64) (HabitTypeCounts, error) {
	var counts HabitTypeCounts
	if userID == 0 {
		return counts, fmt.Errorf("user_id cannot be zero")
	}
	if ctx.Err() != nil {
		return counts, ctx.Err()
	}

	query := `SELECT COUNT(*) AS total,
	                 COALESCE(SUM(CASE WHEN habit_type = 'numeric' THEN 1 ELSE 0 END), 0) AS numeric_count,
	                 COALESCE(SUM(CASE WHEN habit_type = 'boolean' THEN 1 ELSE 0 END), 0) AS boolean_count
	          FROM habits WHERE user_id = ? AND is_active = 1`

	if err := s.db.GetContext(ctx, &counts, query, userID); err != nil {
		return counts, s.fail(ctx, "count habits", err, "user_id", userID)
	}
	return counts, nil
}

// --- Logs and notes ---

func (s *sqlxStore) InsertLog(ctx context.Context, log *HabitLog, note string) error {
	if log == nil {
		return fmt.Errorf("cannot insert nil log")
	}
	if log.HabitID == 0 {
		return fmt.Errorf("log must have a non-zero habit_id")
	}
	if log.Date.IsZero() {
		return fmt.Errorf("log must have a date")
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}

	day := FormatDate(log.Date)
	log.Completed = true

	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO habit_logs (habit_id, date, completed, value) VALUES (?, ?, ?, ?)`,
			log.HabitID, day, log.Completed, log.Value)
		if err != nil {
			if isUniqueViolation(err) {
				return apperrors.AlreadyLogged("habit %d already logged on %s", log.HabitID, day)
			}
			return err
		}

		id, err := res.LastInsertId()
		if err != nil {
			return err
		}
		log.ID = id

		if note == "" {
			return nil
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO habit_notes (log_id, text, created_at) VALUES (?, ?, ?)`,
			log.ID, note, time.Now().UTC())
		return err
	})
	if err != nil {
		if errors.Is(err, apperrors.ErrAlreadyLogged) {
			s.logger.DebugContext(ctx, "Duplicate log rejected", "habit_id", log.HabitID, "date", day)
			return err
		}
		return s.fail(ctx, "insert log", err, "habit_id", log.HabitID, "date", day)
	}

	s.logger.DebugContext(ctx, "Log inserted", "habit_id", log.HabitID, "date", day, "log_id", log.ID, "with_note", note != "")
	return nil
}

func (s *sqlxStore) GetLog(ctx context.Context, habitID int64, date time.Time) (*HabitLog, error) {
	if habitID == 0 {
		return nil, fmt.Errorf("habit_id cannot be zero")
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	day := FormatDate(date)
	var row logRow
	err := s.db.GetContext(ctx, &row,
		`SELECT id, habit_id, date, completed, value FROM habit_logs WHERE habit_id = ? AND date = ?`, habitID, day)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, apperrors.NotFound("habit %d has no log on %s", habitID, day)
	case err != nil:
		return nil, s.fail(ctx, "get log", err, "habit_id", habitID, "date", day)
	}

	parsed, err := ParseDate(row.Date)
	if err != nil {
		return nil, s.fail(ctx, "parse log date", err, "habit_id", habitID, "date", row.Date)
	}
	return &HabitLog{ID: row.ID, HabitID: row.HabitID, Date: parsed, Completed: row.Completed, Value: row.Value}, nil
}

func (s *sqlxStore) DeleteLogCascade(ctx context.Context, habitID int64, date time.Time) error {
	if habitID == 0 {
		return fmt.Errorf("habit_id cannot be zero")
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}

	day := FormatDate(date)
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		var logID int64
		err := tx.GetContext(ctx, &logID, `SELECT id FROM habit_logs WHERE habit_id = ? AND date = ?`, habitID, day)
		if errors.Is(err, sql.ErrNoRows) {
			return apperrors.NotFound("habit %d has no log on %s", habitID, day)
		}
		if err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM habit_notes WHERE log_id = ?`, logID); err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `DELETE FROM habit_logs WHERE id = ?`, logID)
		return err
	})
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return err
		}
		return s.fail(ctx, "delete log", err, "habit_id", habitID, "date", day)
	}

	s.logger.DebugContext(ctx, "Log deleted", "habit_id", habitID, "date", day)
	return nil
}

func (s *sqlxStore) ListLogDates(ctx context.Context, habitID int64) ([]time.Time, error) {
	if habitID == 0 {
		return nil, fmt.Errorf("habit_id cannot be zero")
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	var raw []string
	err := s.db.SelectContext(ctx, &raw,
		`SELECT date FROM habit_logs WHERE habit_id = ? AND completed = 1 ORDER BY date DESC`, habitID)
	if err != nil {
		return nil, s.fail(ctx, "list log dates", err, "habit_id", habitID)
	}

	dates := make([]time.Time, 0, len(raw))
	for _, r := range raw {
		d, err := ParseDate(r)
		if err != nil {
			s.logger.WarnContext(ctx, "Skipping log with malformed date", "habit_id", habitID, "date", r, "error", err)
			continue
		}
		dates = append(dates, d)
	}
	return dates, nil
}

func (s *sqlxStore) ListLogsInRange(ctx context.Context, habitID int64, from, to time.Time) ([]LogEntry, error) {
	if habitID == 0 {
		return nil, fmt.Errorf("habit_id cannot be zero")
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	var rows []logEntryRow
	query := `SELECT l.date AS date, l.value AS value,
	                 (SELECT n.text FROM habit_notes n WHERE n.log_id = l.id ORDER BY n.id LIMIT 1) AS note
	          FROM habit_logs l
	          WHERE l.habit_id = ? AND l.completed = 1 AND l.date BETWEEN ? AND ?
	          ORDER BY l.date`

	if err := s.db.SelectContext(ctx, &rows, query, habitID, FormatDate(from), FormatDate(to)); err != nil {
		return nil, s.fail(ctx, "list logs in range", err, "habit_id", habitID)
	}

	entries := make([]LogEntry, 0, len(rows))
	for _, r := range rows {
		d, err := ParseDate(r.Date)
		if err != nil {
			s.logger.WarnContext(ctx, "Skipping log with malformed date", "habit_id", habitID, "date", r.Date, "error", err)
			continue
		}
		entries = append(entries, LogEntry{Date: d, Value: r.Value, Note: r.Note.String})
	}
	return entries, nil
}

func (s *sqlxStore) CountLogsSince(ctx context.Context, userID int64, since time.Time) (int, error) {
	if userID == 0 {
		return 0, fmt.Errorf("user_id cannot be zero")
	}
	if ctx.Err() != nil {
		return 0, ctx.Err()
	}

	var count int
	query := `SELECT COUNT(l.id)
	          FROM habit_logs l JOIN habits h ON h.id = l.habit_id
	          WHERE h.user_id = ? AND h.is_active = 1 AND l.date >= ?`

	if err := s.db.GetContext(ctx, &count, query, userID, FormatDate(since)); err != nil {
		return 0, s.fail(ctx, "count logs", err, "user_id", userID)
	}
	return count, nil
}

func (s *sqlxStore) ListRecentNotes(ctx context.Context, habitID int64, limit int) ([]NoteEntry, error) {
	if habitID == 0 {
		return nil, fmt.Errorf("habit_id cannot be zero")
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	var rows []noteEntryRow
	query := `SELECT l.date AS date, n.text AS text
	          FROM habit_notes n JOIN habit_logs l ON l.id = n.log_id
	          WHERE l.habit_id = ?
	          ORDER BY l.date DESC, n.id DESC
	          LIMIT ?`

	if err := s.db.SelectContext(ctx, &rows, query, habitID, limit); err != nil {
		return nil, s.fail(ctx, "list notes", err, "habit_id", habitID)
	}

	notes := make([]NoteEntry, 0, len(rows))
	for _, r := range rows {
		d, err := ParseDate(r.Date)
		if err != nil {
			continue
		}
		notes = append(notes, NoteEntry{Date: d, Text: r.Text})
	}
	return notes, nil
}
