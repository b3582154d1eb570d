package notify

import (
	"context"
	"io"
	"log/slog"

	"github.com/edgard/habitbot/internal/database"
	"github.com/edgard/habitbot/internal/gemini"
	"github.com/edgard/habitbot/internal/habits"
	"github.com/edgard/habitbot/internal/sanitize"
)

const maxReminderRunes = 1000

// PendingLister returns the habits a user still has open today.
type PendingLister interface {
	Pending(ctx context.Context, userID int64) ([]habits.Summary, error)
}

// UserLookup resolves a user's display name.
type UserLookup interface {
	GetUser(ctx context.Context, telegramID int64) (*database.User, error)
}

// Composer picks the reminder text: a generated one when a writer is
// configured and the user has open habits, the static text otherwise.
type Composer struct {
	static  string
	writer  gemini.Client
	pending PendingLister
	users   UserLookup
	clean   *sanitize.Cleaner
	log     *slog.Logger
}

// NewComposer creates a composer. writer may be nil.
func NewComposer(static string, writer gemini.Client, pending PendingLister, users UserLookup, log *slog.Logger) *Composer {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Composer{
		static:  static,
		writer:  writer,
		pending: pending,
		users:   users,
		clean:   sanitize.NewCleaner(maxReminderRunes),
		log:     log.With("component", "composer"),
	}
}

// ReminderText returns the text for telegramID's reminder. It never fails.
func (c *Composer) ReminderText(ctx context.Context, telegramID int64) string {
	if c.writer == nil || c.pending == nil {
		return c.static
	}

	open, err := c.pending.Pending(ctx, telegramID)
	if err != nil {
		c.log.WarnContext(ctx, "Failed to load pending habits, using static reminder", "user_id", telegramID, "error", err)
		return c.static
	}
	if len(open) == 0 {
		return c.static
	}

	req := gemini.ReminderRequest{Pending: make([]gemini.PendingHabit, 0, len(open))}
	for _, s := range open {
		req.Pending = append(req.Pending, gemini.PendingHabit{Name: s.Habit.Name, Streak: s.Streak})
	}
	if c.users != nil {
		if user, err := c.users.GetUser(ctx, telegramID); err == nil {
			req.FirstName = user.FullName.String
		}
	}

	text, err := c.writer.ComposeReminder(ctx, req)
	if err != nil {
		c.log.WarnContext(ctx, "Generated reminder unavailable, using static reminder", "user_id", telegramID, "error", err)
		return c.static
	}
	if text = c.clean.Plain(text); text == "" {
		return c.static
	}
	return text
}
