// Package handlers contains the Telegram command, menu, callback and
// free-text handlers of the habit bot, along with their registration.
package handlers

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/habitbot/internal/database"
	apperrors "github.com/edgard/habitbot/internal/errors"
	"github.com/edgard/habitbot/internal/reminders"
)

// EnsureUser registers the sender of every update on first contact, so
// handlers can rely on the user row existing.
func EnsureUser(deps HandlerDeps) tgbot.Middleware {
	return func(next tgbot.HandlerFunc) tgbot.HandlerFunc {
		return func(ctx context.Context, bot *tgbot.Bot, update *models.Update) {
			if from := sender(update); from != nil {
				if err := ensureUser(ctx, deps, from); err != nil {
					deps.Logger.With("middleware", "EnsureUser").ErrorContext(ctx,
						"Failed to register user", "error", err, "user_id", from.ID)
				}
			}
			next(ctx, bot, update)
		}
	}
}

func ensureUser(ctx context.Context, deps HandlerDeps, from *models.User) error {
	_, err := deps.Store.GetUser(ctx, from.ID)
	if err == nil || !errors.Is(err, apperrors.ErrNotFound) {
		return err
	}
	_, err = deps.Habits.Register(ctx, newUser(deps, from))
	return err
}

// newUser builds the user row for a Telegram account with the configured
// reminder defaults.
func newUser(deps HandlerDeps, from *models.User) *database.User {
	u := &database.User{TelegramID: from.ID}
	if from.Username != "" {
		u.Username = sql.NullString{String: from.Username, Valid: true}
	}
	if name := strings.TrimSpace(from.FirstName + " " + from.LastName); name != "" {
		u.FullName = sql.NullString{String: name, Valid: true}
	}
	if deps.Config != nil {
		if tz, err := reminders.NormalizeOffset(deps.Config.Reminders.DefaultTimezone); err == nil {
			u.Timezone = tz
		}
		if clock, err := reminders.NormalizeClock(deps.Config.Reminders.DefaultTime); err == nil {
			u.ReminderTime = clock
		}
	}
	return u
}

func sender(update *models.Update) *models.User {
	switch {
	case update.Message != nil:
		return update.Message.From
	case update.CallbackQuery != nil:
		return &update.CallbackQuery.From
	default:
		return nil
	}
}
