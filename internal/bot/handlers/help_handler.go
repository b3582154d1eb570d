package handlers

import (
	"context"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// NewHelpHandler returns a handler for /help.
func NewHelpHandler(deps HandlerDeps) bot.HandlerFunc {
	return newCommandHandler(deps, "help", flow.help)
}

// NewNewHabitHandler returns a handler for /new.
func NewNewHabitHandler(deps HandlerDeps) bot.HandlerFunc {
	return newCommandHandler(deps, "new", flow.newHabit)
}

// NewListHandler returns a handler for /list.
func NewListHandler(deps HandlerDeps) bot.HandlerFunc {
	return newCommandHandler(deps, "list", flow.list)
}

// NewSettingsHandler returns a handler for /settings.
func NewSettingsHandler(deps HandlerDeps) bot.HandlerFunc {
	return newCommandHandler(deps, "settings", flow.settings)
}

// newCommandHandler wraps a screen as a command. Commands abandon any dialog
// in progress.
func newCommandHandler(deps HandlerDeps, name string, run func(flow, context.Context, chat)) bot.HandlerFunc {
	f := newFlow(deps, name)
	return func(ctx context.Context, b *bot.Bot, update *models.Update) {
		if update.Message == nil || update.Message.From == nil {
			f.log.WarnContext(ctx, "Command handler received update with nil message or sender", "update_id", update.ID)
			return
		}
		f.log.InfoContext(ctx, "Handling command", "chat_id", update.Message.Chat.ID, "user_id", update.Message.From.ID)

		c := chat{m: b, chatID: update.Message.Chat.ID, userID: update.Message.From.ID}
		if name != "new" {
			f.reset(ctx, c.userID)
		}
		run(f, ctx, c)
	}
}
