package handlers

import (
	"context"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// NewStartHandler returns a handler for the /start command.
func NewStartHandler(deps HandlerDeps) bot.HandlerFunc {
	h := startHandler{newFlow(deps, "start")}
	return func(ctx context.Context, b *bot.Bot, update *models.Update) {
		h.handle(ctx, b, update)
	}
}

// startHandler registers the user, refreshes their names and greets them.
type startHandler struct {
	flow
}

func (h startHandler) handle(ctx context.Context, m Messenger, update *models.Update) {
	if update.Message == nil || update.Message.From == nil {
		h.log.WarnContext(ctx, "Start handler received update with nil message or sender", "update_id", update.ID)
		return
	}
	from := update.Message.From
	h.log.InfoContext(ctx, "Handling /start command", "chat_id", update.Message.Chat.ID, "user_id", from.ID)

	if _, err := h.deps.Habits.Register(ctx, newUser(h.deps, from)); err != nil {
		h.log.ErrorContext(ctx, "Failed to register user", "error", err, "user_id", from.ID)
	}
	h.welcome(ctx, chat{m: m, chatID: update.Message.Chat.ID, userID: from.ID}, from.FirstName)
}
