package handlers

import (
	"strings"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// RegisteredHandler describes one handler registration.
type RegisteredHandler struct {
	HandlerType tgbot.HandlerType
	Pattern     string
	Handler     tgbot.HandlerFunc
	Middleware  []tgbot.Middleware
	MatchType   tgbot.MatchType
	// Match, when set, selects updates instead of Pattern and MatchType.
	Match tgbot.MatchFunc
	// Description is shown in the Telegram command menu; empty for
	// non-command handlers.
	Description string
}

// RegisterAllCommands returns every handler keyed by a stable name.
func RegisterAllCommands(deps HandlerDeps) map[string]RegisteredHandler {
	handlers := make(map[string]RegisteredHandler)

	command := func(name, description string, h tgbot.HandlerFunc) {
		handlers["/"+name] = RegisteredHandler{
			HandlerType: tgbot.HandlerTypeMessageText,
			Pattern:     name,
			Handler:     h,
			MatchType:   tgbot.MatchTypeCommandStartOnly,
			Description: description,
		}
	}
	command("start", "Start the bot", NewStartHandler(deps))
	command("help", "How to use the bot", NewHelpHandler(deps))
	command("new", "Create a habit", NewNewHabitHandler(deps))
	command("list", "My habits", NewListHandler(deps))
	command("settings", "Reminder settings", NewSettingsHandler(deps))

	handlers["callback"] = RegisteredHandler{
		HandlerType: tgbot.HandlerTypeCallbackQueryData,
		Pattern:     "",
		Handler:     NewCallbackHandler(deps),
		MatchType:   tgbot.MatchTypePrefix,
	}

	handlers["text"] = RegisteredHandler{
		Handler: NewTextHandler(deps),
		Match:   isPlainText,
	}

	return handlers
}

// isPlainText matches private text messages that are not commands.
func isPlainText(update *models.Update) bool {
	msg := update.Message
	return msg != nil && msg.Text != "" && !strings.HasPrefix(msg.Text, "/") &&
		msg.Chat.Type == models.ChatTypePrivate
}
