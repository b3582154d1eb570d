// Package telegram builds the Telegram client and registers the bot's
// handlers on it.
package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/habitbot/internal/bot/handlers"
)

// NewTelegramBot creates a Telegram bot instance.
func NewTelegramBot(token string, logger *slog.Logger, opts ...bot.Option) (*bot.Bot, error) {
	if token == "" {
		return nil, fmt.Errorf("telegram bot token cannot be empty")
	}
	if logger == nil {
		logger = slog.Default()
	}
	log := logger.With("component", "telegram_bot")

	b, err := bot.New(token, opts...)
	if err != nil {
		log.Error("Failed to create Telegram bot instance", "error", err)
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}

	log.Info("Telegram bot instance created")
	return b, nil
}

// applyMiddleware wraps handler so the first middleware is the outermost.
func applyMiddleware(handler bot.HandlerFunc, mw []bot.Middleware) bot.HandlerFunc {
	for i := len(mw) - 1; i >= 0; i-- {
		handler = mw[i](handler)
	}
	return handler
}

// Registrar is the part of *bot.Bot used for handler registration.
type Registrar interface {
	RegisterHandler(handlerType bot.HandlerType, pattern string, matchType bot.MatchType, f bot.HandlerFunc, m ...bot.Middleware) string
	RegisterHandlerMatchFunc(matchFunc bot.MatchFunc, f bot.HandlerFunc, m ...bot.Middleware) string
}

// RegisterHandlers registers every handler with its own middleware.
func RegisterHandlers(b Registrar, logger *slog.Logger, registered map[string]handlers.RegisteredHandler) error {
	if b == nil {
		return fmt.Errorf("bot instance cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	log := logger.With("component", "handler_registry")

	count := 0
	for name, h := range registered {
		if h.Handler == nil {
			log.Warn("Skipping registration for nil handler", "name", name)
			continue
		}
		handler := applyMiddleware(h.Handler, h.Middleware)
		if h.Match != nil {
			b.RegisterHandlerMatchFunc(h.Match, handler)
		} else {
			b.RegisterHandler(h.HandlerType, h.Pattern, h.MatchType, handler)
		}
		log.Debug("Registered handler", "name", name, "pattern", h.Pattern, "match_type", h.MatchType)
		count++
	}

	log.Info("Registered Telegram handlers", "count", count)
	return nil
}

// Commands returns the Telegram command menu entries for the registered
// command handlers, sorted by name.
func Commands(registered map[string]handlers.RegisteredHandler) []models.BotCommand {
	var cmds []models.BotCommand
	for name, h := range registered {
		if h.Description == "" || !strings.HasPrefix(name, "/") {
			continue
		}
		cmds = append(cmds, models.BotCommand{Command: h.Pattern, Description: h.Description})
	}
	sort.Slice(cmds, func(i, j int) bool { return cmds[i].Command < cmds[j].Command })
	return cmds
}

// PublishCommands sets the command menu shown by Telegram clients.
func PublishCommands(ctx context.Context, b *bot.Bot, cmds []models.BotCommand) error {
	if _, err := b.SetMyCommands(ctx, &bot.SetMyCommandsParams{Commands: cmds}); err != nil {
		return fmt.Errorf("failed to set bot commands: %w", err)
	}
	return nil
}
