// Package logger provides structured logging for the bot.
// It builds a slog logger from configuration and logs every Telegram update.
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/edgard/habitbot/internal/config"
)

// NewLogger creates a new slog Logger from the logger configuration and
// installs it as the default logger.
func NewLogger(cfg config.LoggerConfig) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: ParseLevel(cfg.Level),
	}

	var out io.Writer = os.Stdout
	if cfg.File != "" {
		out = &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   true,
		}
	}

	var handler slog.Handler
	if cfg.JSON {
		handler = slog.NewJSONHandler(out, opts)
	} else {
		handler = slog.NewTextHandler(out, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// ParseLevel maps a config level name to a slog level, defaulting to info.
func ParseLevel(levelStr string) slog.Level {
	switch strings.ToLower(levelStr) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// UpdateCounter is notified with the type of every processed update.
type UpdateCounter interface {
	ObserveUpdate(updateType string)
}

// Middleware creates a logging middleware for the Telegram bot.
// It logs information about incoming updates and how long they took.
func Middleware(log *slog.Logger, counter UpdateCounter) bot.Middleware {
	return func(next bot.HandlerFunc) bot.HandlerFunc {
		return func(ctx context.Context, b *bot.Bot, update *models.Update) {
			startTime := time.Now()

			updateType, attrs := describeUpdate(update)
			logEntry := log.With(append([]any{"update_id", update.ID, "update_type", updateType}, attrs...)...)
			if counter != nil {
				counter.ObserveUpdate(updateType)
			}

			logEntry.InfoContext(ctx, "Processing update")

			next(ctx, b, update)

			logEntry.InfoContext(ctx, "Finished processing update", "duration", time.Since(startTime))
		}
	}
}

func describeUpdate(update *models.Update) (string, []any) {
	switch {
	case update.Message != nil:
		attrs := []any{
			"message_id", update.Message.ID,
			"chat_id", update.Message.Chat.ID,
			"text_preview", truncateString(update.Message.Text, 50),
		}
		if update.Message.From != nil {
			attrs = append(attrs, "user_id", update.Message.From.ID)
		}
		return "message", attrs

	case update.CallbackQuery != nil:
		cq := update.CallbackQuery
		attrs := []any{
			"callback_query_id", cq.ID,
			"user_id", cq.From.ID,
			"data", cq.Data,
		}
		switch {
		case cq.Message.Message != nil:
			attrs = append(attrs, "chat_id", cq.Message.Message.Chat.ID, "message_accessible", true)
		case cq.Message.InaccessibleMessage != nil:
			attrs = append(attrs, "chat_id", cq.Message.InaccessibleMessage.Chat.ID, "message_accessible", false)
		}
		return "callback_query", attrs

	default:
		return "other", nil
	}
}

func truncateString(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return "..."
	}
	return string(r[:maxLen-3]) + "..."
}
