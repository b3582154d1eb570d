// Package notify delivers reminder messages to Telegram chats and decides
// what those messages say.
package notify

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	apperrors "github.com/edgard/habitbot/internal/errors"
	"github.com/edgard/habitbot/internal/resilience"
)

// Sender is the part of the Telegram client the dispatcher needs.
type Sender interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
}

// DispatcherConfig bounds delivery attempts.
type DispatcherConfig struct {
	Timeout     time.Duration
	MaxAttempts int
	RetryDelay  time.Duration
}

// Dispatcher sends reminder texts with a per-attempt timeout and a bounded
// number of retries.
type Dispatcher struct {
	sender Sender
	cfg    DispatcherConfig
	log    *slog.Logger
}

// NewDispatcher creates a dispatcher.
func NewDispatcher(sender Sender, cfg DispatcherConfig, log *slog.Logger) *Dispatcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Dispatcher{sender: sender, cfg: cfg, log: log.With("component", "dispatcher")}
}

// Deliver sends text to chatID. Errors Telegram will keep returning, such as
// a user who blocked the bot, are not retried.
func (d *Dispatcher) Deliver(ctx context.Context, chatID int64, text string) error {
	attempt := 0
	err := resilience.WithRetry(ctx, func(ctx context.Context) error {
		attempt++
		attemptCtx, cancel := context.WithTimeout(ctx, d.cfg.Timeout)
		defer cancel()

		_, err := d.sender.SendMessage(attemptCtx, &bot.SendMessageParams{
			ChatID: chatID,
			Text:   text,
		})
		if err == nil {
			return nil
		}
		d.log.WarnContext(ctx, "Reminder delivery attempt failed", "chat_id", chatID, "attempt", attempt, "error", err)
		if errors.Is(err, bot.ErrorForbidden) || errors.Is(err, bot.ErrorBadRequest) || errors.Is(err, bot.ErrorUnauthorized) {
			return resilience.Permanent(err)
		}
		return err
	}, resilience.RetryConfig{
		MaxAttempts:     d.cfg.MaxAttempts,
		InitialInterval: d.cfg.RetryDelay,
		MaxInterval:     d.cfg.RetryDelay * 4,
		Multiplier:      2,
	})
	if err != nil {
		return apperrors.Delivery("failed to deliver reminder", err)
	}

	d.log.DebugContext(ctx, "Reminder delivered", "chat_id", chatID, "attempts", attempt)
	return nil
}
