// Package bot wires the habit bot's long-running components together and
// manages their lifecycle.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"
)

// Listener receives Telegram updates until its context is cancelled.
// *bot.Bot from go-telegram implements it.
type Listener interface {
	Start(ctx context.Context)
}

// ReminderRestorer re-creates pending reminder jobs after a restart.
type ReminderRestorer interface {
	Restore(ctx context.Context) (int, error)
}

// Server is an optional auxiliary server that runs until ctx is done.
type Server interface {
	Run(ctx context.Context) error
}

// Bot runs the Telegram listener, the job scheduler and the ops server.
type Bot struct {
	logger    *slog.Logger
	listener  Listener
	scheduler *Scheduler
	reminders ReminderRestorer
	server    Server
}

// NewBot creates the orchestrator. server may be nil.
func NewBot(logger *slog.Logger, listener Listener, scheduler *Scheduler, reminders ReminderRestorer, server Server) *Bot {
	return &Bot{
		logger:    logger.With("component", "bot_orchestrator"),
		listener:  listener,
		scheduler: scheduler,
		reminders: reminders,
		server:    server,
	}
}

// Run starts every component and blocks until ctx is cancelled or one of
// them fails.
func (b *Bot) Run(ctx context.Context) error {
	b.logger.Info("Starting bot orchestrator...")

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		b.logger.Info("Starting Telegram bot listener...")
		b.listener.Start(gCtx)
		b.logger.Info("Telegram bot listener stopped.")

		if gCtx.Err() == nil {
			b.logger.Warn("Telegram bot listener stopped unexpectedly without context cancellation.")
			return fmt.Errorf("telegram listener stopped unexpectedly")
		}
		return nil
	})

	g.Go(func() error {
		if err := b.scheduler.Start(); err != nil {
			return fmt.Errorf("failed to start scheduler: %w", err)
		}

		// Jobs live in memory only; the stored handles are re-armed here.
		restored, err := b.reminders.Restore(gCtx)
		if err != nil {
			b.logger.Error("Failed to restore reminders", "error", err)
		} else {
			b.logger.Info("Reminders restored", "count", restored)
		}

		<-gCtx.Done()
		b.logger.Info("Shutdown signal received, stopping scheduler...")
		if err := b.scheduler.Stop(); err != nil {
			b.logger.Error("Error stopping scheduler", "error", err)
		}
		return nil
	})

	if b.server != nil {
		g.Go(func() error {
			if err := b.server.Run(gCtx); err != nil {
				return fmt.Errorf("ops server failed: %w", err)
			}
			return nil
		})
	}

	b.logger.Info("Bot orchestrator running. Waiting for shutdown signal or error...")
	err := g.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		b.logger.Error("Bot orchestrator stopped due to error", "error", err)
		return err
	}

	b.logger.Info("Bot orchestrator stopped gracefully.")
	return nil
}
