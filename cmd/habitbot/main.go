// Package main is the entrypoint of the habit tracker bot.
package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	tgbot "github.com/go-telegram/bot"

	"github.com/edgard/habitbot/internal/bot"
	"github.com/edgard/habitbot/internal/bot/handlers"
	"github.com/edgard/habitbot/internal/bot/tasks"
	"github.com/edgard/habitbot/internal/config"
	"github.com/edgard/habitbot/internal/conversation"
	"github.com/edgard/habitbot/internal/database"
	"github.com/edgard/habitbot/internal/gemini"
	"github.com/edgard/habitbot/internal/habits"
	"github.com/edgard/habitbot/internal/httpserver"
	"github.com/edgard/habitbot/internal/logger"
	"github.com/edgard/habitbot/internal/metrics"
	"github.com/edgard/habitbot/internal/notify"
	"github.com/edgard/habitbot/internal/reminders"
	"github.com/edgard/habitbot/internal/telegram"
)

var cli struct {
	Config string `help:"Path to configuration file." type:"path" default:"./config.yaml"`

	Serve   serveCmd   `cmd:"" help:"Run the bot." default:"1"`
	Migrate migrateCmd `cmd:"" help:"Apply database migrations and exit."`
}

type serveCmd struct{}

type migrateCmd struct{}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	kctx := kong.Parse(&cli,
		kong.Name("habitbot"),
		kong.Description("Telegram bot for building daily habits"),
		kong.UsageOnError(),
		kong.BindTo(ctx, (*context.Context)(nil)),
	)

	code := 0
	if err := kctx.Run(); err != nil {
		slog.Error("Command failed", "command", kctx.Command(), "error", err)
		code = 1
	}
	stop()
	os.Exit(code)
}

// Run applies the migrations by opening the database.
func (migrateCmd) Run(ctx context.Context) error {
	cfg, err := config.LoadConfig(cli.Config)
	if err != nil {
		return err
	}
	log := logger.NewLogger(cfg.Logger)

	db, err := database.NewDB(cfg.Database.Path)
	if err != nil {
		return err
	}
	database.CloseDB(db)
	log.InfoContext(ctx, "Migrations applied", "path", cfg.Database.Path)
	return nil
}

// Run starts the bot and blocks until ctx is cancelled.
func (serveCmd) Run(ctx context.Context) error {
	cfg, err := config.LoadConfig(cli.Config)
	if err != nil {
		return err
	}

	log := logger.NewLogger(cfg.Logger)
	log.Info("Logger initialized", "level", cfg.Logger.Level, "json", cfg.Logger.JSON, "file", cfg.Logger.File)

	db, err := database.NewDB(cfg.Database.Path)
	if err != nil {
		return err
	}
	defer database.CloseDB(db)
	store := database.NewStore(db, log)

	m := metrics.New()
	habitService := habits.NewService(habits.Deps{Logger: log, Store: store, Recorder: m})

	sessions, closeSessions, err := newSessionStore(ctx, cfg.Sessions)
	if err != nil {
		return err
	}
	defer closeSessions()

	hDeps := handlers.HandlerDeps{
		Logger:   log,
		Config:   cfg,
		Store:    store,
		Habits:   habitService,
		Sessions: sessions,
	}

	tg, err := telegram.NewTelegramBot(cfg.Telegram.Token, log,
		tgbot.WithMiddlewares(logger.Middleware(log, m), handlers.EnsureUser(hDeps)),
		tgbot.WithDefaultHandler(handlers.NewHelpHandler(hDeps)),
		tgbot.WithCheckInitTimeout(cfg.Telegram.RequestTimeout),
	)
	if err != nil {
		return err
	}

	cfg.Telegram.BotInfo, err = tg.GetMe(ctx)
	if err != nil {
		return err
	}
	log.Info("Retrieved bot info", "bot_id", cfg.Telegram.BotInfo.ID, "bot_username", cfg.Telegram.BotInfo.Username)

	if cfg.Telegram.DropPendingUpdates {
		if _, err := tg.DeleteWebhook(ctx, &tgbot.DeleteWebhookParams{DropPendingUpdates: true}); err != nil {
			log.Warn("Failed to drop pending updates", "error", err)
		}
	}

	var writer gemini.Client
	if cfg.Gemini.Enabled {
		writer, err = gemini.NewClient(ctx, cfg.Gemini, log)
		if err != nil {
			return err
		}
	}

	sched, err := bot.NewScheduler(log, &cfg.Scheduler, tasks.RegisterAllTasks(tasks.TaskDeps{
		Logger:   log,
		Store:    store,
		Sessions: sessions,
	}))
	if err != nil {
		return err
	}

	reminderScheduler := reminders.NewScheduler(reminders.Deps{
		Logger:   log,
		Store:    store,
		Deferrer: sched,
		Dispatcher: notify.NewDispatcher(tg, notify.DispatcherConfig{
			Timeout:     cfg.Reminders.DeliveryTimeout,
			MaxAttempts: cfg.Reminders.MaxDeliveryAttempts,
			RetryDelay:  cfg.Reminders.RetryDelay,
		}, log),
		Composer: notify.NewComposer(cfg.Reminders.Text, writer, habitService, store, log),
		Recorder: m,
	})
	hDeps.Reminders = reminderScheduler

	registered := handlers.RegisterAllCommands(hDeps)
	if err := telegram.RegisterHandlers(tg, log, registered); err != nil {
		return err
	}
	if err := telegram.PublishCommands(ctx, tg, telegram.Commands(registered)); err != nil {
		log.Warn("Failed to publish command menu", "error", err)
	}

	var ops bot.Server
	if cfg.HTTP.Enabled {
		ops = httpserver.New(cfg.HTTP.Listen, store, m.Handler(), log)
	}

	app := bot.NewBot(log, tg, sched, reminderScheduler, ops)

	log.Info("Starting bot...")
	runErr := app.Run(ctx)
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		// Allow logs to flush before exiting on error
		time.Sleep(time.Second)
		return runErr
	}

	log.Info("Bot stopped gracefully.")
	return nil
}

// newSessionStore builds the configured conversation backend and a cleanup
// function for it.
func newSessionStore(ctx context.Context, cfg config.SessionsConfig) (conversation.Store, func(), error) {
	if cfg.Backend != "redis" {
		return conversation.NewMemoryStore(cfg.TTL, nil), func() {}, nil
	}

	client, err := conversation.NewRedisClient(ctx, conversation.RedisConfig{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err != nil {
		return nil, nil, err
	}
	store := conversation.NewRedisStore(client, cfg.TTL)
	return store, func() {
		if err := store.Close(); err != nil {
			slog.Error("Failed to close redis client", "error", err)
		}
	}, nil
}
