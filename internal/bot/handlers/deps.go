package handlers

import (
	"context"
	"log/slog"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/habitbot/internal/config"
	"github.com/edgard/habitbot/internal/conversation"
	"github.com/edgard/habitbot/internal/database"
	"github.com/edgard/habitbot/internal/habits"
	"github.com/edgard/habitbot/internal/reminders"
)

// HandlerDeps provides dependencies for Telegram handlers.
type HandlerDeps struct {
	Logger    *slog.Logger
	Config    *config.Config
	Store     database.Store
	Habits    *habits.Service
	Reminders *reminders.Scheduler
	Sessions  conversation.Store
}

// Messenger is the part of the Telegram client the handlers use. *bot.Bot
// implements it.
type Messenger interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
	EditMessageText(ctx context.Context, params *bot.EditMessageTextParams) (*models.Message, error)
	SendPhoto(ctx context.Context, params *bot.SendPhotoParams) (*models.Message, error)
	AnswerCallbackQuery(ctx context.Context, params *bot.AnswerCallbackQueryParams) (bool, error)
}

var _ Messenger = (*bot.Bot)(nil)
