package handlers

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/habitbot/internal/views"
)

// replyMarkup converts a rendered screen's keyboard into Telegram markup.
func replyMarkup(m views.Message) models.ReplyMarkup {
	switch {
	case len(m.Inline) > 0:
		return inlineMarkup(m.Inline)
	case len(m.Reply) > 0:
		kb := make([][]models.KeyboardButton, 0, len(m.Reply))
		for _, r := range m.Reply {
			row := make([]models.KeyboardButton, 0, len(r))
			for _, label := range r {
				row = append(row, models.KeyboardButton{Text: label})
			}
			kb = append(kb, row)
		}
		return &models.ReplyKeyboardMarkup{Keyboard: kb, ResizeKeyboard: true}
	default:
		return nil
	}
}

func inlineMarkup(rows [][]views.Button) *models.InlineKeyboardMarkup {
	kb := make([][]models.InlineKeyboardButton, 0, len(rows))
	for _, r := range rows {
		row := make([]models.InlineKeyboardButton, 0, len(r))
		for _, b := range r {
			row = append(row, models.InlineKeyboardButton{Text: b.Text, CallbackData: b.Data})
		}
		kb = append(kb, row)
	}
	return &models.InlineKeyboardMarkup{InlineKeyboard: kb}
}

func send(ctx context.Context, m Messenger, log *slog.Logger, chatID int64, msg views.Message) {
	params := &bot.SendMessageParams{
		ChatID:    chatID,
		Text:      msg.Text,
		ParseMode: models.ParseModeHTML,
	}
	if markup := replyMarkup(msg); markup != nil {
		params.ReplyMarkup = markup
	}
	if _, err := m.SendMessage(ctx, params); err != nil {
		log.ErrorContext(ctx, "Failed to send message", "error", err, "chat_id", chatID)
	}
}

// edit replaces the text and inline keyboard of a bot message. Screens with a
// reply keyboard cannot be edited in place and are sent instead.
func edit(ctx context.Context, m Messenger, log *slog.Logger, chatID int64, messageID int, msg views.Message) {
	if messageID == 0 || len(msg.Reply) > 0 {
		send(ctx, m, log, chatID, msg)
		return
	}

	params := &bot.EditMessageTextParams{
		ChatID:    chatID,
		MessageID: messageID,
		Text:      msg.Text,
		ParseMode: models.ParseModeHTML,
	}
	if len(msg.Inline) > 0 {
		params.ReplyMarkup = inlineMarkup(msg.Inline)
	}
	if _, err := m.EditMessageText(ctx, params); err != nil {
		if strings.Contains(err.Error(), "message is not modified") {
			return
		}
		// Old messages cannot be edited.
		if errors.Is(err, bot.ErrorBadRequest) {
			log.DebugContext(ctx, "Edit rejected, sending new message", "error", err, "chat_id", chatID)
			send(ctx, m, log, chatID, msg)
			return
		}
		log.ErrorContext(ctx, "Failed to edit message", "error", err, "chat_id", chatID)
	}
}

func sendPhoto(ctx context.Context, m Messenger, log *slog.Logger, chatID int64, png []byte, caption views.Message) error {
	params := &bot.SendPhotoParams{
		ChatID:    chatID,
		Photo:     &models.InputFileUpload{Filename: "chart.png", Data: bytes.NewReader(png)},
		Caption:   caption.Text,
		ParseMode: models.ParseModeHTML,
	}
	if len(caption.Inline) > 0 {
		params.ReplyMarkup = inlineMarkup(caption.Inline)
	}
	if _, err := m.SendPhoto(ctx, params); err != nil {
		log.ErrorContext(ctx, "Failed to send chart", "error", err, "chat_id", chatID)
		return err
	}
	return nil
}

func answer(ctx context.Context, m Messenger, log *slog.Logger, callbackID, text string) {
	_, err := m.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
		CallbackQueryID: callbackID,
		Text:            text,
	})
	if err != nil {
		log.DebugContext(ctx, "Failed to answer callback query", "error", err)
	}
}
