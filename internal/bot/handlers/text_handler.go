package handlers

import (
	"context"
	"errors"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/habitbot/internal/conversation"
	"github.com/edgard/habitbot/internal/database"
	apperrors "github.com/edgard/habitbot/internal/errors"
	"github.com/edgard/habitbot/internal/habits"
	"github.com/edgard/habitbot/internal/views"
)

// NewTextHandler returns the handler for non-command text. It serves the
// main menu buttons and feeds every other text into the user's conversation.
func NewTextHandler(deps HandlerDeps) bot.HandlerFunc {
	h := textHandler{newFlow(deps, "text")}
	return func(ctx context.Context, b *bot.Bot, update *models.Update) {
		h.handle(ctx, b, update)
	}
}

type textHandler struct {
	flow
}

func (h textHandler) handle(ctx context.Context, m Messenger, update *models.Update) {
	msg := update.Message
	if msg == nil || msg.From == nil || msg.Text == "" {
		return
	}
	if msg.Chat.Type != "" && msg.Chat.Type != models.ChatTypePrivate {
		return
	}

	c := chat{m: m, chatID: msg.Chat.ID, userID: msg.From.ID}
	text := strings.TrimSpace(msg.Text)
	if h.menuAction(ctx, c, text) {
		return
	}

	s := h.session(ctx, c.userID)
	log := h.log.With("user_id", c.userID, "state", s.State)
	log.DebugContext(ctx, "Handling conversation input")

	switch s.State {
	case conversation.StateAwaitingName:
		h.onName(ctx, c, s, text)
	case conversation.StateAwaitingUnit:
		h.onUnit(ctx, c, s, text)
	case conversation.StateAwaitingType:
		h.reply(ctx, c, views.TypePicker(s.Draft.Name))
	case conversation.StateAwaitingAllowNotes:
		h.reply(ctx, c, views.AllowNotesPicker())
	case conversation.StateAwaitingNote:
		h.onLogInput(ctx, c, s, habits.Entry{Note: text})
	case conversation.StateAwaitingQuantity:
		h.onLogInput(ctx, c, s, habits.Entry{Quantity: text})
	case conversation.StateAwaitingRename:
		h.onRename(ctx, c, s, text)
	case conversation.StateAwaitingTimezone:
		h.onTimezone(ctx, c, text)
	case conversation.StateAwaitingTime:
		h.onTime(ctx, c, text)
	default:
		h.reply(ctx, c, views.Help(h.deps.Config.Messages.Help))
	}
}

func (h textHandler) onName(ctx context.Context, c chat, s *conversation.Session, text string) {
	name, err := habits.ValidateName(text)
	if err != nil {
		h.fail(ctx, c, err)
		return
	}
	s.Draft.Name = name
	s.State = conversation.StateAwaitingType
	h.save(ctx, c.userID, s)
	h.reply(ctx, c, views.TypePicker(name))
}

func (h textHandler) onUnit(ctx context.Context, c chat, s *conversation.Session, text string) {
	unit, err := habits.ValidateUnit(text)
	if err != nil {
		h.fail(ctx, c, err)
		return
	}
	habit, err := h.deps.Habits.Create(ctx, c.userID, habits.Draft{
		Name: s.Draft.Name,
		Type: database.HabitTypeNumeric,
		Unit: unit,
	})
	if err != nil {
		h.reset(ctx, c.userID)
		h.fail(ctx, c, err)
		return
	}
	h.reset(ctx, c.userID)
	h.reply(ctx, c, views.Created(habit))
}

// onLogInput completes a log that waited for a note or a quantity. Invalid
// quantities keep the conversation so the user can retry.
func (h textHandler) onLogInput(ctx context.Context, c chat, s *conversation.Session, e habits.Entry) {
	entry, err := h.deps.Habits.Log(ctx, c.userID, s.HabitID, e)
	if err != nil {
		if !errors.Is(err, apperrors.ErrInvalidQuantity) {
			h.reset(ctx, c.userID)
		}
		h.fail(ctx, c, err)
		return
	}
	h.reset(ctx, c.userID)

	habit, err := h.deps.Habits.Get(ctx, c.userID, s.HabitID)
	if err != nil {
		h.fail(ctx, c, err)
		return
	}
	h.reply(ctx, c, views.Logged(habit, entry))
}

func (h textHandler) onRename(ctx context.Context, c chat, s *conversation.Session, text string) {
	_, err := h.deps.Habits.Rename(ctx, c.userID, s.HabitID, text)
	if err != nil {
		if !errors.Is(err, apperrors.ErrInvalidInput) {
			h.reset(ctx, c.userID)
		}
		h.fail(ctx, c, err)
		return
	}
	h.reset(ctx, c.userID)
	h.habitMenu(ctx, c, s.HabitID)
}

func (h textHandler) onTimezone(ctx context.Context, c chat, text string) {
	tz, err := h.deps.Reminders.SetTimezone(ctx, c.userID, text)
	if err != nil {
		if !errors.Is(err, apperrors.ErrInvalidInput) {
			h.reset(ctx, c.userID)
		}
		h.fail(ctx, c, err)
		return
	}
	h.reset(ctx, c.userID)
	h.reply(ctx, c, views.TimezoneSaved(tz))
}

func (h textHandler) onTime(ctx context.Context, c chat, text string) {
	clock, err := h.deps.Reminders.SetTime(ctx, c.userID, text)
	if err != nil {
		if !errors.Is(err, apperrors.ErrInvalidInput) {
			h.reset(ctx, c.userID)
		}
		h.fail(ctx, c, err)
		return
	}
	h.reset(ctx, c.userID)
	h.reply(ctx, c, views.TimeSaved(clock, h.remindersEnabled(ctx, c.userID)))
}

func (f flow) remindersEnabled(ctx context.Context, userID int64) bool {
	u, err := f.deps.Store.GetUser(ctx, userID)
	return err == nil && u.RemindersEnabled
}
