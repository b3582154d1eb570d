package handlers

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/habitbot/internal/chart"
	"github.com/edgard/habitbot/internal/conversation"
	"github.com/edgard/habitbot/internal/database"
	apperrors "github.com/edgard/habitbot/internal/errors"
	"github.com/edgard/habitbot/internal/habits"
	"github.com/edgard/habitbot/internal/views"
)

const expiredDialog = "This dialog has expired, please start again."

// NewCallbackHandler returns the handler for every inline button.
func NewCallbackHandler(deps HandlerDeps) bot.HandlerFunc {
	h := callbackHandler{newFlow(deps, "callback")}
	return func(ctx context.Context, b *bot.Bot, update *models.Update) {
		h.handle(ctx, b, update)
	}
}

type callbackHandler struct {
	flow
}

func (h callbackHandler) handle(ctx context.Context, m Messenger, update *models.Update) {
	q := update.CallbackQuery
	if q == nil {
		return
	}

	c := chat{m: m, chatID: q.From.ID, userID: q.From.ID}
	if q.Message.Message != nil {
		c.chatID = q.Message.Message.Chat.ID
		c.messageID = q.Message.Message.ID
	}

	cb := views.ParseCallback(q.Data)
	h.log.DebugContext(ctx, "Handling callback", "user_id", c.userID, "action", cb.Action)

	notice := h.dispatch(ctx, c, cb)
	answer(ctx, m, h.log, q.ID, notice)
}

// dispatch runs the action and returns the short notice for the callback
// answer, empty for none.
func (h callbackHandler) dispatch(ctx context.Context, c chat, cb views.Callback) string {
	switch cb.Action {
	case views.ActionNewHabit:
		h.newHabit(ctx, c)
	case views.ActionCancelNew:
		h.reset(ctx, c.userID)
		h.show(ctx, c, views.Plain("Habit creation cancelled."))
	case views.ActionBackList:
		h.reset(ctx, c.userID)
		h.list(ctx, c)
	case views.ActionType:
		return h.onType(ctx, c, cb.Arg(0))
	case views.ActionAllowNotes:
		return h.onAllowNotes(ctx, c, cb.Arg(0) == "yes")
	case views.ActionSettings:
		h.reset(ctx, c.userID)
		h.settings(ctx, c)
	case views.ActionChangeTimezone:
		h.show(ctx, c, views.TimezonePicker())
	case views.ActionChangeTime:
		h.show(ctx, c, views.TimePicker())
	case views.ActionTimezone:
		return h.onTimezone(ctx, c, cb.Arg(0))
	case views.ActionReminderTime:
		return h.onReminderTime(ctx, c, strings.Join(cb.Args, ":"))
	case views.ActionToggle:
		return h.onToggle(ctx, c)
	default:
		return h.dispatchHabit(ctx, c, cb)
	}
	return ""
}

// dispatchHabit handles the actions addressed to one habit.
func (h callbackHandler) dispatchHabit(ctx context.Context, c chat, cb views.Callback) string {
	habitID, ok := cb.IntArg(0)
	if !ok {
		h.log.WarnContext(ctx, "Malformed callback data", "user_id", c.userID, "action", cb.Action, "args", cb.Args)
		return "Unknown action."
	}

	switch cb.Action {
	case views.ActionHabit, views.ActionCancelDelete:
		h.reset(ctx, c.userID)
		h.habitMenu(ctx, c, habitID)
	case views.ActionLog:
		return h.onLog(ctx, c, habitID)
	case views.ActionUnlog:
		if err := h.deps.Habits.Unlog(ctx, c.userID, habitID); err != nil {
			return h.notice(ctx, c, err)
		}
		h.habitMenu(ctx, c, habitID)
		return "Mark removed."
	case views.ActionStats:
		habit, err := h.deps.Habits.Get(ctx, c.userID, habitID)
		if err != nil {
			return h.notice(ctx, c, err)
		}
		h.show(ctx, c, views.StatsPeriodPicker(habit))
	case views.ActionStatsPeriod:
		days, err := strconv.Atoi(cb.Arg(1))
		if err != nil || !habits.ValidPeriod(days) {
			return "Unknown period."
		}
		return h.onStats(ctx, c, habitID, days)
	case views.ActionNotes:
		habit, notes, err := h.deps.Habits.Notes(ctx, c.userID, habitID)
		if err != nil {
			return h.notice(ctx, c, err)
		}
		h.show(ctx, c, views.Notes(habit, notes))
	case views.ActionEdit:
		habit, err := h.deps.Habits.Get(ctx, c.userID, habitID)
		if err != nil {
			return h.notice(ctx, c, err)
		}
		h.await(ctx, c.userID, conversation.StateAwaitingRename, habit.ID)
		h.reply(ctx, c, views.AskRename(habit))
	case views.ActionDelete:
		habit, err := h.deps.Habits.Get(ctx, c.userID, habitID)
		if err != nil {
			return h.notice(ctx, c, err)
		}
		h.show(ctx, c, views.DeleteConfirm(habit))
	case views.ActionConfirmDelete:
		habit, err := h.deps.Habits.Delete(ctx, c.userID, habitID)
		if err != nil {
			return h.notice(ctx, c, err)
		}
		h.show(ctx, c, views.Deleted(habit))
	default:
		h.log.WarnContext(ctx, "Unknown callback action", "user_id", c.userID, "action", cb.Action)
		return "Unknown action."
	}
	return ""
}

// notice reports a failure as the callback answer. Benign errors only need
// the toast; anything else also gets a message.
func (h callbackHandler) notice(ctx context.Context, c chat, err error) string {
	text := userText(ctx, h.log.With("user_id", c.userID), err, h.generic())
	if errors.Is(err, apperrors.ErrNotFound) || errors.Is(err, apperrors.ErrAlreadyLogged) {
		return text
	}
	h.reply(ctx, c, views.Plain("%s", text))
	return ""
}

// onLog marks a plain habit right away. Numeric habits and habits with notes
// first ask for their input.
func (h callbackHandler) onLog(ctx context.Context, c chat, habitID int64) string {
	habit, err := h.deps.Habits.Get(ctx, c.userID, habitID)
	if err != nil {
		return h.notice(ctx, c, err)
	}
	logged, err := h.deps.Habits.IsLoggedToday(ctx, c.userID, habitID)
	if err != nil {
		return h.notice(ctx, c, err)
	}
	if logged {
		return h.notice(ctx, c, apperrors.AlreadyLogged("habit %d already logged today", habitID))
	}

	switch {
	case habit.IsNumeric():
		h.await(ctx, c.userID, conversation.StateAwaitingQuantity, habitID)
		h.reply(ctx, c, views.AskQuantity(habit))
	case habit.AllowNotes:
		h.await(ctx, c.userID, conversation.StateAwaitingNote, habitID)
		h.reply(ctx, c, views.AskNote(habit))
	default:
		if _, err := h.deps.Habits.Log(ctx, c.userID, habitID, habits.Entry{}); err != nil {
			return h.notice(ctx, c, err)
		}
		h.habitMenu(ctx, c, habitID)
		return "✅ Marked!"
	}
	return ""
}

// onStats sends the chart with the statistics as its caption, or the text
// alone when the chart cannot be drawn.
func (h callbackHandler) onStats(ctx context.Context, c chat, habitID int64, days int) string {
	stats, err := h.deps.Habits.Stats(ctx, c.userID, habitID, days)
	if err != nil {
		return h.notice(ctx, c, err)
	}
	caption := views.Stats(*stats)

	spec, err := h.deps.Habits.ChartSeries(ctx, c.userID, habitID, days)
	if err != nil {
		return h.notice(ctx, c, err)
	}
	png, err := chart.Render(*spec)
	if err != nil {
		h.log.ErrorContext(ctx, "Failed to render chart", "error", err, "habit_id", habitID)
		h.reply(ctx, c, caption)
		return ""
	}
	if err := sendPhoto(ctx, c.m, h.log, c.chatID, png, caption); err != nil {
		h.reply(ctx, c, caption)
	}
	return ""
}

func (h callbackHandler) onType(ctx context.Context, c chat, arg string) string {
	s := h.session(ctx, c.userID)
	if s.State != conversation.StateAwaitingType {
		return expiredDialog
	}

	switch database.HabitType(arg) {
	case database.HabitTypeNumeric:
		s.Draft.Type = database.HabitTypeNumeric
		s.State = conversation.StateAwaitingUnit
		h.save(ctx, c.userID, s)
		h.show(ctx, c, views.AskUnit())
	case database.HabitTypeBoolean:
		s.Draft.Type = database.HabitTypeBoolean
		s.State = conversation.StateAwaitingAllowNotes
		h.save(ctx, c.userID, s)
		h.show(ctx, c, views.AllowNotesPicker())
	default:
		return "Unknown habit type."
	}
	return ""
}

func (h callbackHandler) onAllowNotes(ctx context.Context, c chat, allow bool) string {
	s := h.session(ctx, c.userID)
	if s.State != conversation.StateAwaitingAllowNotes {
		return expiredDialog
	}
	h.reset(ctx, c.userID)

	habit, err := h.deps.Habits.Create(ctx, c.userID, habits.Draft{
		Name:       s.Draft.Name,
		Type:       database.HabitTypeBoolean,
		AllowNotes: allow,
	})
	if err != nil {
		return h.notice(ctx, c, err)
	}
	h.show(ctx, c, views.Created(habit))
	return ""
}

func (h callbackHandler) onTimezone(ctx context.Context, c chat, arg string) string {
	if arg == views.ArgCustom {
		h.await(ctx, c.userID, conversation.StateAwaitingTimezone, 0)
		h.reply(ctx, c, views.AskTimezone())
		return ""
	}
	tz, err := h.deps.Reminders.SetTimezone(ctx, c.userID, arg)
	if err != nil {
		return h.notice(ctx, c, err)
	}
	h.show(ctx, c, views.TimezoneSaved(tz))
	return ""
}

func (h callbackHandler) onReminderTime(ctx context.Context, c chat, arg string) string {
	if arg == views.ArgCustom {
		h.await(ctx, c.userID, conversation.StateAwaitingTime, 0)
		h.reply(ctx, c, views.AskTime())
		return ""
	}
	clock, err := h.deps.Reminders.SetTime(ctx, c.userID, arg)
	if err != nil {
		return h.notice(ctx, c, err)
	}
	h.show(ctx, c, views.TimeSaved(clock, h.remindersEnabled(ctx, c.userID)))
	return ""
}

func (h callbackHandler) onToggle(ctx context.Context, c chat) string {
	enabled, err := h.deps.Reminders.Toggle(ctx, c.userID)
	if err != nil {
		return h.notice(ctx, c, err)
	}
	h.settings(ctx, c)
	if enabled {
		return "🔔 Reminders on"
	}
	return "🔕 Reminders off"
}
