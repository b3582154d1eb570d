package handlers

import (
	"context"
	"log/slog"

	"github.com/edgard/habitbot/internal/conversation"
	"github.com/edgard/habitbot/internal/views"
)

// chat addresses one user's private chat. messageID is the bot message a
// callback came from, zero for text input.
type chat struct {
	m         Messenger
	chatID    int64
	userID    int64
	messageID int
}

// flow implements the screens shared by commands, menu buttons, callbacks
// and free-text input.
type flow struct {
	deps HandlerDeps
	log  *slog.Logger
}

func newFlow(deps HandlerDeps, name string) flow {
	return flow{deps: deps, log: deps.Logger.With("handler", name)}
}

func (f flow) generic() string {
	if f.deps.Config != nil && f.deps.Config.Messages.GeneralError != "" {
		return f.deps.Config.Messages.GeneralError
	}
	return "❌ Something went wrong. Please try again later."
}

func (f flow) reply(ctx context.Context, c chat, msg views.Message) {
	send(ctx, c.m, f.log, c.chatID, msg)
}

// show edits the originating message when there is one.
func (f flow) show(ctx context.Context, c chat, msg views.Message) {
	edit(ctx, c.m, f.log, c.chatID, c.messageID, msg)
}

func (f flow) fail(ctx context.Context, c chat, err error) {
	f.reply(ctx, c, views.Plain("%s", userText(ctx, f.log.With("user_id", c.userID), err, f.generic())))
}

func (f flow) session(ctx context.Context, userID int64) *conversation.Session {
	s, err := f.deps.Sessions.Get(ctx, userID)
	if err != nil {
		f.log.WarnContext(ctx, "Failed to load conversation, starting over", "user_id", userID, "error", err)
		return &conversation.Session{State: conversation.StateIdle}
	}
	return s
}

func (f flow) save(ctx context.Context, userID int64, s *conversation.Session) {
	if err := f.deps.Sessions.Save(ctx, userID, s); err != nil {
		f.log.ErrorContext(ctx, "Failed to save conversation", "user_id", userID, "state", s.State, "error", err)
	}
}

func (f flow) reset(ctx context.Context, userID int64) {
	if err := f.deps.Sessions.Clear(ctx, userID); err != nil {
		f.log.ErrorContext(ctx, "Failed to clear conversation", "user_id", userID, "error", err)
	}
}

func (f flow) await(ctx context.Context, userID int64, state conversation.State, habitID int64) {
	f.save(ctx, userID, &conversation.Session{State: state, HabitID: habitID})
}

func (f flow) welcome(ctx context.Context, c chat, firstName string) {
	f.reset(ctx, c.userID)
	f.reply(ctx, c, views.Welcome(f.deps.Config.Messages.Welcome, firstName))
}

func (f flow) help(ctx context.Context, c chat) {
	f.reply(ctx, c, views.Help(f.deps.Config.Messages.Help))
}

func (f flow) newHabit(ctx context.Context, c chat) {
	f.await(ctx, c.userID, conversation.StateAwaitingName, 0)
	f.reply(ctx, c, views.AskName())
}

func (f flow) list(ctx context.Context, c chat) {
	list, err := f.deps.Habits.List(ctx, c.userID)
	if err != nil {
		f.fail(ctx, c, err)
		return
	}
	f.show(ctx, c, views.HabitList(list))
}

func (f flow) overview(ctx context.Context, c chat) {
	o, err := f.deps.Habits.Overview(ctx, c.userID)
	if err != nil {
		f.fail(ctx, c, err)
		return
	}
	f.show(ctx, c, views.Overview(*o))
}

func (f flow) settings(ctx context.Context, c chat) {
	u, err := f.deps.Store.GetUser(ctx, c.userID)
	if err != nil {
		f.fail(ctx, c, err)
		return
	}
	f.show(ctx, c, views.Settings(u))
}

func (f flow) habitMenu(ctx context.Context, c chat, habitID int64) {
	d, err := f.deps.Habits.Detail(ctx, c.userID, habitID)
	if err != nil {
		f.fail(ctx, c, err)
		return
	}
	f.show(ctx, c, views.HabitMenu(*d))
}

// menuAction runs the main menu entry labelled text and reports whether
// text was one.
func (f flow) menuAction(ctx context.Context, c chat, text string) bool {
	switch text {
	case views.MenuNewHabit:
		f.newHabit(ctx, c)
	case views.MenuMyHabits:
		f.reset(ctx, c.userID)
		f.list(ctx, c)
	case views.MenuOverview:
		f.reset(ctx, c.userID)
		f.overview(ctx, c)
	case views.MenuSettings:
		f.reset(ctx, c.userID)
		f.settings(ctx, c)
	case views.MenuHelp:
		f.reset(ctx, c.userID)
		f.help(ctx, c)
	default:
		return false
	}
	return true
}
