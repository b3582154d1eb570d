package notify_test

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/habitbot/internal/database"
	apperrors "github.com/edgard/habitbot/internal/errors"
	"github.com/edgard/habitbot/internal/gemini"
	"github.com/edgard/habitbot/internal/habits"
	"github.com/edgard/habitbot/internal/notify"
)

type fakeSender struct {
	mu       sync.Mutex
	errs     []error
	calls    int
	params   []*bot.SendMessageParams
	deadline bool
}

func (f *fakeSender) SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := ctx.Deadline(); ok {
		f.deadline = true
	}
	f.calls++
	f.params = append(f.params, params)
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		if err != nil {
			return nil, err
		}
	}
	return &models.Message{ID: f.calls}, nil
}

func TestDeliver(t *testing.T) {
	t.Parallel()

	transient := errors.New("connection reset by peer")
	blocked := fmt.Errorf("%w, Forbidden: bot was blocked by the user", bot.ErrorForbidden)

	testCases := []struct {
		name      string
		errs      []error
		attempts  int
		wantCalls int
		wantErr   bool
	}{
		{name: "first attempt", attempts: 2, wantCalls: 1},
		{name: "retry then success", errs: []error{transient}, attempts: 2, wantCalls: 2},
		{name: "bounded retries", errs: []error{transient, transient, transient}, attempts: 2, wantCalls: 2, wantErr: true},
		{name: "blocked is not retried", errs: []error{blocked}, attempts: 3, wantCalls: 1, wantErr: true},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			sender := &fakeSender{errs: tc.errs}
			d := notify.NewDispatcher(sender, notify.DispatcherConfig{
				Timeout:     time.Second,
				MaxAttempts: tc.attempts,
				RetryDelay:  time.Millisecond,
			}, nil)

			err := d.Deliver(context.Background(), 42, "⏰ hi")
			if (err != nil) != tc.wantErr {
				t.Fatalf("Deliver() error = %v, wantErr %v", err, tc.wantErr)
			}
			if err != nil && !errors.Is(err, apperrors.ErrDelivery) {
				t.Errorf("Deliver() error = %v, want Delivery", err)
			}
			if sender.calls != tc.wantCalls {
				t.Errorf("calls = %d, want %d", sender.calls, tc.wantCalls)
			}
			if !sender.deadline {
				t.Error("attempt ran without a deadline")
			}
			if p := sender.params[0]; p.ChatID != int64(42) || p.Text != "⏰ hi" {
				t.Errorf("params = %+v", p)
			}
		})
	}
}

type fakePending struct {
	open []habits.Summary
	err  error
}

func (f fakePending) Pending(context.Context, int64) ([]habits.Summary, error) {
	return f.open, f.err
}

type fakeUsers struct{}

func (fakeUsers) GetUser(_ context.Context, id int64) (*database.User, error) {
	return &database.User{TelegramID: id, FullName: sql.NullString{String: "Sam", Valid: true}}, nil
}

type fakeWriter struct {
	text string
	err  error
	got  gemini.ReminderRequest
}

func (f *fakeWriter) ComposeReminder(_ context.Context, req gemini.ReminderRequest) (string, error) {
	f.got = req
	return f.text, f.err
}

func TestComposer(t *testing.T) {
	t.Parallel()

	const static = "⏰ Time to check in on your habits!"
	open := []habits.Summary{{Habit: database.Habit{Name: "Read"}, Streak: 3}}

	testCases := []struct {
		name    string
		writer  *fakeWriter
		pending notify.PendingLister
		want    string
	}{
		{"no writer", nil, fakePending{open: open}, static},
		{"generated", &fakeWriter{text: "⏰ Keep reading, Sam!"}, fakePending{open: open}, "⏰ Keep reading, Sam!"},
		{"markdown stripped", &fakeWriter{text: "⏰ Keep **reading**, Sam!"}, fakePending{open: open}, "⏰ Keep reading, Sam!"},
		{"blank after cleaning", &fakeWriter{text: "<p> </p>"}, fakePending{open: open}, static},
		{"writer fails", &fakeWriter{err: errors.New("quota")}, fakePending{open: open}, static},
		{"nothing open", &fakeWriter{text: "unused"}, fakePending{}, static},
		{"pending fails", &fakeWriter{text: "unused"}, fakePending{err: errors.New("db down")}, static},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			var writer gemini.Client
			if tc.writer != nil {
				writer = tc.writer
			}
			c := notify.NewComposer(static, writer, tc.pending, fakeUsers{}, nil)
			if got := c.ReminderText(context.Background(), 7); got != tc.want {
				t.Errorf("ReminderText() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestComposerPassesContext(t *testing.T) {
	t.Parallel()

	w := &fakeWriter{text: "ok"}
	c := notify.NewComposer("static", w, fakePending{open: []habits.Summary{
		{Habit: database.Habit{Name: "Read"}, Streak: 3},
		{Habit: database.Habit{Name: "Walk"}},
	}}, fakeUsers{}, nil)
	c.ReminderText(context.Background(), 7)

	if w.got.FirstName != "Sam" || len(w.got.Pending) != 2 || w.got.Pending[0].Streak != 3 {
		t.Errorf("request = %+v", w.got)
	}
}
