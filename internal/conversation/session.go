// Package conversation keeps the short-lived state of multi-step dialogs,
// such as creating a habit or entering a custom reminder time. Sessions are
// not durable and expire after a period of inactivity.
package conversation

import (
	"context"
	"time"

	"github.com/edgard/habitbot/internal/database"
)

// State is the step a user is in.
type State string

const (
	StateIdle               State = "idle"
	StateAwaitingName       State = "awaiting_name"
	StateAwaitingType       State = "awaiting_type"
	StateAwaitingUnit       State = "awaiting_unit"
	StateAwaitingAllowNotes State = "awaiting_allow_notes"
	StateAwaitingNote       State = "awaiting_note"
	StateAwaitingQuantity   State = "awaiting_quantity"
	StateAwaitingRename     State = "awaiting_rename"
	StateAwaitingTimezone   State = "awaiting_timezone"
	StateAwaitingTime       State = "awaiting_time"
)

// Draft collects the answers of the habit creation dialog.
type Draft struct {
	Name       string             `json:"name,omitempty"`
	Type       database.HabitType `json:"type,omitempty"`
	Unit       string             `json:"unit,omitempty"`
	AllowNotes bool               `json:"allow_notes,omitempty"`
}

// Session is one user's dialog state.
type Session struct {
	State     State     `json:"state"`
	Draft     Draft     `json:"draft"`
	HabitID   int64     `json:"habit_id,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Idle reports whether no dialog is in progress.
func (s *Session) Idle() bool {
	return s == nil || s.State == "" || s.State == StateIdle
}

// Store persists sessions by Telegram user ID. Get returns an idle session
// when none is stored or the stored one expired.
type Store interface {
	Get(ctx context.Context, userID int64) (*Session, error)
	Save(ctx context.Context, userID int64, s *Session) error
	Clear(ctx context.Context, userID int64) error
	// Sweep drops expired sessions and returns how many were removed.
	Sweep(ctx context.Context) (int, error)
}

func newIdle() *Session {
	return &Session{State: StateIdle}
}
