package conversation

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps sessions in a map. Expired sessions are invisible to Get
// and removed by Sweep.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[int64]Session
	ttl      time.Duration
	now      func() time.Time
}

// NewMemoryStore creates an in-memory store. now may be nil.
func NewMemoryStore(ttl time.Duration, now func() time.Time) *MemoryStore {
	if now == nil {
		now = time.Now
	}
	return &MemoryStore{
		sessions: make(map[int64]Session),
		ttl:      ttl,
		now:      now,
	}
}

func (m *MemoryStore) expired(s Session) bool {
	return m.ttl > 0 && m.now().Sub(s.UpdatedAt) > m.ttl
}

func (m *MemoryStore) Get(_ context.Context, userID int64) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[userID]
	if !ok || m.expired(s) {
		delete(m.sessions, userID)
		return newIdle(), nil
	}
	return &s, nil
}

func (m *MemoryStore) Save(_ context.Context, userID int64, s *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s.Idle() {
		delete(m.sessions, userID)
		return nil
	}
	s.UpdatedAt = m.now()
	m.sessions[userID] = *s
	return nil
}

func (m *MemoryStore) Clear(_ context.Context, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, userID)
	return nil
}

func (m *MemoryStore) Sweep(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for id, s := range m.sessions {
		if m.expired(s) {
			delete(m.sessions, id)
			removed++
		}
	}
	return removed, nil
}

// Len returns the number of stored sessions, expired ones included.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}
