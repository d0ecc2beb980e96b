package store

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is a single-process Store. Every Put prunes expired sessions
// first so the map stays bounded under lost or duplicate messages.
type MemoryStore struct {
	mu       sync.Mutex
	ttl      time.Duration
	now      func() time.Time
	sessions map[string]Session
	closed   bool
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		ttl:      ttl,
		now:      time.Now,
		sessions: make(map[string]Session),
	}
}

func (m *MemoryStore) Put(_ context.Context, s Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	m.pruneLocked(m.now())
	if s.CreatedAt.IsZero() {
		s.CreatedAt = m.now()
	}
	m.sessions[s.TraceID] = s
	return nil
}

func (m *MemoryStore) Get(_ context.Context, traceID string) (Session, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return Session{}, false, ErrClosed
	}
	s, ok := m.sessions[traceID]
	return s, ok, nil
}

func (m *MemoryStore) Take(_ context.Context, traceID string) (Session, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return Session{}, false, ErrClosed
	}
	s, ok := m.sessions[traceID]
	if ok {
		delete(m.sessions, traceID)
	}
	return s, ok, nil
}

func (m *MemoryStore) Prune(_ context.Context, now time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return 0, ErrClosed
	}
	return m.pruneLocked(now), nil
}

func (m *MemoryStore) pruneLocked(now time.Time) int {
	n := 0
	for id, s := range m.sessions {
		if s.Expired(now, m.ttl) {
			delete(m.sessions, id)
			n++
		}
	}
	return n
}

func (m *MemoryStore) Len(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return 0, ErrClosed
	}
	return len(m.sessions), nil
}

func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.sessions = nil
	return nil
}
