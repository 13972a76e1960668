package store

import (
	"context"
	"slices"
	"sync"
	"time"
)

// Memory is a process-local store.
type Memory struct {
	mu       sync.RWMutex
	sessions map[string]ConnectedSession
	now      func() time.Time
}

// NewMemory creates an empty memory store.
func NewMemory() *Memory {
	return &Memory{sessions: make(map[string]ConnectedSession), now: time.Now}
}

// Save adds or replaces a session.
func (m *Memory) Save(_ context.Context, s ConnectedSession) error {
	if err := checkTopic(s.Topic); err != nil {
		return err
	}
	s.Icons = slices.Clone(s.Icons)
	s.ChainIDs = slices.Clone(s.ChainIDs)
	s.Accounts = slices.Clone(s.Accounts)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.Topic] = s
	return nil
}

// List returns the unexpired sessions, oldest first.
func (m *Memory) List(_ context.Context) ([]ConnectedSession, error) {
	now := m.now()
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]ConnectedSession, 0, len(m.sessions))
	for _, s := range m.sessions {
		if s.Expired(now) {
			continue
		}
		out = append(out, s)
	}
	sortSessions(out)
	return out, nil
}

// Revoke removes one session.
func (m *Memory) Revoke(_ context.Context, topic string) error {
	if err := checkTopic(topic); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[topic]; !ok {
		return notFound(topic)
	}
	delete(m.sessions, topic)
	return nil
}

// RevokeAll removes every session and returns how many there were.
func (m *Memory) RevokeAll(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := len(m.sessions)
	m.sessions = make(map[string]ConnectedSession)
	return n, nil
}
