package session

import (
	"fmt"
	"sync"
)

// Manager enforces the single active review session and serializes
// access to it.
type Manager struct {
	mu     sync.Mutex
	active *Session
}

func NewManager() *Manager { return &Manager{} }

// Start installs a new active session. A session already in progress
// must be committed or cancelled first.
func (m *Manager) Start(s *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active != nil {
		return fmt.Errorf("session %s is already active; commit or cancel it first", m.active.ID)
	}
	m.active = s
	return nil
}

// With runs fn against the active session under the manager's lock.
func (m *Manager) With(fn func(*Session) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active == nil {
		return fmt.Errorf("no active session; select a boundary first")
	}
	return fn(m.active)
}

// End clears the active session and returns it, or nil if none.
func (m *Manager) End() *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.active
	m.active = nil
	return s
}
