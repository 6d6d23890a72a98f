// Session manager. Transcripts live for one dashboard visit only: they are
// held in process memory keyed by a client-chosen session id and evicted
// after a period of inactivity, never persisted.
package chat

import (
	"sync"
	"time"
)

// entry pairs a session with its last-touched time for eviction.
type entry struct {
	sess     *Session
	lastSeen time.Time
}

// Manager hands out sessions by id, creating them on first use and evicting
// idle ones opportunistically on access.
type Manager struct {
	mu        sync.Mutex
	assistant Streamer
	ttl       time.Duration
	sessions  map[string]*entry

	lastSweep time.Time
}

// NewManager returns a Manager whose sessions expire after ttl of inactivity.
func NewManager(assistant Streamer, ttl time.Duration) *Manager {
	return &Manager{
		assistant: assistant,
		ttl:       ttl,
		sessions:  make(map[string]*entry),
		lastSweep: time.Now(),
	}
}

// Get returns the session for id, creating it if absent, and refreshes its
// idle timer.
func (m *Manager) Get(id string) *Session {
	now := time.Now()

	m.mu.Lock()
	defer m.mu.Unlock()

	m.sweepLocked(now)

	e, ok := m.sessions[id]
	if !ok {
		e = &entry{sess: NewSession(m.assistant)}
		m.sessions[id] = e
	}
	e.lastSeen = now
	return e.sess
}

// Drop removes a session immediately (used on logout).
func (m *Manager) Drop(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
}

// sweepLocked evicts idle sessions at most once per ttl interval.
func (m *Manager) sweepLocked(now time.Time) {
	if m.ttl <= 0 || now.Sub(m.lastSweep) < m.ttl {
		return
	}
	m.lastSweep = now
	for id, e := range m.sessions {
		if now.Sub(e.lastSeen) > m.ttl {
			delete(m.sessions, id)
		}
	}
}
