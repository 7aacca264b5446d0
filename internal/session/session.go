// Package session holds the single pending interaction per user, with
// expiry. It replaces ad hoc shared flags with an explicit keyed store:
// each user's state is written under the manager lock, and message handling
// for one user is serialized through Locker.
package session

import (
	"sync"
	"time"
)

// Kind tags what follow-up a pending interaction awaits.
type Kind int

const (
	// KindClarification awaits missing required field values.
	KindClarification Kind = iota
	// KindDeleteConfirm awaits a candidate index to delete.
	KindDeleteConfirm
	// KindThinkingConfirm awaits a yes/no on committing a restructured thought.
	KindThinkingConfirm
	// KindDuplicateConfirm awaits a yes/no on adding a suspected duplicate.
	KindDuplicateConfirm
)

func (k Kind) String() string {
	switch k {
	case KindClarification:
		return "clarification"
	case KindDeleteConfirm:
		return "delete-confirm"
	case KindThinkingConfirm:
		return "thinking-confirm"
	case KindDuplicateConfirm:
		return "duplicate-confirm"
	default:
		return "unknown"
	}
}

// Pending is one awaited follow-up. Payload is owned by the component that
// created the interaction.
type Pending struct {
	UserID    int64
	Kind      Kind
	Payload   interface{}
	ExpiresAt time.Time
}

// Manager keeps at most one pending interaction per user. Expired entries
// are treated as absent. Setting a new interaction supersedes the old one.
type Manager struct {
	ttl time.Duration
	now func() time.Time

	mu      sync.Mutex
	pending map[int64]Pending
}

// NewManager creates a Manager with the given interaction TTL.
func NewManager(ttl time.Duration) *Manager {
	return &Manager{
		ttl:     ttl,
		now:     time.Now,
		pending: make(map[int64]Pending),
	}
}

// Set records a pending interaction for the user, replacing any prior one.
func (m *Manager) Set(userID int64, kind Kind, payload interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pending[userID] = Pending{
		UserID:    userID,
		Kind:      kind,
		Payload:   payload,
		ExpiresAt: m.now().Add(m.ttl),
	}
}

// Take removes and returns the user's pending interaction. Expired entries
// are dropped and reported as absent.
func (m *Manager) Take(userID int64) (Pending, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.pending[userID]
	if !ok {
		return Pending{}, false
	}
	delete(m.pending, userID)
	if m.now().After(p.ExpiresAt) {
		return Pending{}, false
	}
	return p, true
}

// Clear drops the user's pending interaction, if any.
func (m *Manager) Clear(userID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.pending, userID)
}

// Locker hands out one mutex per user so message processing stays strictly
// ordered within a user while different users proceed concurrently.
type Locker struct {
	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

// NewLocker creates an empty Locker.
func NewLocker() *Locker {
	return &Locker{locks: make(map[int64]*sync.Mutex)}
}

// Lock acquires the user's mutex and returns its release func.
func (l *Locker) Lock(userID int64) func() {
	l.mu.Lock()
	m, ok := l.locks[userID]
	if !ok {
		m = &sync.Mutex{}
		l.locks[userID] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}
