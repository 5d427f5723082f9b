package models

import (
	"crypto/rand"
	"encoding/hex"
	"sync"
	"time"
)

// PendingAction is a ban request waiting for the actor to pick a variant.
type PendingAction struct {
	ActorID   int64
	TargetID  int64
	ChatID    int64
	Reason    string
	ExpiresAt time.Time
}

// PendingActionManager keeps pending actions keyed by a short random token that fits in
// Telegram callback data.
type PendingActionManager struct {
	actions map[string]PendingAction
	ttl     time.Duration
	now     func() time.Time
	mu      sync.Mutex
}

// NewPendingActionManager creates a manager whose entries live for ttl.
func NewPendingActionManager(ttl time.Duration) *PendingActionManager {
	return &PendingActionManager{
		actions: make(map[string]PendingAction),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Add stores the action and returns its token.
func (m *PendingActionManager) Add(action PendingAction) string {
	token := newToken()

	m.mu.Lock()
	defer m.mu.Unlock()

	m.purgeLocked()
	action.ExpiresAt = m.now().Add(m.ttl)
	m.actions[token] = action
	return token
}

// Take removes and returns the action for token. Expired or unknown tokens return false.
func (m *PendingActionManager) Take(token string) (PendingAction, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	action, ok := m.actions[token]
	if !ok {
		return PendingAction{}, false
	}
	delete(m.actions, token)

	if m.now().After(action.ExpiresAt) {
		return PendingAction{}, false
	}
	return action, true
}

// Peek returns the action for token without consuming it.
func (m *PendingActionManager) Peek(token string) (PendingAction, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	action, ok := m.actions[token]
	if !ok || m.now().After(action.ExpiresAt) {
		return PendingAction{}, false
	}
	return action, true
}

// purgeLocked drops expired entries; Add calls it so the map stays bounded without a
// background goroutine.
func (m *PendingActionManager) purgeLocked() {
	now := m.now()
	for token, action := range m.actions {
		if now.After(action.ExpiresAt) {
			delete(m.actions, token)
		}
	}
}

func newToken() string {
	var b [6]byte
	if _, err := rand.Read(b[:]); err != nil {
		// crypto/rand does not fail on supported platforms
		panic(err)
	}
	return hex.EncodeToString(b[:])
}
