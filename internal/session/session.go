// Package session holds per-conversation state: the customer name, the
// last product listing and a cart of pending line items.
package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/crave-grocer/api/internal/catalog"
	"github.com/crave-grocer/api/internal/metrics"
)

// ErrSessionNotFound is returned for unknown or expired session ids.
var ErrSessionNotFound = errors.New("session not found")

// CartItem is a pending line item awaiting checkout.
type CartItem struct {
	Ref      catalog.Ref
	Quantity int
}

// Session is the state of a single conversation.
type Session struct {
	ID    uuid.UUID
	Query *QueryContext

	mu       sync.Mutex
	customer string
	cart     []CartItem
	lastSeen time.Time
}

func newSession(now time.Time) *Session {
	return &Session{
		ID:       uuid.New(),
		Query:    NewQueryContext(),
		lastSeen: now,
	}
}

// SetCustomer records the name the customer introduced themselves with.
func (s *Session) SetCustomer(name string) {
	s.mu.Lock()
	s.customer = strings.TrimSpace(name)
	s.mu.Unlock()
}

// Customer returns the customer name, or "" if none was set.
func (s *Session) Customer() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.customer
}

// AddToCart appends a pending item and returns the new cart size.
func (s *Session) AddToCart(item CartItem) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cart = append(s.cart, item)
	return len(s.cart)
}

// Cart returns a copy of the pending items.
func (s *Session) Cart() []CartItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]CartItem, len(s.cart))
	copy(out, s.cart)
	return out
}

// DropCart removes the first n pending items, leaving anything added after
// them in place.
func (s *Session) DropCart(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n >= len(s.cart) {
		s.cart = nil
		return
	}
	if n > 0 {
		s.cart = append([]CartItem(nil), s.cart[n:]...)
	}
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

func (s *Session) idleSince(now time.Time) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return now.Sub(s.lastSeen)
}

// Manager tracks live sessions and expires idle ones.
type Manager struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]*Session
	ttl      time.Duration
	now      func() time.Time
}

// NewManager creates a Manager. A ttl <= 0 disables expiry.
func NewManager(ttl time.Duration) *Manager {
	return &Manager{
		sessions: make(map[uuid.UUID]*Session),
		ttl:      ttl,
		now:      time.Now,
	}
}

// Create starts a new session.
func (m *Manager) Create() *Session {
	s := newSession(m.now())
	m.mu.Lock()
	m.sessions[s.ID] = s
	metrics.SessionsActive.Set(float64(len(m.sessions)))
	m.mu.Unlock()
	return s
}

// Get returns a live session and marks it as active.
func (m *Manager) Get(id uuid.UUID) (*Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	s.touch(m.now())
	return s, nil
}

// Delete ends a session. Deleting an unknown session is a no-op.
func (m *Manager) Delete(id uuid.UUID) {
	m.mu.Lock()
	delete(m.sessions, id)
	metrics.SessionsActive.Set(float64(len(m.sessions)))
	m.mu.Unlock()
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Sweep removes sessions idle for longer than the ttl and returns how many
// were removed.
func (m *Manager) Sweep(now time.Time) int {
	if m.ttl <= 0 {
		return 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for id, s := range m.sessions {
		if s.idleSince(now) > m.ttl {
			delete(m.sessions, id)
			removed++
		}
	}
	metrics.SessionsActive.Set(float64(len(m.sessions)))
	return removed
}

// Run sweeps expired sessions every interval until ctx is done.
// This should be called as a goroutine: go manager.Run(ctx, time.Minute)
func (m *Manager) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Sweep(m.now())
		}
	}
}
