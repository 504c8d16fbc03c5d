// Package session keeps one ViewState per browser session in memory.
package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"mtid/pkg/contracts/domain"
)

type entry struct {
	state    domain.ViewState
	lastSeen time.Time
}

// Store maps session ids to view states. Entries idle for longer than the
// TTL are dropped; a dropped session starts again from the default state.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*entry
	ttl      time.Duration
	now      func() time.Time
	logger   *slog.Logger
}

// NewStore creates a store with the given idle TTL
func NewStore(ttl time.Duration, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		sessions: make(map[string]*entry),
		ttl:      ttl,
		now:      time.Now,
		logger:   logger.With(slog.String("component", "session_store")),
	}
}

// NewID returns a fresh session id
func NewID() string {
	return uuid.NewString()
}

// Get returns a snapshot of the session state. Unknown or expired sessions
// yield the default state without being stored; only Update creates entries.
func (s *Store) Get(id string) domain.ViewState {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	e, ok := s.sessions[id]
	if !ok {
		return domain.DefaultViewState()
	}
	if s.expired(e, now) {
		delete(s.sessions, id)
		return domain.DefaultViewState()
	}
	e.lastSeen = now
	return e.state
}

// Update replaces the session state with fn's result. fn runs under the
// store lock so concurrent events on one session are applied in turn.
// When fn fails the state is left unchanged.
func (s *Store) Update(id string, fn func(domain.ViewState) (domain.ViewState, error)) (domain.ViewState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.touch(id)
	next, err := fn(e.state)
	if err != nil {
		return e.state, err
	}
	e.state = next.Normalize()
	return e.state, nil
}

// touch must be called with s.mu held
func (s *Store) touch(id string) *entry {
	now := s.now()
	e, ok := s.sessions[id]
	if !ok || s.expired(e, now) {
		e = &entry{state: domain.DefaultViewState()}
		s.sessions[id] = e
	}
	e.lastSeen = now
	return e
}

func (s *Store) expired(e *entry, now time.Time) bool {
	return s.ttl > 0 && now.Sub(e.lastSeen) > s.ttl
}

// Delete forgets a session
func (s *Store) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
}

// Len returns the number of tracked sessions, expired ones included
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Sweep removes expired sessions and returns how many were removed
func (s *Store) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for id, e := range s.sessions {
		if s.expired(e, now) {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}

// Run sweeps expired sessions every interval until ctx is done
func (s *Store) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.Sweep(); n > 0 {
				s.logger.Debug("expired sessions removed", slog.Int("count", n))
			}
		}
	}
}
