package session

import (
	"context"
	"fmt"
	"sync"

	"github.com/hupe1980/agentcoord/core"
)

// InMemoryStore is a volatile SessionStore storing sessions in a process
// local map. It is safe for concurrent access; Update holds the write lock
// for the duration of the mutation so read-modify-write is atomic per store.
// Each returned session is cloned to prevent external mutation of internal
// state.
type InMemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*core.CoordinationSession
}

// NewInMemoryStore constructs an empty in‑memory session store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{sessions: make(map[string]*core.CoordinationSession)}
}

// Create stores a new session. Creating an existing id is an error.
func (s *InMemoryStore) Create(_ context.Context, sess *core.CoordinationSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[sess.ID]; ok {
		return fmt.Errorf("session %s already exists", sess.ID)
	}
	s.sessions[sess.ID] = sess.Clone()
	return nil
}

// Get returns a clone of the session or core.ErrSessionNotFound.
func (s *InMemoryStore) Get(_ context.Context, id string) (*core.CoordinationSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, fmt.Errorf("session %s: %w", id, core.ErrSessionNotFound)
	}
	return sess.Clone(), nil
}

// Update applies fn to a working copy and commits it only if fn succeeds.
func (s *InMemoryStore) Update(_ context.Context, id string, fn func(*core.CoordinationSession) error) (*core.CoordinationSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, fmt.Errorf("session %s: %w", id, core.ErrSessionNotFound)
	}
	working := sess.Clone()
	if err := fn(working); err != nil {
		return nil, err
	}
	working.Touch()
	s.sessions[id] = working
	return working.Clone(), nil
}

// CountActive returns the number of sessions in the active state.
func (s *InMemoryStore) CountActive() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, sess := range s.sessions {
		if sess.IsActive() {
			n++
		}
	}
	return n
}

var _ core.SessionStore = (*InMemoryStore)(nil)
