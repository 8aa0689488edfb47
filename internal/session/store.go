// Package session holds the server-assigned identifier of the current conversation.
package session

import (
	"sync"

	apperrors "github.com/xperiencelabs/archat/internal/errors"
)

// Store keeps the current session id. It has a single writer per conversation;
// the lock only protects concurrent readers such as the interface goroutine.
type Store struct {
	mu sync.RWMutex
	id string
}

// NewStore creates an uninitialized store
func NewStore() *Store {
	return &Store{}
}

// Get returns the session id and whether one has been set
func (s *Store) Get() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.id, s.id != ""
}

// Set replaces the session id. An empty id is an initialization failure and
// leaves the store unchanged.
func (s *Store) Set(id string) error {
	if id == "" {
		return apperrors.NewStateError("session").
			WithMessage(apperrors.ReasonEmptySessionID).
			WithUserMessage(apperrors.ReasonEmptySessionID).
			WithOperation("set").
			Build()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.id = id
	return nil
}

// IsInitialized reports whether a session id is present
func (s *Store) IsInitialized() bool {
	_, ok := s.Get()
	return ok
}

// Reset discards the session, used when the owning conversation is torn down
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.id = ""
}
