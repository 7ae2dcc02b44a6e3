package session

import (
	"context"
	"strings"
	"sync"
)

// Session is the current session slot. An empty Token means anonymous.
type Session struct {
	Token string `json:"token,omitempty"`
}

// Present reports whether the session carries a token.
func (s Session) Present() bool {
	return strings.TrimSpace(s.Token) != ""
}

// Store abstracts persistence of the session slot.
type Store interface {
	Get(ctx context.Context) (Session, error)
	Set(ctx context.Context, token string) error
	Clear(ctx context.Context) error
}

// MemoryStore keeps the session in process memory.
type MemoryStore struct {
	mu    sync.Mutex
	token string
}

// NewMemoryStore returns a MemoryStore seeded with token, which may be empty.
func NewMemoryStore(token string) *MemoryStore {
	return &MemoryStore{token: strings.TrimSpace(token)}
}

// Get returns the current session.
func (s *MemoryStore) Get(context.Context) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Session{Token: s.token}, nil
}

// Set overwrites the stored token. A blank token clears the session.
func (s *MemoryStore) Set(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = strings.TrimSpace(token)
	return nil
}

// Clear removes the stored token.
func (s *MemoryStore) Clear(ctx context.Context) error {
	return s.Set(ctx, "")
}
