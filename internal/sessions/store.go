// Package sessions manages reviewer authentication and the process-wide
// table of active review sessions.
package sessions

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"sync"

	"github.com/fieldlens/arv/internal/models"
)

// tokenBytes is the entropy of a session token. 32 bytes keeps tokens
// comfortably unguessable.
const tokenBytes = 32

// Store associates opaque capability tokens with review sessions.
// Implementations may add eviction (TTL or a size bound) without
// changing callers.
type Store interface {
	// Open registers a fresh session for an authenticated user and
	// returns its token. The cursor starts at 0.
	Open(username string) (*models.ReviewSession, error)

	// Resolve returns the session for a token, or nil if the token is
	// unknown.
	Resolve(token string) *models.ReviewSession

	// Len returns the number of active sessions.
	Len() int
}

// MemoryStore is the in-process Store. Sessions live for the process
// lifetime; there is no TTL. An optional size bound evicts an arbitrary
// session when exceeded, which forces that reviewer to log in again.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*models.ReviewSession
	maxSize  int
}

// Option configures a MemoryStore.
type Option func(*MemoryStore)

// WithMaxSessions bounds the store to n sessions. Zero means unbounded.
func WithMaxSessions(n int) Option {
	return func(s *MemoryStore) { s.maxSize = n }
}

// NewMemoryStore creates an empty session store.
func NewMemoryStore(opts ...Option) *MemoryStore {
	s := &MemoryStore{sessions: make(map[string]*models.ReviewSession)}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Open implements Store.
func (s *MemoryStore) Open(username string) (*models.ReviewSession, error) {
	token, err := newToken()
	if err != nil {
		return nil, fmt.Errorf("generate session token: %w", err)
	}

	session := &models.ReviewSession{
		Token:    token,
		Username: username,
		Cursor:   0,
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.maxSize > 0 && len(s.sessions) >= s.maxSize {
		for k := range s.sessions {
			delete(s.sessions, k)
			break
		}
	}
	s.sessions[token] = session
	return session, nil
}

// Resolve implements Store.
func (s *MemoryStore) Resolve(token string) *models.ReviewSession {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sessions[token]
}

// Len implements Store.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

func newToken() (string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
