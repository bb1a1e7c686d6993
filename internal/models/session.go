package models

import "sync"

// ReviewSession tracks one authenticated reviewer's position in the
// dataset. Sessions are shared mutable state: concurrent requests
// bearing the same token serialize through the session's own lock.
type ReviewSession struct {
	mu sync.Mutex

	Token    string
	Username string
	Cursor   int
}

// Lock acquires the session for the duration of one operation.
func (s *ReviewSession) Lock() { s.mu.Lock() }

// Unlock releases the session.
func (s *ReviewSession) Unlock() { s.mu.Unlock() }
