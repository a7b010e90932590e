package refresh

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is a process-local [Store] for single-instance deployments
// and tests. Atomicity comes from a single mutex; the record layout and
// never-delete semantics match the SQL store.
type MemoryStore struct {
	mu     sync.Mutex
	byID   map[string]*Token
	byHash map[string]string
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:   make(map[string]*Token),
		byHash: make(map[string]string),
	}
}

// Create inserts a record.
func (s *MemoryStore) Create(ctx context.Context, token Token) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.insertLocked(token)
	return nil
}

// FindByHash returns a copy of the record matching the hash.
func (s *MemoryStore) FindByHash(ctx context.Context, hash string) (*Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.byHash[hash]
	if !ok {
		return nil, ErrNotFound
	}
	copy := *s.byID[id]
	return &copy, nil
}

// Rotate revokes currentID and inserts successor under one lock hold.
func (s *MemoryStore) Rotate(ctx context.Context, currentID string, successor Token) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.byID[currentID]
	if !ok {
		return ErrNotFound
	}
	if current.RevokedAt != nil {
		return ErrRevoked
	}

	now := time.Now()
	current.RevokedAt = &now
	s.insertLocked(successor)
	return nil
}

// Revoke sets revoked-at if still null. Idempotent.
func (s *MemoryStore) Revoke(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	token, ok := s.byID[id]
	if !ok || token.RevokedAt != nil {
		return nil
	}
	now := time.Now()
	token.RevokedAt = &now
	return nil
}

// RevokeAllForUser revokes every live record owned by the user.
func (s *MemoryStore) RevokeAllForUser(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	for _, token := range s.byID {
		if token.UserID == userID && token.RevokedAt == nil {
			token.RevokedAt = &now
		}
	}
	return nil
}

func (s *MemoryStore) insertLocked(token Token) {
	if token.CreatedAt.IsZero() {
		token.CreatedAt = time.Now()
	}
	stored := token
	s.byID[stored.ID] = &stored
	s.byHash[stored.TokenHash] = stored.ID
}
