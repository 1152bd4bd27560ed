package store

import (
	"context"
	"sync"

	"credence/internal/verification/models"
	id "credence/pkg/domain"
)

// MemoryStore is the in-memory attempt trail for development and tests.
type MemoryStore struct {
	mu       sync.RWMutex
	attempts []models.Attempt
}

func NewMemory() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Append(_ context.Context, attempt models.Attempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempts = append(s.attempts, attempt)
	return nil
}

func (s *MemoryStore) ListByCredential(_ context.Context, credentialID id.CredentialID) ([]models.Attempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Attempt
	for _, attempt := range s.attempts {
		if attempt.CredentialID != nil && *attempt.CredentialID == credentialID {
			out = append(out, attempt)
		}
	}
	return out, nil
}

// All returns every attempt in append order. Test helper.
func (s *MemoryStore) All() []models.Attempt {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Attempt, len(s.attempts))
	copy(out, s.attempts)
	return out
}
