package store

import (
	"context"
	"sync"

	"credence/internal/institution/models"
	id "credence/pkg/domain"
	"credence/pkg/platform/sentinel"
)

// MemoryStore holds institutions and issuers in memory for development and
// tests.
type MemoryStore struct {
	mu           sync.RWMutex
	institutions map[id.InstitutionID]*models.Institution
	issuers      map[id.IssuerID]*models.Issuer
}

func NewMemory() *MemoryStore {
	return &MemoryStore{
		institutions: make(map[id.InstitutionID]*models.Institution),
		issuers:      make(map[id.IssuerID]*models.Issuer),
	}
}

// SeedInstitution registers an institution. Test and bootstrap helper.
func (s *MemoryStore) SeedInstitution(institution *models.Institution) {
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := *institution
	s.institutions[institution.ID] = &clone
}

// SeedIssuer registers an issuer. Test and bootstrap helper.
func (s *MemoryStore) SeedIssuer(issuer *models.Issuer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := *issuer
	s.issuers[issuer.ID] = &clone
}

func (s *MemoryStore) FindInstitution(_ context.Context, institutionID id.InstitutionID) (*models.Institution, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	institution, ok := s.institutions[institutionID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	clone := *institution
	return &clone, nil
}

func (s *MemoryStore) FindIssuer(_ context.Context, issuerID id.IssuerID) (*models.Issuer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	issuer, ok := s.issuers[issuerID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	clone := *issuer
	return &clone, nil
}
