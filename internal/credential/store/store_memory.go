package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"credence/internal/credential/models"
	id "credence/pkg/domain"
	"credence/pkg/platform/sentinel"
)

// MemoryStore is the in-memory credential store used in development and
// service unit tests. Uniqueness and lifecycle guarantees match the
// postgres implementation.
type MemoryStore struct {
	mu        sync.RWMutex
	byID      map[id.CredentialID]*models.Credential
	byCode    map[string]id.CredentialID
	byNumber  map[string]id.CredentialID
	sequences map[string]int
}

func NewMemory() *MemoryStore {
	return &MemoryStore{
		byID:      make(map[id.CredentialID]*models.Credential),
		byCode:    make(map[string]id.CredentialID),
		byNumber:  make(map[string]id.CredentialID),
		sequences: make(map[string]int),
	}
}

func (s *MemoryStore) Create(_ context.Context, credential *models.Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byID[credential.ID]; exists {
		return sentinel.ErrConflict
	}
	if _, exists := s.byCode[credential.VerificationCode]; exists {
		return sentinel.ErrConflict
	}
	if _, exists := s.byNumber[credential.CertificateNo]; exists {
		return sentinel.ErrConflict
	}

	clone := cloneCredential(credential)
	s.byID[credential.ID] = clone
	s.byCode[credential.VerificationCode] = credential.ID
	s.byNumber[credential.CertificateNo] = credential.ID
	return nil
}

func (s *MemoryStore) FindByID(_ context.Context, credentialID id.CredentialID) (*models.Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	credential, ok := s.byID[credentialID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return cloneCredential(credential), nil
}

func (s *MemoryStore) FindByCode(_ context.Context, verificationCode string) (*models.Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	credentialID, ok := s.byCode[verificationCode]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return cloneCredential(s.byID[credentialID]), nil
}

func (s *MemoryStore) FindByNumber(_ context.Context, certificateNo string) (*models.Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	credentialID, ok := s.byNumber[certificateNo]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return cloneCredential(s.byID[credentialID]), nil
}

func (s *MemoryStore) VerificationCodeExists(_ context.Context, code string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, exists := s.byCode[code]
	return exists, nil
}

func (s *MemoryStore) Execute(_ context.Context, credentialID id.CredentialID,
	validate func(*models.Credential) error,
	mutate func(*models.Credential)) (*models.Credential, error) {

	s.mu.Lock()
	defer s.mu.Unlock()

	credential, ok := s.byID[credentialID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if err := validate(credential); err != nil {
		return nil, err
	}
	mutate(credential)
	return cloneCredential(credential), nil
}

func (s *MemoryStore) UpdateAnchorResult(_ context.Context, credentialID id.CredentialID,
	status models.AnchorStatus, ledgerRef string, now time.Time) error {

	s.mu.Lock()
	defer s.mu.Unlock()

	credential, ok := s.byID[credentialID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if credential.AnchorStatus.Terminal() {
		return sentinel.ErrInvalidState
	}
	if err := credential.ApplyAnchorResult(status, ledgerRef, now); err != nil {
		return sentinel.ErrInvalidState
	}
	return nil
}

// InTx approximates transactional issuance for the in-memory store. The
// credential insert is the last call inside fn, so the sequence counters are
// the only state a failed attempt can leave behind; they are restored from a
// snapshot on error.
func (s *MemoryStore) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	s.mu.Lock()
	snapshot := make(map[string]int, len(s.sequences))
	for key, value := range s.sequences {
		snapshot[key] = value
	}
	s.mu.Unlock()

	if err := fn(ctx); err != nil {
		s.mu.Lock()
		s.sequences = snapshot
		s.mu.Unlock()
		return err
	}
	return nil
}

// NextSequence implements SequenceStore with a mutex-guarded counter keyed
// by (institution, year).
func (s *MemoryStore) NextSequence(_ context.Context, institutionCode string, year int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := fmt.Sprintf("%s/%d", institutionCode, year)
	s.sequences[key]++
	return s.sequences[key], nil
}

func cloneCredential(c *models.Credential) *models.Credential {
	clone := *c
	if c.Metadata != nil {
		clone.Metadata = make(map[string]string, len(c.Metadata))
		for k, v := range c.Metadata {
			clone.Metadata[k] = v
		}
	}
	return &clone
}
