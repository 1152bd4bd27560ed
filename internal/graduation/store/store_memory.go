package store

import (
	"context"
	"sync"

	"credence/internal/graduation/models"
	id "credence/pkg/domain"
	"credence/pkg/platform/sentinel"
)

// MemoryStore keeps graduation requests in memory for development and tests.
type MemoryStore struct {
	mu           sync.RWMutex
	byID         map[id.GraduationRequestID]*models.Request
	byEnrollment map[id.EnrollmentID]*models.Request
}

func NewMemory() *MemoryStore {
	return &MemoryStore{
		byID:         make(map[id.GraduationRequestID]*models.Request),
		byEnrollment: make(map[id.EnrollmentID]*models.Request),
	}
}

func cloneRequest(request *models.Request) *models.Request {
	clone := *request
	if request.CredentialID != nil {
		cid := *request.CredentialID
		clone.CredentialID = &cid
	}
	return &clone
}

func (s *MemoryStore) Create(_ context.Context, request *models.Request) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byEnrollment[request.EnrollmentID]; exists {
		return sentinel.ErrConflict
	}
	if _, exists := s.byID[request.ID]; exists {
		return sentinel.ErrConflict
	}
	clone := cloneRequest(request)
	s.byID[request.ID] = clone
	s.byEnrollment[request.EnrollmentID] = clone
	return nil
}

func (s *MemoryStore) FindByID(_ context.Context, requestID id.GraduationRequestID) (*models.Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	request, ok := s.byID[requestID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return cloneRequest(request), nil
}

func (s *MemoryStore) FindByEnrollment(_ context.Context, enrollmentID id.EnrollmentID) (*models.Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	request, ok := s.byEnrollment[enrollmentID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return cloneRequest(request), nil
}

func (s *MemoryStore) Execute(_ context.Context, requestID id.GraduationRequestID,
	validate func(*models.Request) error,
	mutate func(*models.Request)) (*models.Request, error) {

	s.mu.Lock()
	defer s.mu.Unlock()
	request, ok := s.byID[requestID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if err := validate(request); err != nil {
		return nil, err
	}
	mutate(request)
	return cloneRequest(request), nil
}
