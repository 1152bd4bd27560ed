// Package service orchestrates the credential lifecycle: issuance with
// identifier assignment and hash computation, ledger anchor triggering, and
// the revocation/suspension state machine.
package service

import (
	"context"
	"errors"
	"log/slog"

	"credence/internal/credential/identifier"
	"credence/internal/credential/models"
	"credence/internal/credential/store"
	institutionmodels "credence/internal/institution/models"
	institutionstore "credence/internal/institution/store"
	"credence/internal/ledger"
	"credence/internal/platform/metrics"
	id "credence/pkg/domain"
	dErrors "credence/pkg/domain-errors"
	"credence/pkg/platform/audit"
	"credence/pkg/platform/sentinel"
)

// AnchorQueue is the slice of the anchor worker the service needs.
type AnchorQueue interface {
	Enqueue(sub ledger.Submission) bool
}

// ViewInvalidator drops cached verifier-facing views of a credential after a
// lifecycle transition, so a revocation is visible immediately.
type ViewInvalidator interface {
	InvalidateCredential(ctx context.Context, credential *models.Credential)
}

// Service owns the Certificate entity's lifecycle.
type Service struct {
	credentials  store.Store
	institutions institutionstore.Store
	generator    *identifier.Generator
	anchors      AnchorQueue
	views        ViewInvalidator
	logger       *slog.Logger
	metrics      *metrics.Metrics
	recorder     *audit.Recorder
}

func New(
	credentials store.Store,
	institutions institutionstore.Store,
	generator *identifier.Generator,
	anchors AnchorQueue,
	views ViewInvalidator,
	logger *slog.Logger,
	m *metrics.Metrics,
	recorder *audit.Recorder,
) *Service {
	return &Service{
		credentials:  credentials,
		institutions: institutions,
		generator:    generator,
		anchors:      anchors,
		views:        views,
		logger:       logger,
		metrics:      m,
		recorder:     recorder,
	}
}

func (s *Service) invalidateViews(ctx context.Context, credential *models.Credential) {
	if s.views == nil {
		return
	}
	s.views.InvalidateCredential(ctx, credential)
}

// GetCredential loads a credential by ID.
func (s *Service) GetCredential(ctx context.Context, credentialID id.CredentialID) (*models.Credential, error) {
	credential, err := s.credentials.FindByID(ctx, credentialID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "credential not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "load credential")
	}
	return credential, nil
}

// requireActiveInstitution loads the institution and checks it may issue.
func (s *Service) requireActiveInstitution(ctx context.Context, institutionID id.InstitutionID) (*institutionmodels.Institution, error) {
	institution, err := s.institutions.FindInstitution(ctx, institutionID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "institution not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "load institution")
	}
	if !institution.Active {
		return nil, dErrors.New(dErrors.CodeForbidden, "institution is not active")
	}
	return institution, nil
}

func (s *Service) findIssuer(ctx context.Context, issuerID id.IssuerID) (*institutionmodels.Issuer, error) {
	issuer, err := s.institutions.FindIssuer(ctx, issuerID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeForbidden, "issuer not recognized")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "load issuer")
	}
	return issuer, nil
}
