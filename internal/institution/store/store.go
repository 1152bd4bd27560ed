package store

import (
	"context"

	"credence/internal/institution/models"
	id "credence/pkg/domain"
)

// Store reads institutions and issuers. Account administration happens out
// of band; this subsystem only consults the authorization facts.
type Store interface {
	FindInstitution(ctx context.Context, institutionID id.InstitutionID) (*models.Institution, error)
	FindIssuer(ctx context.Context, issuerID id.IssuerID) (*models.Issuer, error)
}
