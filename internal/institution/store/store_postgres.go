package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"credence/internal/institution/models"
	id "credence/pkg/domain"
	"credence/pkg/platform/sentinel"
)

// PostgresStore reads institutions and issuers from PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) FindInstitution(ctx context.Context, institutionID id.InstitutionID) (*models.Institution, error) {
	var (
		institution models.Institution
		instID      uuid.UUID
		country     sql.NullString
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, code, country, active, created_at
		FROM institutions WHERE id = $1`,
		uuid.UUID(institutionID),
	).Scan(&instID, &institution.Name, &institution.Code, &country, &institution.Active, &institution.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find institution: %w", err)
	}
	institution.ID = id.InstitutionID(instID)
	institution.Country = country.String
	return &institution, nil
}

func (s *PostgresStore) FindIssuer(ctx context.Context, issuerID id.IssuerID) (*models.Issuer, error) {
	var (
		issuer models.Issuer
		isID   uuid.UUID
		instID uuid.UUID
		email  sql.NullString
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, institution_id, name, email, can_issue, can_revoke, active, created_at
		FROM issuers WHERE id = $1`,
		uuid.UUID(issuerID),
	).Scan(&isID, &instID, &issuer.Name, &email, &issuer.CanIssue, &issuer.CanRevoke, &issuer.Active, &issuer.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find issuer: %w", err)
	}
	issuer.ID = id.IssuerID(isID)
	issuer.InstitutionID = id.InstitutionID(instID)
	issuer.Email = email.String
	return &issuer, nil
}
