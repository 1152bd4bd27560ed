package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"credence/internal/verification/models"
	id "credence/pkg/domain"
)

// PostgresStore persists verification attempts. Insert-only: the table has
// no UPDATE or DELETE paths in this codebase.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Append(ctx context.Context, attempt models.Attempt) error {
	var credentialID sql.Null[uuid.UUID]
	if attempt.CredentialID != nil {
		credentialID = sql.Null[uuid.UUID]{V: uuid.UUID(*attempt.CredentialID), Valid: true}
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO verification_attempts (
			id, credential_id, method, lookup_value, outcome,
			ip_address, user_agent, browser, os, organization, created_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		uuid.UUID(attempt.ID), credentialID, string(attempt.Method), attempt.LookupValue, string(attempt.Outcome),
		attempt.IPAddress, attempt.UserAgent, attempt.Browser, attempt.OS, attempt.Organization, attempt.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("append verification attempt: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListByCredential(ctx context.Context, credentialID id.CredentialID) ([]models.Attempt, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, credential_id, method, lookup_value, outcome,
		       ip_address, user_agent, browser, os, organization, created_at
		FROM verification_attempts
		WHERE credential_id = $1
		ORDER BY created_at`,
		uuid.UUID(credentialID),
	)
	if err != nil {
		return nil, fmt.Errorf("list verification attempts: %w", err)
	}
	defer rows.Close()

	var out []models.Attempt
	for rows.Next() {
		var (
			attempt models.Attempt
			aID     uuid.UUID
			credID  sql.Null[uuid.UUID]
			method  string
			outcome string
		)
		if err := rows.Scan(&aID, &credID, &method, &attempt.LookupValue, &outcome,
			&attempt.IPAddress, &attempt.UserAgent, &attempt.Browser, &attempt.OS,
			&attempt.Organization, &attempt.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan verification attempt: %w", err)
		}
		attempt.ID = id.AttemptID(aID)
		if credID.Valid {
			cid := id.CredentialID(credID.V)
			attempt.CredentialID = &cid
		}
		attempt.Method = models.LookupMethod(method)
		attempt.Outcome = models.Outcome(outcome)
		out = append(out, attempt)
	}
	return out, rows.Err()
}
