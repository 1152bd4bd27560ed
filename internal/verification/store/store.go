package store

import (
	"context"

	"credence/internal/verification/models"
	id "credence/pkg/domain"
)

// AttemptStore is the append-only verification audit trail. No update or
// delete methods exist on purpose.
type AttemptStore interface {
	Append(ctx context.Context, attempt models.Attempt) error
	ListByCredential(ctx context.Context, credentialID id.CredentialID) ([]models.Attempt, error)
}
