package store

import (
	"context"
	"time"

	"credence/internal/credential/models"
	id "credence/pkg/domain"
)

// Store persists credentials. Implementations return sentinel errors
// (pkg/platform/sentinel) for infrastructure facts; services translate them
// into domain errors.
type Store interface {
	// Create inserts a new credential. Returns sentinel.ErrConflict when
	// the verification code or certificate number is already taken.
	Create(ctx context.Context, credential *models.Credential) error

	FindByID(ctx context.Context, credentialID id.CredentialID) (*models.Credential, error)
	FindByCode(ctx context.Context, verificationCode string) (*models.Credential, error)
	FindByNumber(ctx context.Context, certificateNo string) (*models.Credential, error)

	// VerificationCodeExists answers the identifier generator's global
	// uniqueness probe.
	VerificationCodeExists(ctx context.Context, code string) (bool, error)

	// Execute atomically loads the credential, runs validate, and if it
	// passes applies mutate and persists the result. The implementation
	// holds its lock (mutex or FOR UPDATE) across both callbacks so
	// concurrent lifecycle transitions serialize.
	Execute(ctx context.Context, credentialID id.CredentialID,
		validate func(*models.Credential) error,
		mutate func(*models.Credential)) (*models.Credential, error)

	// UpdateAnchorResult writes the terminal anchoring outcome. Returns
	// sentinel.ErrInvalidState if the anchor status is already terminal;
	// PENDING can never be re-entered.
	UpdateAnchorResult(ctx context.Context, credentialID id.CredentialID,
		status models.AnchorStatus, ledgerRef string, now time.Time) error

	// InTx runs fn atomically: store calls made with the context fn receives
	// commit together or not at all. Issuance uses it so a failed credential
	// insert rolls back the sequence number it allocated.
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// SequenceStore allocates per-(institution, year) certificate sequence
// numbers atomically. Deliberately not a count query: see the identifier
// package contract.
type SequenceStore interface {
	NextSequence(ctx context.Context, institutionCode string, year int) (int, error)
}
