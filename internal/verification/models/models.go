package models

import (
	"time"

	credmodels "credence/internal/credential/models"
	id "credence/pkg/domain"
)

// Outcome is the closed set of verification results. Callers must handle
// every case; there is no open-ended error string to pattern-match.
type Outcome string

const (
	OutcomeValid    Outcome = "VALID"
	OutcomeInvalid  Outcome = "INVALID"
	OutcomeRevoked  Outcome = "REVOKED"
	OutcomeNotFound Outcome = "NOT_FOUND"
	// OutcomeError means the verification system itself failed. Distinct
	// from NOT_FOUND so a verifier can never mistake "service down" for
	// "credential does not exist".
	OutcomeError Outcome = "ERROR"
)

// LookupMethod records how the verifier addressed the credential.
type LookupMethod string

const (
	LookupByCode   LookupMethod = "BY_CODE"
	LookupByNumber LookupMethod = "BY_NUMBER"
)

// Result is the verifier-facing answer. Credential and revocation details
// are populated only on the branches that carry them.
type Result struct {
	Outcome Outcome `json:"status"`
	Valid   bool    `json:"valid"`
	Message string  `json:"message"`

	Credential *credmodels.PublicView `json:"credential,omitempty"`

	// BlockchainVerified reflects the locally cached anchor status; the
	// hot path never performs a live ledger read.
	BlockchainVerified bool   `json:"blockchain_verified"`
	LedgerReference    string `json:"ledger_reference,omitempty"`

	RevokedAt     *time.Time `json:"revoked_at,omitempty"`
	RevokedReason string     `json:"revoked_reason,omitempty"`

	// CredentialID attributes the result to its credential so the attempt
	// trail stays linked even when the answer comes from the cache. Never
	// shown to verifiers.
	CredentialID *id.CredentialID `json:"-"`
}

// Attempt is one entry in the append-only verification audit trail. Never
// mutated or deleted. CredentialID is nil for NOT_FOUND lookups, which are
// still logged to support abuse monitoring.
type Attempt struct {
	ID           id.AttemptID     `json:"id"`
	CredentialID *id.CredentialID `json:"credential_id,omitempty"`
	Method       LookupMethod     `json:"method"`
	LookupValue  string           `json:"lookup_value"`
	Outcome      Outcome          `json:"outcome"`

	IPAddress    string `json:"ip_address,omitempty"`
	UserAgent    string `json:"user_agent,omitempty"`
	Browser      string `json:"browser,omitempty"`
	OS           string `json:"os,omitempty"`
	Organization string `json:"organization,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}
