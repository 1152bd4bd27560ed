package models

import (
	"time"

	id "credence/pkg/domain"
	dErrors "credence/pkg/domain-errors"
)

// Credential is the anchored artifact: an academic award whose authenticity
// any third party can check without trusting our database alone.
//
// Invariants:
//   - CertificateNo and VerificationCode are globally unique and immutable
//     after creation
//   - DataHash is computed once at creation over the canonical payload and
//     never recomputed; it is the value anchored on the external ledger
//   - Status transitions follow the monotone machine on Status
//   - Revocation fields are populated only when Status is REVOKED
type Credential struct {
	ID            id.CredentialID  `json:"id"`
	InstitutionID id.InstitutionID `json:"institution_id"`
	IssuerID      id.IssuerID      `json:"issuer_id"`

	CertificateNo    string `json:"certificate_no"`
	VerificationCode string `json:"verification_code"`

	StudentName    string            `json:"student_name"`
	StudentID      string            `json:"student_id,omitempty"`
	DateOfBirth    *time.Time        `json:"date_of_birth,omitempty"`
	NationalID     string            `json:"national_id,omitempty"`
	ProgramName    string            `json:"program_name"`
	ProgramType    ProgramType       `json:"program_type"`
	ClassOfDegree  string            `json:"class_of_degree,omitempty"`
	CGPA           *float64          `json:"cgpa,omitempty"`
	GraduationDate time.Time         `json:"graduation_date"`
	StartDate      *time.Time        `json:"start_date,omitempty"`
	EndDate        *time.Time        `json:"end_date,omitempty"`
	Metadata       map[string]string `json:"metadata,omitempty"`

	DataHash        string       `json:"data_hash"`
	AnchorStatus    AnchorStatus `json:"anchor_status"`
	LedgerReference string       `json:"ledger_reference,omitempty"`

	Status        Status       `json:"status"`
	RevokedAt     *time.Time   `json:"revoked_at,omitempty"`
	RevokedReason string       `json:"revoked_reason,omitempty"`
	RevokedBy     *id.IssuerID `json:"revoked_by,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CanRevoke checks whether the credential may transition to REVOKED.
func (c *Credential) CanRevoke() error {
	if c.Status == StatusRevoked {
		return dErrors.New(dErrors.CodeInvariantViolation, "credential is already revoked")
	}
	if !c.Status.CanTransitionTo(StatusRevoked) {
		return dErrors.New(dErrors.CodeInvariantViolation, "credential cannot be revoked from its current state")
	}
	return nil
}

// ApplyRevocation transitions the credential to REVOKED. One-way; call
// CanRevoke first. The ledger anchor is deliberately untouched: the anchored
// digest remains a historical fact, current validity is a local-authority
// fact.
func (c *Credential) ApplyRevocation(revokedBy id.IssuerID, reason string, now time.Time) {
	c.Status = StatusRevoked
	c.RevokedAt = &now
	c.RevokedReason = reason
	c.RevokedBy = &revokedBy
	c.UpdatedAt = now
}

// CanSuspend checks whether the credential may transition to SUSPENDED.
func (c *Credential) CanSuspend() error {
	if !c.Status.CanTransitionTo(StatusSuspended) {
		return dErrors.New(dErrors.CodeInvariantViolation, "only active credentials can be suspended")
	}
	return nil
}

// ApplySuspension transitions the credential to SUSPENDED.
func (c *Credential) ApplySuspension(now time.Time) {
	c.Status = StatusSuspended
	c.UpdatedAt = now
}

// CanReinstate checks whether a suspended credential may return to ACTIVE.
func (c *Credential) CanReinstate() error {
	if c.Status != StatusSuspended {
		return dErrors.New(dErrors.CodeInvariantViolation, "only suspended credentials can be reinstated")
	}
	return nil
}

// ApplyReinstatement transitions the credential back to ACTIVE.
func (c *Credential) ApplyReinstatement(now time.Time) {
	c.Status = StatusActive
	c.UpdatedAt = now
}

// ApplyAnchorResult records the terminal anchoring outcome. Returns an error
// if the anchor state is already settled so a late or duplicate writeback
// can never flip a terminal state or mint a second ledger reference.
func (c *Credential) ApplyAnchorResult(status AnchorStatus, ledgerRef string, now time.Time) error {
	if c.AnchorStatus.Terminal() {
		return dErrors.New(dErrors.CodeInvariantViolation, "anchor status is already terminal")
	}
	if !status.Terminal() {
		return dErrors.New(dErrors.CodeInvariantViolation, "anchor result must be CONFIRMED or FAILED")
	}
	c.AnchorStatus = status
	c.LedgerReference = ledgerRef
	c.UpdatedAt = now
	return nil
}

// PublicView is the redacted projection returned to verifiers. It omits
// personally identifying fields that have no business on a public endpoint.
type PublicView struct {
	CertificateNo    string      `json:"certificate_no"`
	VerificationCode string      `json:"verification_code"`
	StudentName      string      `json:"student_name"`
	ProgramName      string      `json:"program_name"`
	ProgramType      ProgramType `json:"program_type"`
	ClassOfDegree    string      `json:"class_of_degree,omitempty"`
	CGPA             *float64    `json:"cgpa,omitempty"`
	GraduationDate   time.Time   `json:"graduation_date"`
	DataHash         string      `json:"data_hash"`
	LedgerReference  string      `json:"ledger_reference,omitempty"`
}

// Public returns the verifier-facing projection of the credential.
func (c *Credential) Public() PublicView {
	return PublicView{
		CertificateNo:    c.CertificateNo,
		VerificationCode: c.VerificationCode,
		StudentName:      c.StudentName,
		ProgramName:      c.ProgramName,
		ProgramType:      c.ProgramType,
		ClassOfDegree:    c.ClassOfDegree,
		CGPA:             c.CGPA,
		GraduationDate:   c.GraduationDate,
		DataHash:         c.DataHash,
		LedgerReference:  c.LedgerReference,
	}
}
