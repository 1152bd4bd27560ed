// Package models defines the graduation pipeline handoff entity. Upstream
// academic systems compute credits and CGPA; this side consumes them as
// opaque inputs and drives them toward credential issuance.
package models

import (
	"time"

	credmodels "credence/internal/credential/models"
	id "credence/pkg/domain"
	dErrors "credence/pkg/domain-errors"
)

// Status is the graduation request state machine. REJECTED and CERTIFIED
// are terminal. CERTIFYING marks a request claimed by an in-flight
// certification so concurrent certifies cannot both issue a credential.
type Status string

const (
	StatusPending    Status = "PENDING"
	StatusApproved   Status = "APPROVED"
	StatusRejected   Status = "REJECTED"
	StatusCertifying Status = "CERTIFYING"
	StatusCertified  Status = "CERTIFIED"
)

func (s Status) Terminal() bool {
	return s == StatusRejected || s == StatusCertified
}

// Request is one student's graduation handoff. At most one exists per
// enrollment; creation with a duplicate enrollment is rejected.
type Request struct {
	ID            id.GraduationRequestID `json:"id"`
	EnrollmentID  id.EnrollmentID        `json:"enrollment_id"`
	InstitutionID id.InstitutionID       `json:"institution_id"`

	StudentName string                 `json:"student_name"`
	StudentID   string                 `json:"student_id,omitempty"`
	ProgramName string                 `json:"program_name"`
	ProgramType credmodels.ProgramType `json:"program_type"`

	// TotalCredits, CGPA and ClassOfDegree arrive precomputed from the
	// academic records system and are never recomputed here.
	TotalCredits   int       `json:"total_credits"`
	CGPA           float64   `json:"cgpa"`
	ClassOfDegree  string    `json:"class_of_degree"`
	GraduationDate time.Time `json:"graduation_date"`

	Status          Status           `json:"status"`
	RejectionReason string           `json:"rejection_reason,omitempty"`
	CredentialID    *id.CredentialID `json:"credential_id,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CanApprove checks the PENDING -> APPROVED transition.
func (r *Request) CanApprove() error {
	if r.Status != StatusPending {
		return dErrors.New(dErrors.CodeInvariantViolation, "only pending graduation requests can be approved")
	}
	return nil
}

// ApplyApproval moves the request to APPROVED.
func (r *Request) ApplyApproval(now time.Time) {
	r.Status = StatusApproved
	r.UpdatedAt = now
}

// CanReject checks the PENDING -> REJECTED transition. Approved requests
// cannot be rejected; they are already on the issuance track.
func (r *Request) CanReject() error {
	if r.Status != StatusPending {
		return dErrors.New(dErrors.CodeInvariantViolation, "only pending graduation requests can be rejected")
	}
	return nil
}

// ApplyRejection moves the request to its REJECTED terminal state.
func (r *Request) ApplyRejection(reason string, now time.Time) {
	r.Status = StatusRejected
	r.RejectionReason = reason
	r.UpdatedAt = now
}

// CanCertify checks the APPROVED -> CERTIFYING claim.
func (r *Request) CanCertify() error {
	switch r.Status {
	case StatusApproved:
		return nil
	case StatusCertifying:
		return dErrors.New(dErrors.CodeInvariantViolation, "certification is already in progress for this request")
	case StatusCertified:
		return dErrors.New(dErrors.CodeInvariantViolation, "graduation request is already certified")
	default:
		return dErrors.New(dErrors.CodeInvariantViolation, "only approved graduation requests can be certified")
	}
}

// ApplyCertifyingClaim marks the request claimed for certification.
func (r *Request) ApplyCertifyingClaim(now time.Time) {
	r.Status = StatusCertifying
	r.UpdatedAt = now
}

// CanCompleteCertification checks that a certification claim is held.
func (r *Request) CanCompleteCertification() error {
	if r.Status != StatusCertifying {
		return dErrors.New(dErrors.CodeInvariantViolation, "no certification in progress for this request")
	}
	return nil
}

// ApplyCertificationAbort releases the claim after a failed issuance so
// certification can be retried.
func (r *Request) ApplyCertificationAbort(now time.Time) {
	r.Status = StatusApproved
	r.UpdatedAt = now
}

// ApplyCertification links the issued credential and moves the request to
// its CERTIFIED terminal state.
func (r *Request) ApplyCertification(credentialID id.CredentialID, now time.Time) {
	r.Status = StatusCertified
	r.CredentialID = &credentialID
	r.UpdatedAt = now
}
