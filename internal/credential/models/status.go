package models

// Status is the lifecycle state of a credential.
//
// Transitions are monotone:
//
//	ACTIVE ⇄ SUSPENDED
//	ACTIVE → REVOKED
//	SUSPENDED → REVOKED
//
// REVOKED is terminal. There is no unrevoke; reinstatement means issuing a
// new credential.
type Status string

const (
	StatusActive    Status = "ACTIVE"
	StatusSuspended Status = "SUSPENDED"
	StatusRevoked   Status = "REVOKED"
)

// CanTransitionTo reports whether the lifecycle state machine allows the move.
func (s Status) CanTransitionTo(target Status) bool {
	switch s {
	case StatusActive:
		return target == StatusSuspended || target == StatusRevoked
	case StatusSuspended:
		return target == StatusActive || target == StatusRevoked
	default:
		return false
	}
}

// AnchorStatus tracks the credential's external ledger anchoring.
//
// PENDING is the only non-terminal state: the background anchor worker moves
// it to CONFIRMED or FAILED exactly once and the store rejects any update
// that would re-enter PENDING or overwrite a terminal state.
type AnchorStatus string

const (
	AnchorPending   AnchorStatus = "PENDING"
	AnchorConfirmed AnchorStatus = "CONFIRMED"
	AnchorFailed    AnchorStatus = "FAILED"
)

// Terminal reports whether the anchoring outcome is settled.
func (a AnchorStatus) Terminal() bool {
	return a == AnchorConfirmed || a == AnchorFailed
}

// ProgramType is the academic program category of a credential.
type ProgramType string

const (
	ProgramCertificate  ProgramType = "CERTIFICATE"
	ProgramDiploma      ProgramType = "DIPLOMA"
	ProgramAssociate    ProgramType = "ASSOCIATE"
	ProgramBachelors    ProgramType = "BACHELORS"
	ProgramMasters      ProgramType = "MASTERS"
	ProgramDoctorate    ProgramType = "DOCTORATE"
	ProgramProfessional ProgramType = "PROFESSIONAL"
)

// Valid reports whether the program type is one of the closed set.
func (p ProgramType) Valid() bool {
	switch p {
	case ProgramCertificate, ProgramDiploma, ProgramAssociate, ProgramBachelors,
		ProgramMasters, ProgramDoctorate, ProgramProfessional:
		return true
	}
	return false
}
