// Package domain holds typed identifiers shared across services.
//
// Each ID is a distinct type over uuid.UUID so the compiler rejects
// cross-entity mixups (passing an IssuerID where a CredentialID is
// expected). Parse functions enforce the invariant that IDs are valid,
// non-nil UUIDs at trust boundaries.
package domain

import (
	"github.com/google/uuid"

	dErrors "credence/pkg/domain-errors"
)

type (
	// InstitutionID identifies an issuing institution.
	InstitutionID uuid.UUID

	// IssuerID identifies an authorized issuer within an institution.
	IssuerID uuid.UUID

	// CredentialID identifies an issued credential.
	CredentialID uuid.UUID

	// AttemptID identifies a verification attempt audit record.
	AttemptID uuid.UUID

	// GraduationRequestID identifies a graduation pipeline request.
	GraduationRequestID uuid.UUID

	// EnrollmentID identifies an upstream enrollment. Opaque here; the
	// academic-record system owns its lifecycle.
	EnrollmentID uuid.UUID
)

func (id InstitutionID) String() string       { return uuid.UUID(id).String() }
func (id IssuerID) String() string            { return uuid.UUID(id).String() }
func (id CredentialID) String() string        { return uuid.UUID(id).String() }
func (id AttemptID) String() string           { return uuid.UUID(id).String() }
func (id GraduationRequestID) String() string { return uuid.UUID(id).String() }
func (id EnrollmentID) String() string        { return uuid.UUID(id).String() }

func (id InstitutionID) IsNil() bool       { return uuid.UUID(id) == uuid.Nil }
func (id IssuerID) IsNil() bool            { return uuid.UUID(id) == uuid.Nil }
func (id CredentialID) IsNil() bool        { return uuid.UUID(id) == uuid.Nil }
func (id AttemptID) IsNil() bool           { return uuid.UUID(id) == uuid.Nil }
func (id GraduationRequestID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id EnrollmentID) IsNil() bool        { return uuid.UUID(id) == uuid.Nil }

// NewInstitutionID returns a fresh random InstitutionID.
func NewInstitutionID() InstitutionID { return InstitutionID(uuid.New()) }

// NewIssuerID returns a fresh random IssuerID.
func NewIssuerID() IssuerID { return IssuerID(uuid.New()) }

// NewCredentialID returns a fresh random CredentialID.
func NewCredentialID() CredentialID { return CredentialID(uuid.New()) }

// NewAttemptID returns a fresh random AttemptID.
func NewAttemptID() AttemptID { return AttemptID(uuid.New()) }

// NewGraduationRequestID returns a fresh random GraduationRequestID.
func NewGraduationRequestID() GraduationRequestID { return GraduationRequestID(uuid.New()) }

func parseUUID(raw, entity string) (uuid.UUID, error) {
	if raw == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, entity+" id is required")
	}
	parsed, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, entity+" id is not a valid UUID")
	}
	if parsed == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, entity+" id cannot be the nil UUID")
	}
	return parsed, nil
}

// ParseInstitutionID validates and converts a raw string into an InstitutionID.
func ParseInstitutionID(raw string) (InstitutionID, error) {
	parsed, err := parseUUID(raw, "institution")
	return InstitutionID(parsed), err
}

// ParseIssuerID validates and converts a raw string into an IssuerID.
func ParseIssuerID(raw string) (IssuerID, error) {
	parsed, err := parseUUID(raw, "issuer")
	return IssuerID(parsed), err
}

// ParseCredentialID validates and converts a raw string into a CredentialID.
func ParseCredentialID(raw string) (CredentialID, error) {
	parsed, err := parseUUID(raw, "credential")
	return CredentialID(parsed), err
}

// ParseGraduationRequestID validates and converts a raw string into a GraduationRequestID.
func ParseGraduationRequestID(raw string) (GraduationRequestID, error) {
	parsed, err := parseUUID(raw, "graduation request")
	return GraduationRequestID(parsed), err
}

// ParseEnrollmentID validates and converts a raw string into an EnrollmentID.
func ParseEnrollmentID(raw string) (EnrollmentID, error) {
	parsed, err := parseUUID(raw, "enrollment")
	return EnrollmentID(parsed), err
}
