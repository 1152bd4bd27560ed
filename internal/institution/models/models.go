package models

import (
	"time"

	id "credence/pkg/domain"
)

// Institution is an accredited issuing authority. Code is the short
// uppercase prefix embedded in certificate numbers (e.g. "USL").
type Institution struct {
	ID        id.InstitutionID `json:"id"`
	Name      string           `json:"name"`
	Code      string           `json:"code"`
	Country   string           `json:"country,omitempty"`
	Active    bool             `json:"active"`
	CreatedAt time.Time        `json:"created_at"`
}

// Issuer is a person or system account authorized to act for an
// institution. Capabilities are explicit: issuing and revoking are
// separately granted.
type Issuer struct {
	ID            id.IssuerID      `json:"id"`
	InstitutionID id.InstitutionID `json:"institution_id"`
	Name          string           `json:"name"`
	Email         string           `json:"email,omitempty"`
	CanIssue      bool             `json:"can_issue"`
	CanRevoke     bool             `json:"can_revoke"`
	Active        bool             `json:"active"`
	CreatedAt     time.Time        `json:"created_at"`
}

// AuthorizedToIssueFor reports whether the issuer may issue credentials for
// the given institution.
func (i *Issuer) AuthorizedToIssueFor(institutionID id.InstitutionID) bool {
	return i.Active && i.CanIssue && i.InstitutionID == institutionID
}

// AuthorizedToRevokeFor reports whether the issuer may revoke credentials of
// the given institution.
func (i *Issuer) AuthorizedToRevokeFor(institutionID id.InstitutionID) bool {
	return i.Active && i.CanRevoke && i.InstitutionID == institutionID
}
