// Package audit captures operational events emitted by domain logic.
//
// This is the operator-facing stream (what happened, when, by whom) and is
// distinct from the verification attempt trail, which is an append-only
// domain record with its own store. Events are transport-agnostic so stores
// and sinks can fan out.
package audit

import "time"

// Action names the closed set of audited operations.
type Action string

const (
	ActionCredentialIssued     Action = "credential_issued"
	ActionCredentialAnchored   Action = "credential_anchored"
	ActionAnchorFailed         Action = "credential_anchor_failed"
	ActionCredentialRevoked    Action = "credential_revoked"
	ActionCredentialSuspended  Action = "credential_suspended"
	ActionCredentialReinstated Action = "credential_reinstated"
	ActionGraduationCertified  Action = "graduation_certified"
)

// Event is emitted from domain logic to capture key actions.
type Event struct {
	Timestamp     time.Time `json:"timestamp"`
	Action        Action    `json:"action"`
	CredentialID  string    `json:"credential_id,omitempty"`
	CertificateNo string    `json:"certificate_no,omitempty"`
	InstitutionID string    `json:"institution_id,omitempty"`
	ActorID       string    `json:"actor_id,omitempty"`
	Reason        string    `json:"reason,omitempty"`
	RequestID     string    `json:"request_id,omitempty"`
}
