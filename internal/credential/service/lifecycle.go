package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"credence/internal/credential/models"
	id "credence/pkg/domain"
	dErrors "credence/pkg/domain-errors"
	"credence/pkg/platform/audit"
	"credence/pkg/platform/sentinel"
)

// Revoke invalidates a previously issued credential. One-way: there is no
// unrevoke, and revoking an already revoked credential is rejected rather
// than silently accepted. The ledger anchor is left untouched: the anchored
// digest is a historical fact, validity is answered by the live record.
func (s *Service) Revoke(ctx context.Context, credentialID id.CredentialID, revokerID id.IssuerID, reason string) error {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "revocation reason is required")
	}

	credential, err := s.GetCredential(ctx, credentialID)
	if err != nil {
		return err
	}
	revoker, err := s.findIssuer(ctx, revokerID)
	if err != nil {
		return err
	}
	if !revoker.AuthorizedToRevokeFor(credential.InstitutionID) {
		return dErrors.New(dErrors.CodeForbidden, "revoker is not authorized for this institution")
	}

	now := time.Now()
	updated, err := s.credentials.Execute(ctx, credentialID,
		func(c *models.Credential) error { return c.CanRevoke() },
		func(c *models.Credential) { c.ApplyRevocation(revoker.ID, reason, now) },
	)
	if err != nil {
		return translateLifecycleErr(err)
	}
	s.invalidateViews(ctx, updated)

	s.metrics.IncrementRevoked()
	s.recorder.Record(audit.Event{
		Action:        audit.ActionCredentialRevoked,
		CredentialID:  updated.ID.String(),
		CertificateNo: updated.CertificateNo,
		InstitutionID: updated.InstitutionID.String(),
		ActorID:       revoker.ID.String(),
		Reason:        reason,
	})
	s.logger.InfoContext(ctx, "credential revoked",
		"credential_id", updated.ID.String(),
		"revoked_by", revoker.ID.String(),
	)
	return nil
}

// Suspend places a credential under review. Suspended credentials verify as
// INVALID until reinstated or revoked.
func (s *Service) Suspend(ctx context.Context, credentialID id.CredentialID, actorID id.IssuerID) error {
	return s.transition(ctx, credentialID, actorID, audit.ActionCredentialSuspended,
		func(c *models.Credential) error { return c.CanSuspend() },
		func(c *models.Credential, now time.Time) { c.ApplySuspension(now) },
	)
}

// Reinstate returns a suspended credential to ACTIVE.
func (s *Service) Reinstate(ctx context.Context, credentialID id.CredentialID, actorID id.IssuerID) error {
	return s.transition(ctx, credentialID, actorID, audit.ActionCredentialReinstated,
		func(c *models.Credential) error { return c.CanReinstate() },
		func(c *models.Credential, now time.Time) { c.ApplyReinstatement(now) },
	)
}

func (s *Service) transition(ctx context.Context, credentialID id.CredentialID, actorID id.IssuerID,
	action audit.Action,
	validate func(*models.Credential) error,
	mutate func(*models.Credential, time.Time)) error {

	credential, err := s.GetCredential(ctx, credentialID)
	if err != nil {
		return err
	}
	actor, err := s.findIssuer(ctx, actorID)
	if err != nil {
		return err
	}
	// Suspension shares the revocation capability: both invalidate a
	// credential the institution has vouched for.
	if !actor.AuthorizedToRevokeFor(credential.InstitutionID) {
		return dErrors.New(dErrors.CodeForbidden, "actor is not authorized for this institution")
	}

	now := time.Now()
	updated, err := s.credentials.Execute(ctx, credentialID,
		validate,
		func(c *models.Credential) { mutate(c, now) },
	)
	if err != nil {
		return translateLifecycleErr(err)
	}
	s.invalidateViews(ctx, updated)

	s.recorder.Record(audit.Event{
		Action:        action,
		CredentialID:  updated.ID.String(),
		CertificateNo: updated.CertificateNo,
		InstitutionID: updated.InstitutionID.String(),
		ActorID:       actor.ID.String(),
	})
	return nil
}

func translateLifecycleErr(err error) error {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "credential not found")
	case dErrors.HasCode(err, dErrors.CodeInvariantViolation):
		return err
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "update credential state")
	}
}
