// Package service implements public credential verification. Every lookup,
// successful or not, appends an attempt to the audit trail.
package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/mssola/useragent"

	credmodels "credence/internal/credential/models"
	credstore "credence/internal/credential/store"
	"credence/internal/platform/metrics"
	"credence/internal/platform/middleware"
	"credence/internal/verification/models"
	verstore "credence/internal/verification/store"
	id "credence/pkg/domain"
	"credence/pkg/platform/sentinel"
)

// ResultCache caches verifier-facing results keyed by the lookup value.
// *cache.Cache satisfies it; nil disables caching.
type ResultCache interface {
	Get(ctx context.Context, lookup string) (*models.Result, bool)
	Set(ctx context.Context, lookup string, result *models.Result)
	Invalidate(ctx context.Context, lookups ...string)
}

// Service answers verification lookups and keeps the append-only attempt
// trail. It never mutates credentials.
type Service struct {
	credentials credstore.Store
	attempts    verstore.AttemptStore
	cache       ResultCache
	logger      *slog.Logger
	metrics     *metrics.Metrics
	now         func() time.Time
}

func New(credentials credstore.Store, attempts verstore.AttemptStore, resultCache ResultCache, logger *slog.Logger, m *metrics.Metrics) *Service {
	return &Service{
		credentials: credentials,
		attempts:    attempts,
		cache:       resultCache,
		logger:      logger,
		metrics:     m,
		now:         time.Now,
	}
}

// VerifyByCode resolves a credential by its 9-character verification code.
// organization is the verifier's self-reported affiliation, recorded as-is.
func (s *Service) VerifyByCode(ctx context.Context, code, organization string) *models.Result {
	normalized := strings.ToUpper(strings.TrimSpace(code))
	return s.verify(ctx, models.LookupByCode, normalized, organization, func() (*credmodels.Credential, error) {
		return s.credentials.FindByCode(ctx, normalized)
	})
}

// VerifyByNumber resolves a credential by its certificate number.
func (s *Service) VerifyByNumber(ctx context.Context, certificateNo, organization string) *models.Result {
	normalized := strings.ToUpper(strings.TrimSpace(certificateNo))
	return s.verify(ctx, models.LookupByNumber, normalized, organization, func() (*credmodels.Credential, error) {
		return s.credentials.FindByNumber(ctx, normalized)
	})
}

// AttemptsFor returns the recorded verification attempts for a credential,
// oldest first.
func (s *Service) AttemptsFor(ctx context.Context, credentialID id.CredentialID) ([]models.Attempt, error) {
	return s.attempts.ListByCredential(ctx, credentialID)
}

func (s *Service) verify(ctx context.Context, method models.LookupMethod, lookup, organization string, find func() (*credmodels.Credential, error)) *models.Result {
	if lookup == "" {
		result := &models.Result{
			Outcome: models.OutcomeInvalid,
			Message: "a verification code or certificate number is required",
		}
		s.record(ctx, method, lookup, organization, nil, result.Outcome)
		return result
	}

	if s.cache != nil {
		if cached, ok := s.cache.Get(ctx, lookup); ok {
			s.record(ctx, method, lookup, organization, cached.CredentialID, cached.Outcome)
			return cached
		}
	}

	credential, err := find()
	if err != nil {
		var result *models.Result
		if errors.Is(err, sentinel.ErrNotFound) {
			result = &models.Result{
				Outcome: models.OutcomeNotFound,
				Message: "no credential matches the supplied identifier",
			}
		} else {
			s.logger.ErrorContext(ctx, "verification lookup failed",
				"method", string(method),
				"error", err,
			)
			result = &models.Result{
				Outcome: models.OutcomeError,
				Message: "verification is temporarily unavailable, try again later",
			}
		}
		s.record(ctx, method, lookup, organization, nil, result.Outcome)
		return result
	}

	result := resultFor(credential)
	credentialID := credential.ID
	result.CredentialID = &credentialID
	s.record(ctx, method, lookup, organization, result.CredentialID, result.Outcome)
	if s.cache != nil && result.Outcome != models.OutcomeError {
		s.cache.Set(ctx, lookup, result)
	}
	return result
}

// resultFor maps credential state to a verification outcome. SUSPENDED maps
// to INVALID rather than its own outcome: verifiers only need to know the
// credential cannot currently be relied on.
func resultFor(credential *credmodels.Credential) *models.Result {
	view := credential.Public()
	anchored := credential.AnchorStatus == credmodels.AnchorConfirmed

	switch credential.Status {
	case credmodels.StatusRevoked:
		return &models.Result{
			Outcome:            models.OutcomeRevoked,
			Message:            "this credential has been revoked by the issuing institution",
			Credential:         &view,
			BlockchainVerified: anchored,
			LedgerReference:    credential.LedgerReference,
			RevokedAt:          credential.RevokedAt,
			RevokedReason:      credential.RevokedReason,
		}
	case credmodels.StatusSuspended:
		return &models.Result{
			Outcome:            models.OutcomeInvalid,
			Message:            "this credential is suspended pending review by the issuing institution",
			Credential:         &view,
			BlockchainVerified: anchored,
			LedgerReference:    credential.LedgerReference,
		}
	case credmodels.StatusActive:
		message := "credential verified successfully"
		if !anchored {
			message = "credential verified against institutional records; ledger anchoring is not yet confirmed"
		}
		return &models.Result{
			Outcome:            models.OutcomeValid,
			Valid:              true,
			Message:            message,
			Credential:         &view,
			BlockchainVerified: anchored,
			LedgerReference:    credential.LedgerReference,
		}
	default:
		return &models.Result{
			Outcome: models.OutcomeError,
			Message: "credential is in an unrecognized state",
		}
	}
}

// record appends an attempt to the audit trail. Append failures are logged
// loudly but never surfaced to the verifier; the lookup answer stands.
func (s *Service) record(ctx context.Context, method models.LookupMethod, lookup, organization string, credentialID *id.CredentialID, outcome models.Outcome) {
	attempt := models.Attempt{
		ID:           id.NewAttemptID(),
		Method:       method,
		LookupValue:  lookup,
		Outcome:      outcome,
		IPAddress:    middleware.GetClientIP(ctx),
		UserAgent:    middleware.GetUserAgent(ctx),
		Organization: organization,
		CreatedAt:    s.now(),
	}
	if credentialID != nil {
		cid := *credentialID
		attempt.CredentialID = &cid
	}
	if attempt.UserAgent != "" {
		ua := useragent.New(attempt.UserAgent)
		name, version := ua.Browser()
		attempt.Browser = strings.TrimSpace(name + " " + version)
		attempt.OS = ua.OS()
	}

	if err := s.attempts.Append(ctx, attempt); err != nil {
		s.logger.ErrorContext(ctx, "failed to append verification attempt",
			"method", string(method),
			"outcome", string(outcome),
			"error", err,
		)
	}
	s.metrics.ObserveVerification(string(outcome))
}

// InvalidateCredential drops any cached verification results for the
// credential. Wired into lifecycle transitions so revocation is visible to
// verifiers immediately.
func (s *Service) InvalidateCredential(ctx context.Context, credential *credmodels.Credential) {
	if s.cache == nil {
		return
	}
	s.cache.Invalidate(ctx, credential.VerificationCode, credential.CertificateNo)
}
