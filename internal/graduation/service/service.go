// Package service manages graduation requests handed off by upstream
// academic systems and drives approved requests into credential issuance.
package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	credmodels "credence/internal/credential/models"
	credservice "credence/internal/credential/service"
	"credence/internal/graduation/grading"
	"credence/internal/graduation/models"
	"credence/internal/graduation/store"
	"credence/internal/platform/config"
	id "credence/pkg/domain"
	dErrors "credence/pkg/domain-errors"
	"credence/pkg/platform/audit"
	"credence/pkg/platform/sentinel"
)

// CredentialIssuer is the slice of the credential service certification
// needs.
type CredentialIssuer interface {
	Issue(ctx context.Context, input credservice.IssueInput) (*credmodels.Credential, error)
}

// Service owns the graduation request lifecycle.
type Service struct {
	requests store.Store
	issuer   CredentialIssuer
	grading  config.GradingConfig
	logger   *slog.Logger
	recorder *audit.Recorder
}

func New(requests store.Store, issuer CredentialIssuer, grading config.GradingConfig, logger *slog.Logger, recorder *audit.Recorder) *Service {
	return &Service{
		requests: requests,
		issuer:   issuer,
		grading:  grading,
		logger:   logger,
		recorder: recorder,
	}
}

// CreateInput is the pipeline handoff payload. Credits and CGPA arrive
// precomputed; class of degree is classified here only when omitted.
type CreateInput struct {
	EnrollmentID  id.EnrollmentID
	InstitutionID id.InstitutionID

	StudentName string
	StudentID   string
	ProgramName string
	ProgramType credmodels.ProgramType

	TotalCredits   int
	CGPA           float64
	ClassOfDegree  string
	GraduationDate time.Time
}

func (in *CreateInput) validate() error {
	in.StudentName = strings.TrimSpace(in.StudentName)
	in.ProgramName = strings.TrimSpace(in.ProgramName)

	switch {
	case in.EnrollmentID.IsNil():
		return dErrors.New(dErrors.CodeInvalidInput, "enrollment id is required")
	case in.InstitutionID.IsNil():
		return dErrors.New(dErrors.CodeInvalidInput, "institution id is required")
	case in.StudentName == "":
		return dErrors.New(dErrors.CodeInvalidInput, "student name is required")
	case in.ProgramName == "":
		return dErrors.New(dErrors.CodeInvalidInput, "program name is required")
	case !in.ProgramType.Valid():
		return dErrors.New(dErrors.CodeInvalidInput, "unknown program type")
	case in.GraduationDate.IsZero():
		return dErrors.New(dErrors.CodeInvalidInput, "graduation date is required")
	case in.TotalCredits <= 0:
		return dErrors.New(dErrors.CodeInvalidInput, "total credits must be positive")
	case in.CGPA < 0 || in.CGPA > 5:
		return dErrors.New(dErrors.CodeInvalidInput, "cgpa out of range")
	}
	return nil
}

// Create registers a handoff. At most one request may exist per enrollment.
func (s *Service) Create(ctx context.Context, input CreateInput) (*models.Request, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}

	classOfDegree := strings.TrimSpace(input.ClassOfDegree)
	if classOfDegree == "" {
		classOfDegree = grading.Classify(input.CGPA, s.grading)
	}

	now := time.Now()
	request := &models.Request{
		ID:             id.NewGraduationRequestID(),
		EnrollmentID:   input.EnrollmentID,
		InstitutionID:  input.InstitutionID,
		StudentName:    input.StudentName,
		StudentID:      input.StudentID,
		ProgramName:    input.ProgramName,
		ProgramType:    input.ProgramType,
		TotalCredits:   input.TotalCredits,
		CGPA:           input.CGPA,
		ClassOfDegree:  classOfDegree,
		GraduationDate: input.GraduationDate,
		Status:         models.StatusPending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.requests.Create(ctx, request); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "a graduation request already exists for this enrollment")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "persist graduation request")
	}

	s.logger.InfoContext(ctx, "graduation request created",
		"request_id", request.ID.String(),
		"enrollment_id", request.EnrollmentID.String(),
		"class_of_degree", request.ClassOfDegree,
	)
	return request, nil
}

// Get loads a graduation request by ID.
func (s *Service) Get(ctx context.Context, requestID id.GraduationRequestID) (*models.Request, error) {
	request, err := s.requests.FindByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "graduation request not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "load graduation request")
	}
	return request, nil
}

// Approve moves a pending request onto the issuance track.
func (s *Service) Approve(ctx context.Context, requestID id.GraduationRequestID) (*models.Request, error) {
	now := time.Now()
	updated, err := s.requests.Execute(ctx, requestID,
		func(r *models.Request) error { return r.CanApprove() },
		func(r *models.Request) { r.ApplyApproval(now) },
	)
	if err != nil {
		return nil, translateTransitionErr(err)
	}
	return updated, nil
}

// Reject closes a pending request. Terminal.
func (s *Service) Reject(ctx context.Context, requestID id.GraduationRequestID, reason string) (*models.Request, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "rejection reason is required")
	}
	now := time.Now()
	updated, err := s.requests.Execute(ctx, requestID,
		func(r *models.Request) error { return r.CanReject() },
		func(r *models.Request) { r.ApplyRejection(reason, now) },
	)
	if err != nil {
		return nil, translateTransitionErr(err)
	}
	return updated, nil
}

// Certify issues the credential for an approved request and links it. The
// request is claimed (CERTIFYING) before issuance so a concurrent certify
// fails the claim instead of issuing a second credential. The issuing actor
// must hold the issue capability for the request's institution; the
// credential service enforces that.
func (s *Service) Certify(ctx context.Context, requestID id.GraduationRequestID, issuerID id.IssuerID) (*models.Request, error) {
	claimed, err := s.requests.Execute(ctx, requestID,
		func(r *models.Request) error { return r.CanCertify() },
		func(r *models.Request) { r.ApplyCertifyingClaim(time.Now()) },
	)
	if err != nil {
		return nil, translateTransitionErr(err)
	}

	cgpa := claimed.CGPA
	credential, err := s.issuer.Issue(ctx, credservice.IssueInput{
		InstitutionID:  claimed.InstitutionID,
		IssuerID:       issuerID,
		StudentName:    claimed.StudentName,
		StudentID:      claimed.StudentID,
		ProgramName:    claimed.ProgramName,
		ProgramType:    claimed.ProgramType,
		ClassOfDegree:  claimed.ClassOfDegree,
		CGPA:           &cgpa,
		GraduationDate: claimed.GraduationDate,
	})
	if err != nil {
		s.releaseClaim(ctx, requestID)
		return nil, err
	}

	updated, err := s.requests.Execute(ctx, requestID,
		func(r *models.Request) error { return r.CanCompleteCertification() },
		func(r *models.Request) { r.ApplyCertification(credential.ID, time.Now()) },
	)
	if err != nil {
		// The credential exists but the request could not be linked.
		// Surface loudly; the credential needs operator review, possibly
		// revocation.
		s.logger.ErrorContext(ctx, "certification link failed after issuance",
			"request_id", requestID.String(),
			"credential_id", credential.ID.String(),
			"error", err,
		)
		return nil, translateTransitionErr(err)
	}

	s.recorder.Record(audit.Event{
		Action:        audit.ActionGraduationCertified,
		CredentialID:  credential.ID.String(),
		CertificateNo: credential.CertificateNo,
		InstitutionID: claimed.InstitutionID.String(),
		ActorID:       issuerID.String(),
	})
	s.logger.InfoContext(ctx, "graduation request certified",
		"request_id", updated.ID.String(),
		"credential_id", credential.ID.String(),
		"certificate_no", credential.CertificateNo,
	)
	return updated, nil
}

// releaseClaim returns a claimed request to APPROVED after a failed
// issuance so a later certify can retry.
func (s *Service) releaseClaim(ctx context.Context, requestID id.GraduationRequestID) {
	_, err := s.requests.Execute(ctx, requestID,
		func(r *models.Request) error { return r.CanCompleteCertification() },
		func(r *models.Request) { r.ApplyCertificationAbort(time.Now()) },
	)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to release certification claim",
			"request_id", requestID.String(),
			"error", err,
		)
	}
}

func translateTransitionErr(err error) error {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "graduation request not found")
	case dErrors.HasCode(err, dErrors.CodeInvariantViolation):
		return err
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "update graduation request")
	}
}
