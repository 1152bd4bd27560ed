package service

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"credence/internal/credential/hash"
	"credence/internal/credential/models"
	"credence/internal/ledger"
	id "credence/pkg/domain"
	dErrors "credence/pkg/domain-errors"
	"credence/pkg/platform/audit"
	"credence/pkg/platform/sentinel"
)

// maxIssueAttempts bounds the insert-retry loop around identifier
// collisions. Each retry draws fresh identifiers; exhaustion is surfaced as
// a distinct error so the caller knows a retry may succeed.
const maxIssueAttempts = 3

// IssueInput is the credential payload supplied by the issuing institution.
type IssueInput struct {
	InstitutionID id.InstitutionID
	IssuerID      id.IssuerID

	StudentName    string
	StudentID      string
	DateOfBirth    *time.Time
	NationalID     string
	ProgramName    string
	ProgramType    models.ProgramType
	ClassOfDegree  string
	CGPA           *float64
	GraduationDate time.Time
	StartDate      *time.Time
	EndDate        *time.Time
	Metadata       map[string]string
}

func (in *IssueInput) validate() error {
	in.StudentName = strings.TrimSpace(in.StudentName)
	in.ProgramName = strings.TrimSpace(in.ProgramName)

	switch {
	case in.StudentName == "":
		return dErrors.New(dErrors.CodeInvalidInput, "student name is required")
	case in.ProgramName == "":
		return dErrors.New(dErrors.CodeInvalidInput, "program name is required")
	case !in.ProgramType.Valid():
		return dErrors.New(dErrors.CodeInvalidInput, "unknown program type")
	case in.GraduationDate.IsZero():
		return dErrors.New(dErrors.CodeInvalidInput, "graduation date is required")
	}
	if in.CGPA != nil && (*in.CGPA < 0 || *in.CGPA > 5) {
		return dErrors.New(dErrors.CodeInvalidInput, "cgpa out of range")
	}
	if in.StartDate != nil && in.EndDate != nil && in.EndDate.Before(*in.StartDate) {
		return dErrors.New(dErrors.CodeInvalidInput, "end date precedes start date")
	}
	return nil
}

// Issue validates, assigns identifiers, computes the canonical hash,
// persists the credential and triggers anchoring. Anchoring runs off the
// caller's path: issuance succeeds even if anchoring later fails.
func (s *Service) Issue(ctx context.Context, input IssueInput) (*models.Credential, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}

	institution, err := s.requireActiveInstitution(ctx, input.InstitutionID)
	if err != nil {
		return nil, err
	}
	issuer, err := s.findIssuer(ctx, input.IssuerID)
	if err != nil {
		return nil, err
	}
	if !issuer.AuthorizedToIssueFor(institution.ID) {
		return nil, dErrors.New(dErrors.CodeForbidden, "issuer is not authorized to issue for this institution")
	}

	// The hash covers institution identity so the same student/program
	// cannot produce an identical digest across institutions. Computed
	// once here, never recomputed.
	dataHash := hash.Digest(canonicalPayload(institution.Code, input))

	var credential *models.Credential
	year := input.GraduationDate.Year()
	for attempt := 0; attempt < maxIssueAttempts; attempt++ {
		// Sequence allocation and the insert share one transaction: a
		// failed insert rolls the allocation back, so certificate numbering
		// never develops gaps.
		var candidate *models.Credential
		err := s.credentials.InTx(ctx, func(txCtx context.Context) error {
			certificateNo, err := s.generator.CertificateNumber(txCtx, institution.Code, year)
			if err != nil {
				return err
			}
			verificationCode, err := s.generator.VerificationCode(txCtx)
			if err != nil {
				return err
			}

			now := time.Now()
			candidate = &models.Credential{
				ID:               id.NewCredentialID(),
				InstitutionID:    institution.ID,
				IssuerID:         issuer.ID,
				CertificateNo:    certificateNo,
				VerificationCode: verificationCode,
				StudentName:      input.StudentName,
				StudentID:        input.StudentID,
				DateOfBirth:      input.DateOfBirth,
				NationalID:       input.NationalID,
				ProgramName:      input.ProgramName,
				ProgramType:      input.ProgramType,
				ClassOfDegree:    input.ClassOfDegree,
				CGPA:             input.CGPA,
				GraduationDate:   input.GraduationDate,
				StartDate:        input.StartDate,
				EndDate:          input.EndDate,
				Metadata:         input.Metadata,
				DataHash:         dataHash,
				AnchorStatus:     models.AnchorPending,
				Status:           models.StatusActive,
				CreatedAt:        now,
				UpdatedAt:        now,
			}

			if err := s.credentials.Create(txCtx, candidate); err != nil {
				if errors.Is(err, sentinel.ErrConflict) {
					return err
				}
				return dErrors.Wrap(err, dErrors.CodeInternal, "persist credential")
			}
			return nil
		})
		if err == nil {
			credential = candidate
			break
		}
		if errors.Is(err, sentinel.ErrConflict) {
			// Unique constraint hit: another issuance won the identifier.
			// Loop draws fresh ones.
			continue
		}
		return nil, err
	}
	if credential == nil {
		return nil, dErrors.New(dErrors.CodeExhausted, "identifier uniqueness retries exhausted")
	}

	s.triggerAnchor(ctx, credential, institution.Code)

	s.metrics.IncrementIssued()
	s.recorder.Record(audit.Event{
		Action:        audit.ActionCredentialIssued,
		CredentialID:  credential.ID.String(),
		CertificateNo: credential.CertificateNo,
		InstitutionID: institution.ID.String(),
		ActorID:       issuer.ID.String(),
	})
	s.logger.InfoContext(ctx, "credential issued",
		"credential_id", credential.ID.String(),
		"certificate_no", credential.CertificateNo,
		"institution", institution.Code,
	)
	return credential, nil
}

// triggerAnchor enqueues the anchor submission without blocking. A refused
// enqueue (full inbox) is a real anchoring failure and is recorded as such
// immediately rather than silently dropped.
func (s *Service) triggerAnchor(ctx context.Context, credential *models.Credential, institutionCode string) {
	accepted := s.anchors.Enqueue(ledger.Submission{
		CredentialID:  credential.ID,
		Digest:        credential.DataHash,
		CertificateNo: credential.CertificateNo,
		Institution:   institutionCode,
	})
	if accepted {
		return
	}
	s.logger.WarnContext(ctx, "anchor queue full, marking anchoring failed",
		"credential_id", credential.ID.String(),
	)
	if err := s.credentials.UpdateAnchorResult(ctx, credential.ID, models.AnchorFailed, "", time.Now()); err != nil {
		s.logger.ErrorContext(ctx, "failed to mark anchoring failed",
			"credential_id", credential.ID.String(),
			"error", err,
		)
		return
	}
	credential.AnchorStatus = models.AnchorFailed
}

// canonicalPayload builds the hashed field set. Identifiers, timestamps and
// lifecycle state are excluded; metadata entries are namespaced so they
// cannot collide with first-class fields.
func canonicalPayload(institutionCode string, input IssueInput) hash.Payload {
	payload := hash.Payload{
		"institution_code": institutionCode,
		"student_name":     input.StudentName,
		"student_id":       input.StudentID,
		"national_id":      input.NationalID,
		"program_name":     input.ProgramName,
		"program_type":     string(input.ProgramType),
		"class_of_degree":  input.ClassOfDegree,
		"graduation_date":  input.GraduationDate.Format("2006-01-02"),
	}
	if input.CGPA != nil {
		payload["cgpa"] = strconv.FormatFloat(*input.CGPA, 'f', 2, 64)
	}
	if input.DateOfBirth != nil {
		payload["date_of_birth"] = input.DateOfBirth.Format("2006-01-02")
	}
	if input.StartDate != nil {
		payload["start_date"] = input.StartDate.Format("2006-01-02")
	}
	if input.EndDate != nil {
		payload["end_date"] = input.EndDate.Format("2006-01-02")
	}
	for k, v := range input.Metadata {
		payload["metadata."+k] = v
	}
	return payload
}
