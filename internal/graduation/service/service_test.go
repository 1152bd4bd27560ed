package service

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	credmodels "credence/internal/credential/models"
	credservice "credence/internal/credential/service"
	"credence/internal/graduation/models"
	"credence/internal/graduation/store"
	"credence/internal/platform/config"
	id "credence/pkg/domain"
	dErrors "credence/pkg/domain-errors"
)

type fakeIssuer struct {
	issued  []credservice.IssueInput
	err     error
	onIssue func()
}

func (f *fakeIssuer) Issue(_ context.Context, input credservice.IssueInput) (*credmodels.Credential, error) {
	if f.onIssue != nil {
		f.onIssue()
	}
	if f.err != nil {
		return nil, f.err
	}
	f.issued = append(f.issued, input)
	return &credmodels.Credential{
		ID:            id.NewCredentialID(),
		CertificateNo: "USL-2024-00001",
		Status:        credmodels.StatusActive,
	}, nil
}

func newTestService(t *testing.T) (*Service, *store.MemoryStore, *fakeIssuer) {
	t.Helper()
	requests := store.NewMemory()
	issuer := &fakeIssuer{}
	grading := config.GradingConfig{
		FirstClass:  3.6,
		SecondUpper: 3.0,
		SecondLower: 2.4,
		ThirdClass:  2.0,
		Pass:        1.0,
	}
	svc := New(requests, issuer, grading, slog.New(slog.DiscardHandler), nil)
	return svc, requests, issuer
}

func validInput() CreateInput {
	return CreateInput{
		EnrollmentID:   id.EnrollmentID(uuid.New()),
		InstitutionID:  id.NewInstitutionID(),
		StudentName:    "Aminata Kamara",
		ProgramName:    "BSc Computer Science",
		ProgramType:    credmodels.ProgramBachelors,
		TotalCredits:   120,
		CGPA:           3.72,
		GraduationDate: time.Date(2024, 7, 12, 0, 0, 0, 0, time.UTC),
	}
}

func TestCreate(t *testing.T) {
	svc, _, _ := newTestService(t)

	request, err := svc.Create(context.Background(), validInput())
	require.NoError(t, err)

	assert.Equal(t, models.StatusPending, request.Status)
	assert.Equal(t, "First Class", request.ClassOfDegree)
	assert.Nil(t, request.CredentialID)
}

func TestCreate_KeepsSuppliedClassOfDegree(t *testing.T) {
	svc, _, _ := newTestService(t)
	input := validInput()
	input.ClassOfDegree = "Summa Cum Laude"

	request, err := svc.Create(context.Background(), input)
	require.NoError(t, err)
	assert.Equal(t, "Summa Cum Laude", request.ClassOfDegree)
}

func TestCreate_OnePerEnrollment(t *testing.T) {
	svc, _, _ := newTestService(t)
	input := validInput()

	_, err := svc.Create(context.Background(), input)
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), input)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))
}

func TestCreate_Validation(t *testing.T) {
	svc, _, _ := newTestService(t)

	cases := map[string]func(*CreateInput){
		"nil enrollment":   func(in *CreateInput) { in.EnrollmentID = id.EnrollmentID{} },
		"nil institution":  func(in *CreateInput) { in.InstitutionID = id.InstitutionID{} },
		"blank student":    func(in *CreateInput) { in.StudentName = " " },
		"bad program type": func(in *CreateInput) { in.ProgramType = "GUESSWORK" },
		"zero credits":     func(in *CreateInput) { in.TotalCredits = 0 },
		"negative cgpa":    func(in *CreateInput) { in.CGPA = -0.1 },
	}
	for name, corrupt := range cases {
		t.Run(name, func(t *testing.T) {
			input := validInput()
			corrupt(&input)
			_, err := svc.Create(context.Background(), input)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
		})
	}
}

func TestApproveRejectTransitions(t *testing.T) {
	svc, _, _ := newTestService(t)
	request, err := svc.Create(context.Background(), validInput())
	require.NoError(t, err)

	approved, err := svc.Approve(context.Background(), request.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, approved.Status)

	// Approved requests cannot be approved again or rejected.
	_, err = svc.Approve(context.Background(), request.ID)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))
	_, err = svc.Reject(context.Background(), request.ID, "late paperwork")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))
}

func TestReject(t *testing.T) {
	svc, _, _ := newTestService(t)
	request, err := svc.Create(context.Background(), validInput())
	require.NoError(t, err)

	rejected, err := svc.Reject(context.Background(), request.ID, "incomplete transcript")
	require.NoError(t, err)
	assert.Equal(t, models.StatusRejected, rejected.Status)
	assert.Equal(t, "incomplete transcript", rejected.RejectionReason)

	// REJECTED is terminal.
	_, err = svc.Approve(context.Background(), request.ID)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))
}

func TestReject_RequiresReason(t *testing.T) {
	svc, _, _ := newTestService(t)
	request, err := svc.Create(context.Background(), validInput())
	require.NoError(t, err)

	_, err = svc.Reject(context.Background(), request.ID, "  ")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

func TestCertify(t *testing.T) {
	svc, requests, issuer := newTestService(t)
	request, err := svc.Create(context.Background(), validInput())
	require.NoError(t, err)
	_, err = svc.Approve(context.Background(), request.ID)
	require.NoError(t, err)

	issuerID := id.NewIssuerID()
	certified, err := svc.Certify(context.Background(), request.ID, issuerID)
	require.NoError(t, err)

	assert.Equal(t, models.StatusCertified, certified.Status)
	require.NotNil(t, certified.CredentialID)

	require.Len(t, issuer.issued, 1)
	issued := issuer.issued[0]
	assert.Equal(t, request.InstitutionID, issued.InstitutionID)
	assert.Equal(t, issuerID, issued.IssuerID)
	assert.Equal(t, "Aminata Kamara", issued.StudentName)
	assert.Equal(t, "First Class", issued.ClassOfDegree)
	require.NotNil(t, issued.CGPA)
	assert.Equal(t, 3.72, *issued.CGPA)

	stored, err := requests.FindByID(context.Background(), request.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCertified, stored.Status)
}

func TestCertify_PendingRequestRejected(t *testing.T) {
	svc, _, issuer := newTestService(t)
	request, err := svc.Create(context.Background(), validInput())
	require.NoError(t, err)

	_, err = svc.Certify(context.Background(), request.ID, id.NewIssuerID())
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))
	assert.Empty(t, issuer.issued)
}

func TestCertify_Twice(t *testing.T) {
	svc, _, issuer := newTestService(t)
	request, err := svc.Create(context.Background(), validInput())
	require.NoError(t, err)
	_, err = svc.Approve(context.Background(), request.ID)
	require.NoError(t, err)

	_, err = svc.Certify(context.Background(), request.ID, id.NewIssuerID())
	require.NoError(t, err)
	_, err = svc.Certify(context.Background(), request.ID, id.NewIssuerID())
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))
	assert.Len(t, issuer.issued, 1)
}

func TestCertify_IssuanceFailurePropagates(t *testing.T) {
	svc, requests, issuer := newTestService(t)
	request, err := svc.Create(context.Background(), validInput())
	require.NoError(t, err)
	_, err = svc.Approve(context.Background(), request.ID)
	require.NoError(t, err)

	issuer.err = dErrors.New(dErrors.CodeForbidden, "issuer is not authorized to issue for this institution")
	_, err = svc.Certify(context.Background(), request.ID, id.NewIssuerID())
	assert.True(t, dErrors.HasCode(err, dErrors.CodeForbidden))

	// The claim is released so certification can be retried.
	stored, err := requests.FindByID(context.Background(), request.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, stored.Status)

	issuer.err = nil
	certified, err := svc.Certify(context.Background(), request.ID, id.NewIssuerID())
	require.NoError(t, err)
	assert.Equal(t, models.StatusCertified, certified.Status)
}

func TestCertify_ClaimBlocksConcurrentCertify(t *testing.T) {
	svc, _, issuer := newTestService(t)
	request, err := svc.Create(context.Background(), validInput())
	require.NoError(t, err)
	_, err = svc.Approve(context.Background(), request.ID)
	require.NoError(t, err)

	// A rival certify arriving while issuance is in flight must fail the
	// claim instead of issuing a second credential.
	var rivalErr error
	reentered := false
	issuer.onIssue = func() {
		if reentered {
			return
		}
		reentered = true
		_, rivalErr = svc.Certify(context.Background(), request.ID, id.NewIssuerID())
	}

	certified, err := svc.Certify(context.Background(), request.ID, id.NewIssuerID())
	require.NoError(t, err)
	assert.Equal(t, models.StatusCertified, certified.Status)

	require.Error(t, rivalErr)
	assert.True(t, dErrors.HasCode(rivalErr, dErrors.CodeInvariantViolation))
	assert.Contains(t, rivalErr.Error(), "in progress")
	assert.Len(t, issuer.issued, 1)
}

func TestGet_NotFound(t *testing.T) {
	svc, _, _ := newTestService(t)
	_, err := svc.Get(context.Background(), id.NewGraduationRequestID())
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
}
