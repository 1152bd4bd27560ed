//go:build integration

package store_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"credence/internal/credential/models"
	"credence/internal/credential/store"
	id "credence/pkg/domain"
	"credence/pkg/platform/sentinel"
	"credence/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres      *containers.PostgresContainer
	store         *store.PostgresStore
	institutionID id.InstitutionID
	issuerID      id.IssuerID
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.NewPostgresContainer(s.T())
	s.store = store.NewPostgres(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	ctx := context.Background()
	err := s.postgres.TruncateTables(ctx,
		"verification_attempts", "graduation_requests", "credentials",
		"certificate_sequences", "issuers", "institutions")
	s.Require().NoError(err)

	s.institutionID = id.NewInstitutionID()
	s.issuerID = id.NewIssuerID()
	_, err = s.postgres.DB.ExecContext(ctx, `
		INSERT INTO institutions (id, name, code, country, active)
		VALUES ($1, 'University of Sierra Leone', 'USL', 'SL', TRUE)`,
		uuid.UUID(s.institutionID))
	s.Require().NoError(err)
	_, err = s.postgres.DB.ExecContext(ctx, `
		INSERT INTO issuers (id, institution_id, name, email, can_issue, can_revoke, active)
		VALUES ($1, $2, 'Registrar', 'registrar@usl.edu.sl', TRUE, TRUE, TRUE)`,
		uuid.UUID(s.issuerID), uuid.UUID(s.institutionID))
	s.Require().NoError(err)
}

func (s *PostgresStoreSuite) newCredential(certificateNo, code string) *models.Credential {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &models.Credential{
		ID:               id.NewCredentialID(),
		InstitutionID:    s.institutionID,
		IssuerID:         s.issuerID,
		CertificateNo:    certificateNo,
		VerificationCode: code,
		StudentName:      "Aminata Kamara",
		ProgramName:      "BSc Computer Science",
		ProgramType:      models.ProgramBachelors,
		GraduationDate:   now,
		Metadata:         map[string]string{"honors": "cum laude"},
		DataHash:         "deadbeefdeadbeefdeadbeefdeadbeefdeadbeefdeadbeefdeadbeefdeadbeef",
		AnchorStatus:     models.AnchorPending,
		Status:           models.StatusActive,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

func (s *PostgresStoreSuite) TestCreateAndFind() {
	ctx := context.Background()
	credential := s.newCredential("USL-2024-00001", "K7M2P9XQ4")
	s.Require().NoError(s.store.Create(ctx, credential))

	byCode, err := s.store.FindByCode(ctx, "K7M2P9XQ4")
	s.Require().NoError(err)
	s.Equal(credential.ID, byCode.ID)
	s.Equal("cum laude", byCode.Metadata["honors"])

	byNumber, err := s.store.FindByNumber(ctx, "USL-2024-00001")
	s.Require().NoError(err)
	s.Equal(credential.ID, byNumber.ID)
}

func (s *PostgresStoreSuite) TestDuplicateVerificationCode() {
	ctx := context.Background()
	s.Require().NoError(s.store.Create(ctx, s.newCredential("USL-2024-00001", "K7M2P9XQ4")))

	err := s.store.Create(ctx, s.newCredential("USL-2024-00002", "K7M2P9XQ4"))
	s.ErrorIs(err, sentinel.ErrConflict)
}

func (s *PostgresStoreSuite) TestConcurrentSequenceAllocation() {
	ctx := context.Background()
	const goroutines = 50

	var wg sync.WaitGroup
	seen := sync.Map{}
	var duplicates atomic.Int32

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			seq, err := s.store.NextSequence(ctx, "USL", 2024)
			s.NoError(err)
			if _, loaded := seen.LoadOrStore(seq, true); loaded {
				duplicates.Add(1)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(0), duplicates.Load(), "no sequence may be handed out twice")

	next, err := s.store.NextSequence(ctx, "USL", 2024)
	s.Require().NoError(err)
	s.Equal(goroutines+1, next)
}

func (s *PostgresStoreSuite) TestConcurrentRevocation() {
	ctx := context.Background()
	credential := s.newCredential("USL-2024-00001", "K7M2P9XQ4")
	s.Require().NoError(s.store.Create(ctx, credential))

	const goroutines = 20
	var wg sync.WaitGroup
	var successCount atomic.Int32

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			issuerID := s.issuerID
			_, err := s.store.Execute(ctx, credential.ID,
				func(c *models.Credential) error { return c.CanRevoke() },
				func(c *models.Credential) { c.ApplyRevocation(issuerID, "race test", time.Now()) },
			)
			if err == nil {
				successCount.Add(1)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(1), successCount.Load(), "exactly one revocation should win")

	stored, err := s.store.FindByID(ctx, credential.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusRevoked, stored.Status)
}

func (s *PostgresStoreSuite) TestInTxRollsBackSequenceOnFailedInsert() {
	ctx := context.Background()
	existing := s.newCredential("USL-2024-00001", "K7M2P9XQ4")
	s.Require().NoError(s.store.Create(ctx, existing))

	err := s.store.InTx(ctx, func(txCtx context.Context) error {
		seq, err := s.store.NextSequence(txCtx, "USL", 2024)
		s.Require().NoError(err)
		s.Equal(1, seq)
		// Duplicate verification code forces the insert to fail.
		return s.store.Create(txCtx, s.newCredential("USL-2024-00002", "K7M2P9XQ4"))
	})
	s.ErrorIs(err, sentinel.ErrConflict)

	seq, err := s.store.NextSequence(ctx, "USL", 2024)
	s.Require().NoError(err)
	s.Equal(1, seq, "the rolled back allocation must not leave a gap")
}

func (s *PostgresStoreSuite) TestAnchorResultIsTerminal() {
	ctx := context.Background()
	credential := s.newCredential("USL-2024-00001", "K7M2P9XQ4")
	s.Require().NoError(s.store.Create(ctx, credential))

	err := s.store.UpdateAnchorResult(ctx, credential.ID, models.AnchorConfirmed, "tx-001", time.Now())
	s.Require().NoError(err)

	err = s.store.UpdateAnchorResult(ctx, credential.ID, models.AnchorFailed, "", time.Now())
	s.Require().True(errors.Is(err, sentinel.ErrInvalidState))

	stored, err := s.store.FindByID(ctx, credential.ID)
	s.Require().NoError(err)
	s.Equal(models.AnchorConfirmed, stored.AnchorStatus)
	s.Equal("tx-001", stored.LedgerReference)
}

func (s *PostgresStoreSuite) TestUpdateAnchorResultUnknownCredential() {
	err := s.store.UpdateAnchorResult(context.Background(), id.NewCredentialID(),
		models.AnchorConfirmed, "tx-001", time.Now())
	s.ErrorIs(err, sentinel.ErrNotFound)
}
