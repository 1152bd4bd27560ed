package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"credence/internal/credential/models"
	id "credence/pkg/domain"
	"credence/pkg/platform/sentinel"
)

func newTestCredential(code, number string) *models.Credential {
	now := time.Now()
	return &models.Credential{
		ID:               id.NewCredentialID(),
		InstitutionID:    id.NewInstitutionID(),
		IssuerID:         id.NewIssuerID(),
		CertificateNo:    number,
		VerificationCode: code,
		StudentName:      "A. Bangura",
		ProgramName:      "BSc Computer Science",
		ProgramType:      models.ProgramBachelors,
		GraduationDate:   time.Date(2024, 7, 15, 0, 0, 0, 0, time.UTC),
		DataHash:         "deadbeef",
		AnchorStatus:     models.AnchorPending,
		Status:           models.StatusActive,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

func TestMemoryStoreCreateAndFind(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()

	cred := newTestCredential("ABCDEFGHJ", "USL-2024-00001")
	require.NoError(t, s.Create(ctx, cred))

	byID, err := s.FindByID(ctx, cred.ID)
	require.NoError(t, err)
	assert.Equal(t, cred.VerificationCode, byID.VerificationCode)

	byCode, err := s.FindByCode(ctx, "ABCDEFGHJ")
	require.NoError(t, err)
	assert.Equal(t, cred.ID, byCode.ID)

	byNumber, err := s.FindByNumber(ctx, "USL-2024-00001")
	require.NoError(t, err)
	assert.Equal(t, cred.ID, byNumber.ID)

	_, err = s.FindByCode(ctx, "NEVERUSED")
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestMemoryStoreUniqueConstraints(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()

	require.NoError(t, s.Create(ctx, newTestCredential("ABCDEFGHJ", "USL-2024-00001")))

	sameCode := newTestCredential("ABCDEFGHJ", "USL-2024-00002")
	assert.ErrorIs(t, s.Create(ctx, sameCode), sentinel.ErrConflict)

	sameNumber := newTestCredential("KLMNPQRST", "USL-2024-00001")
	assert.ErrorIs(t, s.Create(ctx, sameNumber), sentinel.ErrConflict)

	exists, err := s.VerificationCodeExists(ctx, "ABCDEFGHJ")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestMemoryStoreExecuteSerializesTransitions(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()

	cred := newTestCredential("ABCDEFGHJ", "USL-2024-00001")
	require.NoError(t, s.Create(ctx, cred))

	revoker := id.NewIssuerID()
	now := time.Now()

	// Only one of N concurrent revocations may pass validation.
	const n = 20
	var wg sync.WaitGroup
	succeeded := make(chan struct{}, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Execute(ctx, cred.ID,
				func(c *models.Credential) error { return c.CanRevoke() },
				func(c *models.Credential) { c.ApplyRevocation(revoker, "duplicate record", now) },
			)
			if err == nil {
				succeeded <- struct{}{}
			}
		}()
	}
	wg.Wait()
	close(succeeded)

	count := 0
	for range succeeded {
		count++
	}
	assert.Equal(t, 1, count, "exactly one revocation must win")

	final, err := s.FindByID(ctx, cred.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusRevoked, final.Status)
	assert.Equal(t, "duplicate record", final.RevokedReason)
}

func TestMemoryStoreAnchorResultIsTerminal(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()

	cred := newTestCredential("ABCDEFGHJ", "USL-2024-00001")
	require.NoError(t, s.Create(ctx, cred))

	now := time.Now()
	require.NoError(t, s.UpdateAnchorResult(ctx, cred.ID, models.AnchorConfirmed, "tx-sig-1", now))

	// Second terminal write must be rejected, never overwrite the reference.
	err := s.UpdateAnchorResult(ctx, cred.ID, models.AnchorFailed, "tx-sig-2", now)
	assert.ErrorIs(t, err, sentinel.ErrInvalidState)

	final, err := s.FindByID(ctx, cred.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AnchorConfirmed, final.AnchorStatus)
	assert.Equal(t, "tx-sig-1", final.LedgerReference)

	// Unknown credential.
	err = s.UpdateAnchorResult(ctx, id.NewCredentialID(), models.AnchorFailed, "", now)
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestMemoryStoreNextSequence(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()

	for want := 1; want <= 3; want++ {
		got, err := s.NextSequence(ctx, "USL", 2024)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	other, err := s.NextSequence(ctx, "FBC", 2024)
	require.NoError(t, err)
	assert.Equal(t, 1, other, "sequences are scoped per institution")
}
