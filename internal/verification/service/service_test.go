package service

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	credmodels "credence/internal/credential/models"
	credstore "credence/internal/credential/store"
	"credence/internal/platform/middleware"
	"credence/internal/verification/models"
	verstore "credence/internal/verification/store"
	id "credence/pkg/domain"
)

func newTestService(t *testing.T) (*Service, *credstore.MemoryStore, *verstore.MemoryStore) {
	t.Helper()
	credentials := credstore.NewMemory()
	attempts := verstore.NewMemory()
	svc := New(credentials, attempts, nil, slog.New(slog.DiscardHandler), nil)
	return svc, credentials, attempts
}

func seedCredential(t *testing.T, credentials *credstore.MemoryStore, mutate func(*credmodels.Credential)) *credmodels.Credential {
	t.Helper()
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	credential := &credmodels.Credential{
		ID:               id.NewCredentialID(),
		InstitutionID:    id.NewInstitutionID(),
		IssuerID:         id.NewIssuerID(),
		CertificateNo:    "USL-2024-00001",
		VerificationCode: "K7M2P9XQ4",
		StudentName:      "Aminata Kamara",
		ProgramName:      "BSc Computer Science",
		ProgramType:      credmodels.ProgramBachelors,
		GraduationDate:   now,
		DataHash:         "deadbeef",
		AnchorStatus:     credmodels.AnchorConfirmed,
		LedgerReference:  "tx-001",
		Status:           credmodels.StatusActive,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if mutate != nil {
		mutate(credential)
	}
	require.NoError(t, credentials.Create(context.Background(), credential))
	return credential
}

func TestVerifyByCode_Valid(t *testing.T) {
	svc, credentials, attempts := newTestService(t)
	credential := seedCredential(t, credentials, nil)

	result := svc.VerifyByCode(context.Background(), "K7M2P9XQ4", "Acme Recruiting")

	assert.Equal(t, models.OutcomeValid, result.Outcome)
	assert.True(t, result.Valid)
	assert.True(t, result.BlockchainVerified)
	assert.Equal(t, "tx-001", result.LedgerReference)
	require.NotNil(t, result.Credential)
	assert.Equal(t, "USL-2024-00001", result.Credential.CertificateNo)
	assert.Empty(t, result.Credential.CGPA)

	trail := attempts.All()
	require.Len(t, trail, 1)
	assert.Equal(t, models.LookupByCode, trail[0].Method)
	assert.Equal(t, models.OutcomeValid, trail[0].Outcome)
	assert.Equal(t, "Acme Recruiting", trail[0].Organization)
	require.NotNil(t, trail[0].CredentialID)
	assert.Equal(t, credential.ID, *trail[0].CredentialID)
}

func TestVerifyByCode_NormalizesInput(t *testing.T) {
	svc, credentials, _ := newTestService(t)
	seedCredential(t, credentials, nil)

	result := svc.VerifyByCode(context.Background(), "  k7m2p9xq4  ", "")

	assert.Equal(t, models.OutcomeValid, result.Outcome)
}

func TestVerifyByCode_UnanchoredStillValid(t *testing.T) {
	svc, credentials, _ := newTestService(t)
	seedCredential(t, credentials, func(c *credmodels.Credential) {
		c.AnchorStatus = credmodels.AnchorPending
		c.LedgerReference = ""
	})

	result := svc.VerifyByCode(context.Background(), "K7M2P9XQ4", "")

	assert.Equal(t, models.OutcomeValid, result.Outcome)
	assert.True(t, result.Valid)
	assert.False(t, result.BlockchainVerified)
	assert.Contains(t, result.Message, "not yet confirmed")
}

func TestVerifyByCode_Revoked(t *testing.T) {
	svc, credentials, attempts := newTestService(t)
	revokedAt := time.Date(2025, 1, 15, 9, 0, 0, 0, time.UTC)
	seedCredential(t, credentials, func(c *credmodels.Credential) {
		c.Status = credmodels.StatusRevoked
		c.RevokedAt = &revokedAt
		c.RevokedReason = "issued in error"
	})

	result := svc.VerifyByCode(context.Background(), "K7M2P9XQ4", "")

	assert.Equal(t, models.OutcomeRevoked, result.Outcome)
	assert.False(t, result.Valid)
	require.NotNil(t, result.RevokedAt)
	assert.Equal(t, revokedAt, *result.RevokedAt)
	assert.Equal(t, "issued in error", result.RevokedReason)
	require.NotNil(t, result.Credential)

	trail := attempts.All()
	require.Len(t, trail, 1)
	assert.Equal(t, models.OutcomeRevoked, trail[0].Outcome)
}

func TestVerifyByCode_SuspendedIsInvalid(t *testing.T) {
	svc, credentials, _ := newTestService(t)
	seedCredential(t, credentials, func(c *credmodels.Credential) {
		c.Status = credmodels.StatusSuspended
	})

	result := svc.VerifyByCode(context.Background(), "K7M2P9XQ4", "")

	assert.Equal(t, models.OutcomeInvalid, result.Outcome)
	assert.False(t, result.Valid)
}

func TestVerifyByCode_NotFoundStillRecorded(t *testing.T) {
	svc, _, attempts := newTestService(t)

	result := svc.VerifyByCode(context.Background(), "ZZZZZZZZZ", "Curious Corp")

	assert.Equal(t, models.OutcomeNotFound, result.Outcome)
	assert.False(t, result.Valid)
	assert.Nil(t, result.Credential)

	trail := attempts.All()
	require.Len(t, trail, 1)
	assert.Nil(t, trail[0].CredentialID)
	assert.Equal(t, "ZZZZZZZZZ", trail[0].LookupValue)
	assert.Equal(t, "Curious Corp", trail[0].Organization)
}

func TestVerifyByCode_EmptyInputIsInvalid(t *testing.T) {
	svc, _, attempts := newTestService(t)

	result := svc.VerifyByCode(context.Background(), "   ", "")

	assert.Equal(t, models.OutcomeInvalid, result.Outcome)
	require.Len(t, attempts.All(), 1)
}

func TestVerifyByNumber(t *testing.T) {
	svc, credentials, attempts := newTestService(t)
	seedCredential(t, credentials, nil)

	result := svc.VerifyByNumber(context.Background(), "usl-2024-00001", "")

	assert.Equal(t, models.OutcomeValid, result.Outcome)
	trail := attempts.All()
	require.Len(t, trail, 1)
	assert.Equal(t, models.LookupByNumber, trail[0].Method)
	assert.Equal(t, "USL-2024-00001", trail[0].LookupValue)
}

func TestVerify_RecordsClientMetadata(t *testing.T) {
	svc, credentials, attempts := newTestService(t)
	seedCredential(t, credentials, nil)

	ctx := middleware.WithClientMetadata(context.Background(),
		"203.0.113.7",
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	)
	svc.VerifyByCode(ctx, "K7M2P9XQ4", "")

	trail := attempts.All()
	require.Len(t, trail, 1)
	assert.Equal(t, "203.0.113.7", trail[0].IPAddress)
	assert.Contains(t, trail[0].Browser, "Chrome")
	assert.Equal(t, "Windows 10", trail[0].OS)
}

type fakeCache struct {
	entries map[string]*models.Result
	hits    int
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: map[string]*models.Result{}}
}

func (c *fakeCache) Get(_ context.Context, lookup string) (*models.Result, bool) {
	result, ok := c.entries[lookup]
	if !ok {
		return nil, false
	}
	c.hits++
	clone := *result
	return &clone, true
}

func (c *fakeCache) Set(_ context.Context, lookup string, result *models.Result) {
	clone := *result
	c.entries[lookup] = &clone
}

func (c *fakeCache) Invalidate(_ context.Context, lookups ...string) {
	for _, lookup := range lookups {
		delete(c.entries, lookup)
	}
}

func TestVerifyByCode_CacheHitStillAttributed(t *testing.T) {
	credentials := credstore.NewMemory()
	attempts := verstore.NewMemory()
	resultCache := newFakeCache()
	svc := New(credentials, attempts, resultCache, slog.New(slog.DiscardHandler), nil)
	credential := seedCredential(t, credentials, nil)

	first := svc.VerifyByCode(context.Background(), "K7M2P9XQ4", "first")
	second := svc.VerifyByCode(context.Background(), "K7M2P9XQ4", "second")

	assert.Equal(t, 1, resultCache.hits)
	assert.Equal(t, first.Outcome, second.Outcome)

	trail, err := svc.AttemptsFor(context.Background(), credential.ID)
	require.NoError(t, err)
	require.Len(t, trail, 2, "the cached answer must still link its attempt to the credential")
	require.NotNil(t, trail[1].CredentialID)
	assert.Equal(t, credential.ID, *trail[1].CredentialID)
	assert.Equal(t, "second", trail[1].Organization)
}

func TestInvalidateCredential_DropsCachedResults(t *testing.T) {
	credentials := credstore.NewMemory()
	attempts := verstore.NewMemory()
	resultCache := newFakeCache()
	svc := New(credentials, attempts, resultCache, slog.New(slog.DiscardHandler), nil)
	credential := seedCredential(t, credentials, nil)

	svc.VerifyByCode(context.Background(), "K7M2P9XQ4", "")
	require.Len(t, resultCache.entries, 1)

	svc.InvalidateCredential(context.Background(), credential)
	assert.Empty(t, resultCache.entries)
}

func TestAttemptsFor(t *testing.T) {
	svc, credentials, _ := newTestService(t)
	credential := seedCredential(t, credentials, nil)

	svc.VerifyByCode(context.Background(), "K7M2P9XQ4", "first")
	svc.VerifyByCode(context.Background(), "K7M2P9XQ4", "second")
	svc.VerifyByCode(context.Background(), "MISSING99", "")

	trail, err := svc.AttemptsFor(context.Background(), credential.ID)
	require.NoError(t, err)
	require.Len(t, trail, 2)
	assert.Equal(t, "first", trail[0].Organization)
	assert.Equal(t, "second", trail[1].Organization)
}
