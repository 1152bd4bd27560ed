package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"credence/internal/verification/models"
	id "credence/pkg/domain"
)

func TestResultRoundTripKeepsCredentialID(t *testing.T) {
	credentialID := id.NewCredentialID()
	result := &models.Result{
		Outcome:            models.OutcomeValid,
		Valid:              true,
		Message:            "credential verified successfully",
		BlockchainVerified: true,
		LedgerReference:    "tx-001",
		CredentialID:       &credentialID,
	}

	raw, err := encodeResult(result)
	require.NoError(t, err)

	decoded, err := decodeResult(raw)
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeValid, decoded.Outcome)
	assert.Equal(t, "tx-001", decoded.LedgerReference)
	require.NotNil(t, decoded.CredentialID, "the attribution must survive the cache")
	assert.Equal(t, credentialID, *decoded.CredentialID)
}

func TestNilClientDisablesCache(t *testing.T) {
	assert.Nil(t, New(nil, 0, nil))
}
