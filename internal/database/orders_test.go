package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gardenfi/swapd/internal/types"
)

func strPtr(s string) *string { return &s }

func TestMergeSecretIdempotent(t *testing.T) {
	secret := "1572a86fb4b1f15623da10e34034fd151090d37e6f0f3ef4f69926f7f3388b78"
	hash, err := types.HashSecret(secret)
	require.NoError(t, err)

	secrets := []types.SecretEntry{{Index: 0, Secret: strPtr(secret), SecretHash: hash}}

	merged, changed := mergeSecret(secrets, secret)
	assert.False(t, changed)
	assert.Len(t, merged, 1)
}

func TestMergeSecretFillsMatchingEntry(t *testing.T) {
	secret := "1572a86fb4b1f15623da10e34034fd151090d37e6f0f3ef4f69926f7f3388b78"
	hash, err := types.HashSecret(secret)
	require.NoError(t, err)

	// The order was submitted with the hashlock only
	secrets := []types.SecretEntry{{Index: 0, SecretHash: hash}}

	merged, changed := mergeSecret(secrets, secret)
	assert.True(t, changed)
	require.Len(t, merged, 1)
	require.NotNil(t, merged[0].Secret)
	assert.Equal(t, secret, *merged[0].Secret)
	assert.Equal(t, hash, merged[0].SecretHash)
}

func TestMergeSecretAppendsAtNextFreeIndex(t *testing.T) {
	first := "1572a86fb4b1f15623da10e34034fd151090d37e6f0f3ef4f69926f7f3388b78"
	firstHash, _ := types.HashSecret(first)
	secrets := []types.SecretEntry{{Index: 0, Secret: strPtr(first), SecretHash: firstHash}}

	merged, changed := mergeSecret(secrets, "deadbeef")
	assert.True(t, changed)
	require.Len(t, merged, 2)
	assert.Equal(t, uint32(1), merged[1].Index)

	wantHash, _ := types.HashSecret("deadbeef")
	assert.Equal(t, wantHash, merged[1].SecretHash)
}

func TestMergeSecretDoesNotFillMismatchedEntry(t *testing.T) {
	secrets := []types.SecretEntry{{
		Index:      0,
		SecretHash: "c3a704c5669f96c853fd03521e2318f784e1fe743568fdea9fe3eca2850b3368",
	}}

	merged, changed := mergeSecret(secrets, "deadbeef")
	assert.True(t, changed)
	require.Len(t, merged, 2)
	// The unrevealed hashlock stays unrevealed
	assert.Nil(t, merged[0].Secret)
}

func TestTrimNumeric(t *testing.T) {
	assert.Equal(t, "100", trimNumeric("100"))
	assert.Equal(t, "100", trimNumeric("100.000000"))
	assert.Equal(t, "", trimNumeric(""))
	assert.Equal(t, "0", trimNumeric("0.0"))
}

func TestTerminalStatuses(t *testing.T) {
	for _, s := range terminalStatuses() {
		assert.True(t, types.OrderStatus(s).Terminal(), "%s must be terminal", s)
	}
}
