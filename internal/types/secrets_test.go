package types

import (
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestHashSecret(t *testing.T) {
	secret := "1572a86fb4b1f15623da10e34034fd151090d37e6f0f3ef4f69926f7f3388b78"
	raw, _ := hex.DecodeString(secret)
	want := sha256.Sum256(raw)

	got, err := HashSecret(secret)
	require.NoError(t, err)
	assert.Equal(t, hex.EncodeToString(want[:]), got)
}

func TestDecodeSecretRejectsBadInput(t *testing.T) {
	_, err := DecodeSecret("")
	assert.Error(t, err)

	_, err = DecodeSecret("0xdeadbeef")
	assert.Error(t, err)

	_, err = DecodeSecret("not-hex")
	assert.Error(t, err)

	raw, err := DecodeSecret("deadbeef")
	require.NoError(t, err)
	assert.Equal(t, []byte{0xde, 0xad, 0xbe, 0xef}, raw)
}

func TestVerifySecretEntrySha256(t *testing.T) {
	secret := "1572a86fb4b1f15623da10e34034fd151090d37e6f0f3ef4f69926f7f3388b78"
	hash, err := HashSecret(secret)
	require.NoError(t, err)

	entry := SecretEntry{Index: 0, Secret: strPtr(secret), SecretHash: hash}
	assert.NoError(t, VerifySecretEntry(&entry))

	// 0x-prefixed stored hashes compare equal too
	entry.SecretHash = "0x" + hash
	assert.NoError(t, VerifySecretEntry(&entry))
}

func TestVerifySecretEntryKeccak(t *testing.T) {
	secret := "1572a86fb4b1f15623da10e34034fd151090d37e6f0f3ef4f69926f7f3388b78"
	raw, _ := hex.DecodeString(secret)
	hash := hex.EncodeToString(crypto.Keccak256(raw))

	entry := SecretEntry{Index: 0, Secret: strPtr(secret), SecretHash: hash}
	assert.NoError(t, VerifySecretEntry(&entry))
}

func TestVerifySecretEntryMismatch(t *testing.T) {
	entry := SecretEntry{
		Index:      0,
		Secret:     strPtr("deadbeef"),
		SecretHash: "c3a704c5669f96c853fd03521e2318f784e1fe743568fdea9fe3eca2850b3368",
	}
	assert.Error(t, VerifySecretEntry(&entry))
}

func TestVerifySecretEntryUnrevealed(t *testing.T) {
	entry := SecretEntry{Index: 0, SecretHash: "c3a704c5669f96c853fd03521e2318f784e1fe743568fdea9fe3eca2850b3368"}
	assert.NoError(t, VerifySecretEntry(&entry))
}
