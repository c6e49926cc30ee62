package types

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"
)

// HashSecret returns the hex sha256 digest of a hex-encoded secret.
// Bitcoin-family hashlocks use sha256.
func HashSecret(secret string) (string, error) {
	raw, err := DecodeSecret(secret)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:]), nil
}

// DecodeSecret decodes a secret submitted as hex without the 0x prefix
func DecodeSecret(secret string) ([]byte, error) {
	if secret == "" {
		return nil, fmt.Errorf("secret cannot be empty")
	}
	if strings.HasPrefix(secret, "0x") {
		return nil, fmt.Errorf("secret must not carry a 0x prefix")
	}
	raw, err := hex.DecodeString(secret)
	if err != nil {
		return nil, fmt.Errorf("secret must be a valid hex string: %w", err)
	}
	return raw, nil
}

// VerifySecretEntry checks that a revealed secret matches its stored hash.
// EVM legs lock on keccak256 and Bitcoin legs on sha256, so either digest
// satisfies the entry; an entry whose secret matches neither is rejected.
func VerifySecretEntry(entry *SecretEntry) error {
	if !entry.Revealed() {
		return nil
	}

	raw, err := DecodeSecret(*entry.Secret)
	if err != nil {
		return fmt.Errorf("secret at index %d: %w", entry.Index, err)
	}

	want := strings.TrimPrefix(strings.ToLower(entry.SecretHash), "0x")

	sha := sha256.Sum256(raw)
	if hex.EncodeToString(sha[:]) == want {
		return nil
	}
	if hex.EncodeToString(crypto.Keccak256(raw)) == want {
		return nil
	}

	return fmt.Errorf("secret at index %d does not match its hash", entry.Index)
}
