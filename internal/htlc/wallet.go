package htlc

import (
	"fmt"
	"sync"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
)

// KeyProvider yields a compressed secp256k1 public key for a derivation
// path. Implementations typically front a threshold-signing service; the
// coordinator treats them as an opaque address producer.
type KeyProvider interface {
	PublicKey(path []uint32) ([]byte, error)
}

// Wallet derives per-order self-custody P2WPKH funding addresses. Each
// order gets the path (account = order_no, change = 0), so addresses never
// collide across orders. Results are cached per order.
type Wallet struct {
	keys   KeyProvider
	params *chaincfg.Params

	mu        sync.Mutex
	addresses map[uint64]string
}

// NewWallet creates a wallet over the given key provider and network
func NewWallet(keys KeyProvider, params *chaincfg.Params) *Wallet {
	return &Wallet{
		keys:      keys,
		params:    params,
		addresses: make(map[uint64]string),
	}
}

// OrderAddress returns the P2WPKH address funding the given order,
// deriving and caching it on first use
func (w *Wallet) OrderAddress(orderNo uint64) (string, error) {
	w.mu.Lock()
	if addr, ok := w.addresses[orderNo]; ok {
		w.mu.Unlock()
		return addr, nil
	}
	w.mu.Unlock()

	pubKey, err := w.keys.PublicKey([]uint32{uint32(orderNo), 0})
	if err != nil {
		return "", fmt.Errorf("failed to derive key for order %d: %w", orderNo, err)
	}
	if len(pubKey) != 33 {
		return "", ErrInvalidPublicKey
	}

	addr, err := btcutil.NewAddressWitnessPubKeyHash(btcutil.Hash160(pubKey), w.params)
	if err != nil {
		return "", fmt.Errorf("failed to derive address for order %d: %w", orderNo, err)
	}

	encoded := addr.EncodeAddress()
	w.mu.Lock()
	w.addresses[orderNo] = encoded
	w.mu.Unlock()

	return encoded, nil
}
