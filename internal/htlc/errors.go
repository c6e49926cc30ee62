package htlc

import (
	"errors"
	"fmt"
)

// Codec failures are sharply typed and never retried internally; callers
// decide whether the next tick tries again.
var (
	ErrInvalidPaymentHash = errors.New("invalid payment hash")
	ErrInvalidPublicKey   = errors.New("invalid public key")
	ErrPushBytesBuf       = errors.New("push bytes buffer error")
	ErrInvalidHTLCKind    = errors.New("invalid htlc type")
	ErrInvalidPrivateKey  = errors.New("invalid private key")
)

// InvalidTxidError reports a malformed UTXO transaction id
type InvalidTxidError struct {
	Txid string
}

func (e *InvalidTxidError) Error() string {
	return fmt.Sprintf("invalid txid: %s", e.Txid)
}

// SighashError reports a sighash computation failure for one input
type SighashError struct {
	Index int
}

func (e *SighashError) Error() string {
	return fmt.Sprintf("failed to compute sighash for input %d", e.Index)
}
