package htlc

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/txscript"
)

// Kind selects the script template of an HTLC
type Kind string

// P2WSH is the native-segwit two-branch HTLC. It is the only template the
// coordinator deploys.
const P2WSH Kind = "p2wsh"

// Contract holds the parameters an HTLC script is derived from. The
// derived script, and therefore the P2WSH address, is a pure function of
// these fields.
type Contract struct {
	PaymentHash     string
	InitiatorPubKey string
	ResponderPubKey string
	Timelock        int64
	Kind            Kind
}

// WitnessScript builds the two-branch HTLC witness script:
//
//	IF OP_SHA256 <payment_hash> OP_EQUALVERIFY <responder_pk> OP_CHECKSIG
//	ELSE <timelock> OP_CSV OP_DROP <initiator_pk> OP_CHECKSIG ENDIF
//
// The IF branch redeems with the preimage, signed by the responder; the
// ELSE branch refunds to the initiator after the relative timelock.
func (c *Contract) WitnessScript() ([]byte, error) {
	paymentHash, err := hex.DecodeString(c.PaymentHash)
	if err != nil || len(paymentHash) != sha256.Size {
		return nil, ErrInvalidPaymentHash
	}

	responderKey, err := parseCompressedKey(c.ResponderPubKey)
	if err != nil {
		return nil, err
	}
	initiatorKey, err := parseCompressedKey(c.InitiatorPubKey)
	if err != nil {
		return nil, err
	}

	builder := txscript.NewScriptBuilder()
	builder.AddOp(txscript.OP_IF)
	builder.AddOp(txscript.OP_SHA256)
	builder.AddData(paymentHash)
	builder.AddOp(txscript.OP_EQUALVERIFY)
	builder.AddData(responderKey)
	builder.AddOp(txscript.OP_CHECKSIG)
	builder.AddOp(txscript.OP_ELSE)
	builder.AddInt64(c.Timelock)
	builder.AddOp(txscript.OP_CHECKSEQUENCEVERIFY)
	builder.AddOp(txscript.OP_DROP)
	builder.AddData(initiatorKey)
	builder.AddOp(txscript.OP_CHECKSIG)
	builder.AddOp(txscript.OP_ENDIF)

	script, err := builder.Script()
	if err != nil {
		return nil, ErrPushBytesBuf
	}
	return script, nil
}

// Address derives the P2WSH address of the HTLC for the given network
func (c *Contract) Address(params *chaincfg.Params) (btcutil.Address, error) {
	if c.Kind != "" && c.Kind != P2WSH {
		return nil, ErrInvalidHTLCKind
	}

	script, err := c.WitnessScript()
	if err != nil {
		return nil, err
	}

	scriptHash := sha256.Sum256(script)
	return btcutil.NewAddressWitnessScriptHash(scriptHash[:], params)
}

// parseCompressedKey validates a 33-byte compressed secp256k1 public key
// given as hex and returns its raw bytes for pushing into a script
func parseCompressedKey(s string) ([]byte, error) {
	raw, err := hex.DecodeString(s)
	if err != nil || len(raw) != 33 {
		return nil, ErrInvalidPublicKey
	}
	if raw[0] != 0x02 && raw[0] != 0x03 {
		return nil, ErrInvalidPublicKey
	}
	return raw, nil
}
