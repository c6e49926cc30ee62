package htlc

import (
	"encoding/hex"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
)

// UTXO references an unspent output at the HTLC address
type UTXO struct {
	TxID  string
	Vout  uint32
	Value int64
}

// redeemSequence is the RBF-compatible sequence that does not trigger CSV
// evaluation (BIP 125, BIP 68)
const redeemSequence = wire.MaxTxInSequenceNum - 2

// Redeem assembles and signs the transaction spending the HTLC's redeem
// branch. Every input spends a UTXO at the HTLC address; the single output
// pays payTo the total input value minus the estimated fee. The witness
// stack per input is, in order:
//
//	<signature|sighash_all> <preimage> <0x01> <witness_script>
func Redeem(contract *Contract, preimage string, receiverKey string, utxos []UTXO, payTo btcutil.Address, feeRate int64, params *chaincfg.Params) (*wire.MsgTx, error) {
	script, err := contract.WitnessScript()
	if err != nil {
		return nil, err
	}

	preimageBytes, err := hex.DecodeString(preimage)
	if err != nil {
		return nil, ErrInvalidPaymentHash
	}

	key, err := parsePrivateKey(receiverKey)
	if err != nil {
		return nil, err
	}

	fee := estimateFee(len(utxos), 1, redeemWitnessSize(len(script)), feeRate)
	tx, prevOuts, err := buildSpend(contract, utxos, payTo, fee, redeemSequence, params)
	if err != nil {
		return nil, err
	}

	fetcher := txscript.NewMultiPrevOutFetcher(prevOuts)
	sigHashes := txscript.NewTxSigHashes(tx, fetcher)

	for i := range tx.TxIn {
		prevOut := prevOuts[tx.TxIn[i].PreviousOutPoint]
		sig, err := txscript.RawTxInWitnessSignature(
			tx, sigHashes, i, prevOut.Value, script, txscript.SigHashAll, key)
		if err != nil {
			return nil, &SighashError{Index: i}
		}

		tx.TxIn[i].Witness = wire.TxWitness{sig, preimageBytes, {0x01}, script}
	}

	return tx, nil
}

// Refund assembles and signs the transaction spending the HTLC's refund
// branch. Each input carries the CSV timelock as its sequence so the
// relative locktime is enforced. The witness stack per input is:
//
//	<signature|sighash_all> <empty> <witness_script>
func Refund(contract *Contract, senderKey string, utxos []UTXO, payTo btcutil.Address, feeRate int64, params *chaincfg.Params) (*wire.MsgTx, error) {
	script, err := contract.WitnessScript()
	if err != nil {
		return nil, err
	}

	key, err := parsePrivateKey(senderKey)
	if err != nil {
		return nil, err
	}

	fee := estimateFee(len(utxos), 1, refundWitnessSize(len(script)), feeRate)
	tx, prevOuts, err := buildSpend(contract, utxos, payTo, fee, uint32(contract.Timelock), params)
	if err != nil {
		return nil, err
	}

	fetcher := txscript.NewMultiPrevOutFetcher(prevOuts)
	sigHashes := txscript.NewTxSigHashes(tx, fetcher)

	for i := range tx.TxIn {
		prevOut := prevOuts[tx.TxIn[i].PreviousOutPoint]
		sig, err := txscript.RawTxInWitnessSignature(
			tx, sigHashes, i, prevOut.Value, script, txscript.SigHashAll, key)
		if err != nil {
			return nil, &SighashError{Index: i}
		}

		tx.TxIn[i].Witness = wire.TxWitness{sig, nil, script}
	}

	return tx, nil
}

// buildSpend creates the unsigned spend of the given UTXOs at the HTLC
// address, paying total minus fee to payTo, with every input carrying the
// given sequence
func buildSpend(contract *Contract, utxos []UTXO, payTo btcutil.Address, fee int64, sequence uint32, params *chaincfg.Params) (*wire.MsgTx, map[wire.OutPoint]*wire.TxOut, error) {
	htlcAddr, err := contract.Address(params)
	if err != nil {
		return nil, nil, err
	}
	htlcScript, err := txscript.PayToAddrScript(htlcAddr)
	if err != nil {
		return nil, nil, ErrPushBytesBuf
	}

	tx := wire.NewMsgTx(2)
	prevOuts := make(map[wire.OutPoint]*wire.TxOut, len(utxos))
	totalIn := int64(0)

	for _, utxo := range utxos {
		txid, err := chainhash.NewHashFromStr(utxo.TxID)
		if err != nil {
			return nil, nil, &InvalidTxidError{Txid: utxo.TxID}
		}

		outpoint := wire.NewOutPoint(txid, utxo.Vout)
		txIn := wire.NewTxIn(outpoint, nil, nil)
		txIn.Sequence = sequence
		tx.AddTxIn(txIn)

		prevOuts[*outpoint] = wire.NewTxOut(utxo.Value, htlcScript)
		totalIn += utxo.Value
	}

	payScript, err := txscript.PayToAddrScript(payTo)
	if err != nil {
		return nil, nil, ErrPushBytesBuf
	}
	tx.AddTxOut(wire.NewTxOut(totalIn-fee, payScript))

	return tx, prevOuts, nil
}

// parsePrivateKey parses a raw 32-byte hex private key
func parsePrivateKey(s string) (*btcec.PrivateKey, error) {
	raw, err := hex.DecodeString(s)
	if err != nil || len(raw) != 32 {
		return nil, ErrInvalidPrivateKey
	}
	key, _ := btcec.PrivKeyFromBytes(raw)
	return key, nil
}
