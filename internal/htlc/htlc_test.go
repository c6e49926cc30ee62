package htlc

import (
	"bytes"
	"encoding/hex"
	"testing"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const expectedTestnetAddress = "tb1qvcdnft8sszsjrfy0k6dw8t3qkf76au6j7axycgy0qtwdyvtvn2rsumwnly"

func testContract() *Contract {
	return &Contract{
		PaymentHash:     "c3a704c5669f96c853fd03521e2318f784e1fe743568fdea9fe3eca2850b3368",
		InitiatorPubKey: "0280b2aa1b37d358607896a0747f6104d576fd1b887792e3b2fdc37c7170a8a4d7",
		ResponderPubKey: "03d168e6449eae4d673b0020c7e7cbf0b4ba11fddf762450a1cce444b8206d3e0f",
		Timelock:        144,
		Kind:            P2WSH,
	}
}

func TestAddressDerivation(t *testing.T) {
	contract := testContract()

	addr, err := contract.Address(&chaincfg.TestNet3Params)
	require.NoError(t, err)
	assert.Equal(t, expectedTestnetAddress, addr.EncodeAddress())
}

func TestAddressIsPureFunctionOfInputs(t *testing.T) {
	first, err := testContract().WitnessScript()
	require.NoError(t, err)
	second, err := testContract().WitnessScript()
	require.NoError(t, err)
	assert.True(t, bytes.Equal(first, second))

	addrOne, err := testContract().Address(&chaincfg.TestNet3Params)
	require.NoError(t, err)
	addrTwo, err := testContract().Address(&chaincfg.TestNet3Params)
	require.NoError(t, err)
	assert.Equal(t, addrOne.EncodeAddress(), addrTwo.EncodeAddress())
}

func TestWitnessScriptLayout(t *testing.T) {
	script, err := testContract().WitnessScript()
	require.NoError(t, err)

	// IF SHA256 <32B hash> EQUALVERIFY <33B responder> CHECKSIG
	// ELSE <timelock> CSV DROP <33B initiator> CHECKSIG ENDIF
	expected := "63" + // OP_IF
		"a8" + // OP_SHA256
		"20c3a704c5669f96c853fd03521e2318f784e1fe743568fdea9fe3eca2850b3368" +
		"88" + // OP_EQUALVERIFY
		"2103d168e6449eae4d673b0020c7e7cbf0b4ba11fddf762450a1cce444b8206d3e0f" +
		"ac" + // OP_CHECKSIG
		"67" + // OP_ELSE
		"029000" + // minimal push of 144
		"b2" + // OP_CHECKSEQUENCEVERIFY
		"75" + // OP_DROP
		"210280b2aa1b37d358607896a0747f6104d576fd1b887792e3b2fdc37c7170a8a4d7" +
		"ac" + // OP_CHECKSIG
		"68" // OP_ENDIF
	assert.Equal(t, expected, hex.EncodeToString(script))
}

func TestRedeemTransaction(t *testing.T) {
	contract := testContract()
	preimage := "1572a86fb4b1f15623da10e34034fd151090d37e6f0f3ef4f69926f7f3388b78"
	privateKey := "b883a78959fadb3c31036b724be10dd08cec325f2e82812e9e0291ab0863ab84"

	payTo, err := btcutil.DecodeAddress("tb1q7rg6er2dtafjm9y6kemjqh3a932a6rlwrl9l4v", &chaincfg.TestNet3Params)
	require.NoError(t, err)

	utxos := []UTXO{{
		TxID:  "3dae1de0ab840ebc5f1b27ddc275acf52e7c86117218157986504ac8eaac98e1",
		Vout:  0,
		Value: 1000,
	}}

	tx, err := Redeem(contract, preimage, privateKey, utxos, payTo, 3, &chaincfg.TestNet3Params)
	require.NoError(t, err)

	require.Len(t, tx.TxIn, 1)
	assert.Equal(t, uint32(0xFFFFFFFD), tx.TxIn[0].Sequence)

	// Witness stack: <sig|sighash_all> <preimage> <0x01> <witness_script>
	witness := tx.TxIn[0].Witness
	require.Len(t, witness, 4)
	assert.Equal(t, byte(0x01), witness[0][len(witness[0])-1], "signature must end with SIGHASH_ALL")

	preimageBytes, _ := hex.DecodeString(preimage)
	assert.Equal(t, preimageBytes, witness[1])
	assert.Equal(t, []byte{0x01}, witness[2])

	script, err := contract.WitnessScript()
	require.NoError(t, err)
	assert.Equal(t, script, witness[3])

	// Fee equals the estimate at 3 sat/vB
	expectedFee := estimateFee(1, 1, redeemWitnessSize(len(script)), 3)
	require.Len(t, tx.TxOut, 1)
	assert.Equal(t, int64(1000)-expectedFee, tx.TxOut[0].Value)
}

func TestRefundTransaction(t *testing.T) {
	contract := testContract()
	contract.Timelock = 5
	privateKey := "0bb90fe46bc4145c6e3c33dd08918eb213a0346e3b77ce0e6cffb3684b3de2f7"

	payTo, err := btcutil.DecodeAddress("tb1qmrmpwhh79ayxmym8rg7ncg4ttw2c7c8mjrqean", &chaincfg.TestNet3Params)
	require.NoError(t, err)

	utxos := []UTXO{{
		TxID:  "1f93459a31c5cdaf86daff892b29343aca2e85f7bd27761ab155df23423b8223",
		Vout:  0,
		Value: 1000,
	}}

	tx, err := Refund(contract, privateKey, utxos, payTo, 3, &chaincfg.TestNet3Params)
	require.NoError(t, err)

	// The CSV value rides in the input sequence
	require.Len(t, tx.TxIn, 1)
	assert.Equal(t, uint32(5), tx.TxIn[0].Sequence)

	// Witness stack: <sig|sighash_all> <empty> <witness_script>
	witness := tx.TxIn[0].Witness
	require.Len(t, witness, 3)
	assert.Equal(t, byte(0x01), witness[0][len(witness[0])-1])
	assert.Empty(t, witness[1])

	script, err := contract.WitnessScript()
	require.NoError(t, err)
	assert.Equal(t, script, witness[2])

	expectedFee := estimateFee(1, 1, refundWitnessSize(len(script)), 3)
	require.Len(t, tx.TxOut, 1)
	assert.Equal(t, int64(1000)-expectedFee, tx.TxOut[0].Value)
}

func TestRedeemMultipleInputs(t *testing.T) {
	contract := testContract()
	preimage := "1572a86fb4b1f15623da10e34034fd151090d37e6f0f3ef4f69926f7f3388b78"
	privateKey := "b883a78959fadb3c31036b724be10dd08cec325f2e82812e9e0291ab0863ab84"

	payTo, err := btcutil.DecodeAddress("tb1q7rg6er2dtafjm9y6kemjqh3a932a6rlwrl9l4v", &chaincfg.TestNet3Params)
	require.NoError(t, err)

	utxos := []UTXO{
		{TxID: "3dae1de0ab840ebc5f1b27ddc275acf52e7c86117218157986504ac8eaac98e1", Vout: 0, Value: 1000},
		{TxID: "1f93459a31c5cdaf86daff892b29343aca2e85f7bd27761ab155df23423b8223", Vout: 1, Value: 2500},
	}

	tx, err := Redeem(contract, preimage, privateKey, utxos, payTo, 2, &chaincfg.TestNet3Params)
	require.NoError(t, err)

	require.Len(t, tx.TxIn, 2)
	for _, txIn := range tx.TxIn {
		assert.Len(t, txIn.Witness, 4)
	}

	script, _ := contract.WitnessScript()
	expectedFee := estimateFee(2, 1, redeemWitnessSize(len(script)), 2)
	assert.Equal(t, int64(3500)-expectedFee, tx.TxOut[0].Value)
}

func TestFeeEstimateRounding(t *testing.T) {
	// vsize rounds up: weight not divisible by four must not undercount
	fee := estimateFee(1, 1, 100, 1)
	baseSize := 6 + 40 + 1 + 43 + 4
	weight := baseSize*4 + 100
	assert.Equal(t, int64((weight+3)/4), fee)
}

func TestErrorTypes(t *testing.T) {
	payTo, err := btcutil.DecodeAddress("tb1q7rg6er2dtafjm9y6kemjqh3a932a6rlwrl9l4v", &chaincfg.TestNet3Params)
	require.NoError(t, err)

	t.Run("bad payment hash", func(t *testing.T) {
		contract := testContract()
		contract.PaymentHash = "zz"
		_, err := contract.WitnessScript()
		assert.ErrorIs(t, err, ErrInvalidPaymentHash)
	})

	t.Run("short payment hash", func(t *testing.T) {
		contract := testContract()
		contract.PaymentHash = "c3a704"
		_, err := contract.WitnessScript()
		assert.ErrorIs(t, err, ErrInvalidPaymentHash)
	})

	t.Run("bad public key", func(t *testing.T) {
		contract := testContract()
		contract.ResponderPubKey = "04deadbeef"
		_, err := contract.WitnessScript()
		assert.ErrorIs(t, err, ErrInvalidPublicKey)
	})

	t.Run("bad htlc kind", func(t *testing.T) {
		contract := testContract()
		contract.Kind = "p2tr"
		_, err := contract.Address(&chaincfg.TestNet3Params)
		assert.ErrorIs(t, err, ErrInvalidHTLCKind)
	})

	t.Run("bad private key", func(t *testing.T) {
		_, err := Redeem(testContract(), "00", "nothex",
			[]UTXO{{TxID: "3dae1de0ab840ebc5f1b27ddc275acf52e7c86117218157986504ac8eaac98e1", Vout: 0, Value: 1000}},
			payTo, 1, &chaincfg.TestNet3Params)
		assert.ErrorIs(t, err, ErrInvalidPrivateKey)
	})

	t.Run("bad txid", func(t *testing.T) {
		_, err := Redeem(testContract(), "00",
			"b883a78959fadb3c31036b724be10dd08cec325f2e82812e9e0291ab0863ab84",
			[]UTXO{{TxID: "not-a-txid", Vout: 0, Value: 1000}},
			payTo, 1, &chaincfg.TestNet3Params)
		var txidErr *InvalidTxidError
		assert.ErrorAs(t, err, &txidErr)
	})
}

func TestTransactionSerializes(t *testing.T) {
	contract := testContract()
	preimage := "1572a86fb4b1f15623da10e34034fd151090d37e6f0f3ef4f69926f7f3388b78"
	privateKey := "b883a78959fadb3c31036b724be10dd08cec325f2e82812e9e0291ab0863ab84"

	payTo, err := btcutil.DecodeAddress("tb1q7rg6er2dtafjm9y6kemjqh3a932a6rlwrl9l4v", &chaincfg.TestNet3Params)
	require.NoError(t, err)

	tx, err := Redeem(contract, preimage, privateKey,
		[]UTXO{{TxID: "3dae1de0ab840ebc5f1b27ddc275acf52e7c86117218157986504ac8eaac98e1", Vout: 0, Value: 1000}},
		payTo, 3, &chaincfg.TestNet3Params)
	require.NoError(t, err)

	assert.Equal(t, int32(2), tx.Version)

	var buf bytes.Buffer
	require.NoError(t, tx.Serialize(&buf))
	assert.True(t, buf.Len() > 0)
	assert.Equal(t, wire.TxVersion+1, int(tx.Version))
}
