package adapters

import (
	"encoding/json"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gardenfi/swapd/internal/types"
)

func TestHexWord(t *testing.T) {
	word := hexWord("0x01")
	assert.Equal(t, byte(0x01), word[31])
	assert.Equal(t, byte(0x00), word[0])

	full := hexWord("0xaabbccddeeff00112233445566778899aabbccddeeff00112233445566778899")
	assert.Equal(t, byte(0xaa), full[0])
	assert.Equal(t, byte(0x99), full[31])

	bare := hexWord("c3a704c5669f96c853fd03521e2318f784e1fe743568fdea9fe3eca2850b3368")
	assert.Equal(t, byte(0xc3), bare[0])
}

func TestAddressUint(t *testing.T) {
	v := addressUint("0x5555555555555555555555555555555555555555")
	assert.Equal(t,
		common.HexToAddress("0x5555555555555555555555555555555555555555"),
		common.BytesToAddress(v.Bytes()))
}

func TestMustBig(t *testing.T) {
	assert.Equal(t, int64(0), mustBig("").Int64())
	assert.Equal(t, int64(144), mustBig("144").Int64())
	assert.Equal(t, int64(255), mustBig("0xff").Int64())
	assert.Equal(t, int64(0), mustBig("garbage").Int64())
}

func TestDecodeImmutables(t *testing.T) {
	order := &types.Order{
		OrderHash: "0xaaa",
		Secrets: []types.SecretEntry{{
			Index:      0,
			SecretHash: "c3a704c5669f96c853fd03521e2318f784e1fe743568fdea9fe3eca2850b3368",
		}},
	}

	raw := json.RawMessage(`{
		"orderHash": "0xaabbcc",
		"maker": "1000",
		"taker": "2000",
		"token": "3000",
		"amount": "100",
		"safetyDeposit": "1",
		"timelocks": "144"
	}`)

	immutables, err := decodeImmutables(raw, order)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(100), immutables.Amount)
	assert.Equal(t, big.NewInt(144), immutables.Timelocks)

	// The hashlock falls back to the order's first secret hash
	assert.Equal(t, hexWord("c3a704c5669f96c853fd03521e2318f784e1fe743568fdea9fe3eca2850b3368"),
		immutables.Hashlock)
}

func TestDecodeImmutablesMissingPayload(t *testing.T) {
	order := &types.Order{OrderHash: "0xaaa"}

	_, err := decodeImmutables(nil, order)
	assert.Error(t, err)

	_, err = decodeImmutables(json.RawMessage("null"), order)
	assert.Error(t, err)
}
