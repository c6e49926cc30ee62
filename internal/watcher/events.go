package watcher

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// escrowABI describes the events the coordinator understands. Addresses
// inside the immutables tuples travel in uint256 slots with the address in
// the low 20 bytes.
const escrowABI = `[
	{
		"type": "event",
		"name": "SrcEscrowCreated",
		"inputs": [
			{
				"name": "srcImmutables", "type": "tuple", "indexed": false,
				"components": [
					{"name": "orderHash", "type": "bytes32"},
					{"name": "hashlock", "type": "bytes32"},
					{"name": "maker", "type": "uint256"},
					{"name": "taker", "type": "uint256"},
					{"name": "token", "type": "uint256"},
					{"name": "amount", "type": "uint256"},
					{"name": "safetyDeposit", "type": "uint256"},
					{"name": "timelocks", "type": "uint256"}
				]
			},
			{
				"name": "dstImmutablesComplement", "type": "tuple", "indexed": false,
				"components": [
					{"name": "maker", "type": "uint256"},
					{"name": "amount", "type": "uint256"},
					{"name": "token", "type": "uint256"},
					{"name": "safetyDeposit", "type": "uint256"},
					{"name": "chainId", "type": "uint256"}
				]
			},
			{"name": "escrow", "type": "address", "indexed": false}
		]
	},
	{
		"type": "event",
		"name": "DstEscrowCreated",
		"inputs": [
			{"name": "escrow", "type": "address", "indexed": false},
			{"name": "hashlock", "type": "bytes32", "indexed": false},
			{"name": "taker", "type": "uint256", "indexed": false},
			{"name": "orderHash", "type": "bytes32", "indexed": false}
		]
	},
	{
		"type": "event",
		"name": "Withdrawal",
		"inputs": [
			{"name": "secret", "type": "bytes32", "indexed": false},
			{"name": "orderHash", "type": "bytes32", "indexed": false}
		]
	},
	{
		"type": "event",
		"name": "SourceRescue",
		"inputs": [
			{"name": "orderHash", "type": "bytes32", "indexed": false}
		]
	},
	{
		"type": "event",
		"name": "DestinationRescue",
		"inputs": [
			{"name": "orderHash", "type": "bytes32", "indexed": false}
		]
	}
]`

// EscrowABI parses the escrow event ABI
func EscrowABI() (abi.ABI, error) {
	return abi.JSON(strings.NewReader(escrowABI))
}

// SrcImmutables is the first tuple of SrcEscrowCreated
type SrcImmutables struct {
	OrderHash     [32]byte
	Hashlock      [32]byte
	Maker         *big.Int
	Taker         *big.Int
	Token         *big.Int
	Amount        *big.Int
	SafetyDeposit *big.Int
	Timelocks     *big.Int
}

// DstComplement is the second tuple of SrcEscrowCreated, carrying the
// destination-side parameters
type DstComplement struct {
	Maker         *big.Int
	Amount        *big.Int
	Token         *big.Int
	SafetyDeposit *big.Int
	ChainId       *big.Int
}

// SrcEscrowCreatedEvent is the decoded SrcEscrowCreated payload
type SrcEscrowCreatedEvent struct {
	Immutables SrcImmutables
	Complement DstComplement
	Escrow     common.Address
}

// OrderHashHex returns the order hash in canonical 0x form
func (e *SrcEscrowCreatedEvent) OrderHashHex() string {
	return hashHex(e.Immutables.OrderHash)
}

// MakerAddress extracts the maker address from its uint256 slot
func (e *SrcEscrowCreatedEvent) MakerAddress() common.Address {
	return addressFromUint(e.Immutables.Maker)
}

// TakerAddress extracts the taker address from its uint256 slot
func (e *SrcEscrowCreatedEvent) TakerAddress() common.Address {
	return addressFromUint(e.Immutables.Taker)
}

// TokenAddress extracts the token address from its uint256 slot
func (e *SrcEscrowCreatedEvent) TokenAddress() common.Address {
	return addressFromUint(e.Immutables.Token)
}

// DstEscrowCreatedEvent is the decoded DstEscrowCreated payload
type DstEscrowCreatedEvent struct {
	Escrow    common.Address
	Hashlock  [32]byte
	Taker     common.Address
	OrderHash [32]byte
}

// OrderHashHex returns the order hash in canonical 0x form
func (e *DstEscrowCreatedEvent) OrderHashHex() string {
	return hashHex(e.OrderHash)
}

// WithdrawalEvent is the decoded Withdrawal payload. The emitting contract
// address, not the payload, disambiguates source from destination.
type WithdrawalEvent struct {
	Secret    [32]byte
	OrderHash [32]byte
}

// OrderHashHex returns the order hash in canonical 0x form
func (e *WithdrawalEvent) OrderHashHex() string {
	return hashHex(e.OrderHash)
}

// SecretHex returns the revealed secret as bare hex
func (e *WithdrawalEvent) SecretHex() string {
	return fmt.Sprintf("%x", e.Secret)
}

// RescueEvent is the decoded payload of either rescue variant
type RescueEvent struct {
	OrderHash [32]byte
}

// OrderHashHex returns the order hash in canonical 0x form
func (e *RescueEvent) OrderHashHex() string {
	return hashHex(e.OrderHash)
}

// DecodeSrcEscrowCreated unpacks a SrcEscrowCreated log
func DecodeSrcEscrowCreated(contractABI abi.ABI, lg *types.Log) (*SrcEscrowCreatedEvent, error) {
	out, err := contractABI.Unpack("SrcEscrowCreated", lg.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode SrcEscrowCreated: %w", err)
	}
	if len(out) != 3 {
		return nil, fmt.Errorf("expected 3 parameters for SrcEscrowCreated, got %d", len(out))
	}

	event := &SrcEscrowCreatedEvent{}
	event.Immutables = *abi.ConvertType(out[0], new(SrcImmutables)).(*SrcImmutables)
	event.Complement = *abi.ConvertType(out[1], new(DstComplement)).(*DstComplement)
	event.Escrow = *abi.ConvertType(out[2], new(common.Address)).(*common.Address)
	return event, nil
}

// DecodeDstEscrowCreated unpacks a DstEscrowCreated log
func DecodeDstEscrowCreated(contractABI abi.ABI, lg *types.Log) (*DstEscrowCreatedEvent, error) {
	out, err := contractABI.Unpack("DstEscrowCreated", lg.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode DstEscrowCreated: %w", err)
	}
	if len(out) != 4 {
		return nil, fmt.Errorf("expected 4 parameters for DstEscrowCreated, got %d", len(out))
	}

	event := &DstEscrowCreatedEvent{}
	event.Escrow = *abi.ConvertType(out[0], new(common.Address)).(*common.Address)
	event.Hashlock = *abi.ConvertType(out[1], new([32]byte)).(*[32]byte)
	event.Taker = addressFromUint(abi.ConvertType(out[2], new(big.Int)).(*big.Int))
	event.OrderHash = *abi.ConvertType(out[3], new([32]byte)).(*[32]byte)
	return event, nil
}

// DecodeWithdrawal unpacks a Withdrawal log
func DecodeWithdrawal(contractABI abi.ABI, lg *types.Log) (*WithdrawalEvent, error) {
	out, err := contractABI.Unpack("Withdrawal", lg.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode Withdrawal: %w", err)
	}
	if len(out) != 2 {
		return nil, fmt.Errorf("expected 2 parameters for Withdrawal, got %d", len(out))
	}

	event := &WithdrawalEvent{}
	event.Secret = *abi.ConvertType(out[0], new([32]byte)).(*[32]byte)
	event.OrderHash = *abi.ConvertType(out[1], new([32]byte)).(*[32]byte)
	return event, nil
}

// DecodeRescue unpacks either rescue variant
func DecodeRescue(contractABI abi.ABI, name string, lg *types.Log) (*RescueEvent, error) {
	out, err := contractABI.Unpack(name, lg.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", name, err)
	}
	if len(out) != 1 {
		return nil, fmt.Errorf("expected 1 parameter for %s, got %d", name, len(out))
	}

	event := &RescueEvent{}
	event.OrderHash = *abi.ConvertType(out[0], new([32]byte)).(*[32]byte)
	return event, nil
}

// addressFromUint recovers an address stored in the low 20 bytes of a
// uint256 slot
func addressFromUint(v *big.Int) common.Address {
	if v == nil {
		return common.Address{}
	}
	return common.BytesToAddress(v.Bytes())
}

func hashHex(h [32]byte) string {
	return fmt.Sprintf("0x%x", h)
}
