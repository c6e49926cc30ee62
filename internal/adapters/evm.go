package adapters

import (
	"context"
	"crypto/ecdsa"
	"encoding/json"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	coretypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"go.uber.org/zap"

	"github.com/gardenfi/swapd/internal/types"
)

// resolverContractABI is the on-chain resolver the adapter drives. Escrow
// immutables travel as the 8-slot tuple the factory emits back in
// SrcEscrowCreated.
const resolverContractABI = `[
	{
		"type": "function",
		"name": "deploySrc",
		"inputs": [
			{"name": "immutables", "type": "tuple", "components": [
				{"name": "orderHash", "type": "bytes32"},
				{"name": "hashlock", "type": "bytes32"},
				{"name": "maker", "type": "uint256"},
				{"name": "taker", "type": "uint256"},
				{"name": "token", "type": "uint256"},
				{"name": "amount", "type": "uint256"},
				{"name": "safetyDeposit", "type": "uint256"},
				{"name": "timelocks", "type": "uint256"}
			]},
			{"name": "order", "type": "tuple", "components": [
				{"name": "salt", "type": "uint256"},
				{"name": "maker", "type": "uint256"},
				{"name": "receiver", "type": "uint256"},
				{"name": "makerAsset", "type": "uint256"},
				{"name": "takerAsset", "type": "uint256"},
				{"name": "makingAmount", "type": "uint256"},
				{"name": "takingAmount", "type": "uint256"},
				{"name": "makerTraits", "type": "uint256"}
			]},
			{"name": "r", "type": "bytes32"},
			{"name": "vs", "type": "bytes32"},
			{"name": "amount", "type": "uint256"},
			{"name": "takerTraits", "type": "uint256"},
			{"name": "args", "type": "bytes"}
		]
	},
	{
		"type": "function",
		"name": "deployDst",
		"inputs": [
			{"name": "dstImmutables", "type": "tuple", "components": [
				{"name": "orderHash", "type": "bytes32"},
				{"name": "hashlock", "type": "bytes32"},
				{"name": "maker", "type": "uint256"},
				{"name": "taker", "type": "uint256"},
				{"name": "token", "type": "uint256"},
				{"name": "amount", "type": "uint256"},
				{"name": "safetyDeposit", "type": "uint256"},
				{"name": "timelocks", "type": "uint256"}
			]},
			{"name": "srcCancellationTimestamp", "type": "uint256"}
		]
	},
	{
		"type": "function",
		"name": "withdraw",
		"inputs": [
			{"name": "escrow", "type": "address"},
			{"name": "secret", "type": "bytes32"},
			{"name": "immutables", "type": "tuple", "components": [
				{"name": "orderHash", "type": "bytes32"},
				{"name": "hashlock", "type": "bytes32"},
				{"name": "maker", "type": "uint256"},
				{"name": "taker", "type": "uint256"},
				{"name": "token", "type": "uint256"},
				{"name": "amount", "type": "uint256"},
				{"name": "safetyDeposit", "type": "uint256"},
				{"name": "timelocks", "type": "uint256"}
			]}
		]
	},
	{
		"type": "function",
		"name": "cancel",
		"inputs": [
			{"name": "escrow", "type": "address"},
			{"name": "immutables", "type": "tuple", "components": [
				{"name": "orderHash", "type": "bytes32"},
				{"name": "hashlock", "type": "bytes32"},
				{"name": "maker", "type": "uint256"},
				{"name": "taker", "type": "uint256"},
				{"name": "token", "type": "uint256"},
				{"name": "amount", "type": "uint256"},
				{"name": "safetyDeposit", "type": "uint256"},
				{"name": "timelocks", "type": "uint256"}
			]}
		]
	}
]`

const evmGasLimit = 500000

// escrowImmutables mirrors the 8-slot tuple the escrow factory consumes.
// Field order matters for ABI packing.
type escrowImmutables struct {
	OrderHash     [32]byte
	Hashlock      [32]byte
	Maker         *big.Int
	Taker         *big.Int
	Token         *big.Int
	Amount        *big.Int
	SafetyDeposit *big.Int
	Timelocks     *big.Int
}

// rawImmutables is the JSON shape the relayer stores for later contract
// calls
type rawImmutables struct {
	OrderHash     string `json:"orderHash"`
	Hashlock      string `json:"hashlock"`
	Maker         string `json:"maker"`
	Taker         string `json:"taker"`
	Token         string `json:"token"`
	Amount        string `json:"amount"`
	SafetyDeposit string `json:"safetyDeposit"`
	Timelocks     string `json:"timelocks"`
}

// evmSignature is the {r, vs} pair EVM orders are signed with
type evmSignature struct {
	R  string `json:"r"`
	VS string `json:"vs"`
}

// EVMAdapter drives the resolver contract of one EVM chain
type EVMAdapter struct {
	client     *ethclient.Client
	chainID    uint64
	contract   common.Address
	privateKey *ecdsa.PrivateKey
	sender     common.Address
	abi        abi.ABI
	logger     *zap.Logger
}

// NewEVMAdapter connects to an EVM chain and prepares the resolver
// contract bindings
func NewEVMAdapter(rpcURL, resolverContract, privateKeyHex string, chainID uint64, logger *zap.Logger) (*EVMAdapter, error) {
	client, err := ethclient.Dial(rpcURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to EVM node: %w", err)
	}

	privateKey, err := crypto.HexToECDSA(strings.TrimPrefix(privateKeyHex, "0x"))
	if err != nil {
		return nil, fmt.Errorf("failed to load private key: %w", err)
	}

	parsedABI, err := abi.JSON(strings.NewReader(resolverContractABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse resolver ABI: %w", err)
	}

	return &EVMAdapter{
		client:     client,
		chainID:    chainID,
		contract:   common.HexToAddress(resolverContract),
		privateKey: privateKey,
		sender:     crypto.PubkeyToAddress(privateKey.PublicKey),
		abi:        parsedABI,
		logger:     logger.With(zap.Uint64("chain_id", chainID)),
	}, nil
}

// ChainID returns the chain this adapter submits to
func (a *EVMAdapter) ChainID() uint64 {
	return a.chainID
}

// DeploySrcEscrow fills the signed order through the resolver contract,
// which deploys the source escrow as a side effect
func (a *EVMAdapter) DeploySrcEscrow(ctx context.Context, action *OrderAction) error {
	order := action.Order

	immutables, err := decodeImmutables(order.SrcDeployImmutables, order)
	if err != nil {
		return err
	}

	var sig evmSignature
	if err := json.Unmarshal(order.Signature, &sig); err != nil {
		return fmt.Errorf("order %s: failed to decode signature: %w", order.OrderHash, err)
	}

	limitOrder := struct {
		Salt         *big.Int
		Maker        *big.Int
		Receiver     *big.Int
		MakerAsset   *big.Int
		TakerAsset   *big.Int
		MakingAmount *big.Int
		TakingAmount *big.Int
		MakerTraits  *big.Int
	}{
		Salt:         mustBig(order.Salt),
		Maker:        addressUint(order.Maker),
		Receiver:     addressUint(order.Receiver),
		MakerAsset:   addressUint(order.MakerAsset),
		TakerAsset:   addressUint(order.TakerAsset),
		MakingAmount: order.MakingAmount,
		TakingAmount: order.TakingAmount,
		MakerTraits:  mustBig(order.MakerTraits),
	}

	takerTraits := mustBig(order.TakerTraits)
	args := []byte{}
	if len(order.Args) > 0 && string(order.Args) != "null" && string(order.Args) != "{}" {
		args = order.Args
	}

	data, err := a.abi.Pack("deploySrc",
		immutables, limitOrder,
		hexWord(sig.R), hexWord(sig.VS),
		order.MakingAmount, takerTraits, args)
	if err != nil {
		return fmt.Errorf("order %s: failed to encode deploySrc: %w", order.OrderHash, err)
	}

	return a.submit(ctx, action, data, immutables.SafetyDeposit)
}

// DeployDstEscrow deploys the destination escrow with the stored
// destination immutables
func (a *EVMAdapter) DeployDstEscrow(ctx context.Context, action *OrderAction) error {
	order := action.Order

	immutables, err := decodeImmutables(order.DstDeployImmutables, order)
	if err != nil {
		return err
	}

	srcCancellation := new(big.Int).SetInt64(order.Deadline / 1000)
	data, err := a.abi.Pack("deployDst", immutables, srcCancellation)
	if err != nil {
		return fmt.Errorf("order %s: failed to encode deployDst: %w", order.OrderHash, err)
	}

	return a.submit(ctx, action, data, immutables.SafetyDeposit)
}

// WithdrawSrc spends the source escrow with the revealed secret
func (a *EVMAdapter) WithdrawSrc(ctx context.Context, action *OrderAction) error {
	return a.withdraw(ctx, action, action.Order.SrcEscrowAddress, action.Order.SrcWithdrawImmutables)
}

// WithdrawDst spends the destination escrow with the revealed secret
func (a *EVMAdapter) WithdrawDst(ctx context.Context, action *OrderAction) error {
	return a.withdraw(ctx, action, action.Order.DstEscrowAddress, action.Order.DstWithdrawImmutables)
}

func (a *EVMAdapter) withdraw(ctx context.Context, action *OrderAction, escrow string, immutablesJSON json.RawMessage) error {
	order := action.Order

	if escrow == "" {
		return fmt.Errorf("order %s: no escrow address for %s withdrawal", order.OrderHash, action.Side)
	}

	secret := order.FirstSecret()
	if secret == nil {
		return fmt.Errorf("order %s: no revealed secret", order.OrderHash)
	}

	immutables, err := decodeImmutables(immutablesJSON, order)
	if err != nil {
		return err
	}

	data, err := a.abi.Pack("withdraw",
		common.HexToAddress(escrow), hexWord(*secret), immutables)
	if err != nil {
		return fmt.Errorf("order %s: failed to encode withdraw: %w", order.OrderHash, err)
	}

	return a.submit(ctx, action, data, nil)
}

// ArbitraryCall cancels the escrow on this action's side, refunding the
// depositor once timelocks allow it
func (a *EVMAdapter) ArbitraryCall(ctx context.Context, action *OrderAction) error {
	order := action.Order

	escrow := order.DstEscrowAddress
	immutablesJSON := order.DstDeployImmutables
	if action.Side == SourceSide {
		escrow = order.SrcEscrowAddress
		immutablesJSON = order.SrcDeployImmutables
	}
	if escrow == "" {
		a.logger.Info("no escrow to cancel",
			zap.String("order_hash", order.OrderHash), zap.String("side", string(action.Side)))
		return nil
	}

	immutables, err := decodeImmutables(immutablesJSON, order)
	if err != nil {
		return err
	}

	data, err := a.abi.Pack("cancel", common.HexToAddress(escrow), immutables)
	if err != nil {
		return fmt.Errorf("order %s: failed to encode cancel: %w", order.OrderHash, err)
	}

	return a.submit(ctx, action, data, nil)
}

// submit signs and broadcasts one resolver-contract call
func (a *EVMAdapter) submit(ctx context.Context, action *OrderAction, data []byte, value *big.Int) error {
	nonce, err := a.client.PendingNonceAt(ctx, a.sender)
	if err != nil {
		return fmt.Errorf("failed to fetch nonce: %w", err)
	}

	gasPrice, err := a.client.SuggestGasPrice(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch gas price: %w", err)
	}

	if value == nil {
		value = new(big.Int)
	}

	tx := coretypes.NewTransaction(nonce, a.contract, value, evmGasLimit, gasPrice, data)
	signer := coretypes.LatestSignerForChainID(new(big.Int).SetUint64(a.chainID))
	signedTx, err := coretypes.SignTx(tx, signer, a.privateKey)
	if err != nil {
		return fmt.Errorf("failed to sign transaction: %w", err)
	}

	if err := a.client.SendTransaction(ctx, signedTx); err != nil {
		return fmt.Errorf("failed to send transaction: %w", err)
	}

	a.logger.Info("submitted resolver call",
		zap.String("order_hash", action.OrderID),
		zap.String("action", string(action.ActionType)),
		zap.String("tx_hash", signedTx.Hash().Hex()))
	return nil
}

// decodeImmutables converts a stored immutables payload into the ABI
// tuple. The hashlock falls back to the order's first secret hash when
// the payload omits it.
func decodeImmutables(raw json.RawMessage, order *types.Order) (*escrowImmutables, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, fmt.Errorf("order %s: missing immutables payload", order.OrderHash)
	}

	var decoded rawImmutables
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, fmt.Errorf("order %s: failed to decode immutables: %w", order.OrderHash, err)
	}

	hashlock := decoded.Hashlock
	if hashlock == "" && len(order.Secrets) > 0 {
		hashlock = order.Secrets[0].SecretHash
	}

	return &escrowImmutables{
		OrderHash:     hexWord(decoded.OrderHash),
		Hashlock:      hexWord(hashlock),
		Maker:         mustBig(decoded.Maker),
		Taker:         mustBig(decoded.Taker),
		Token:         mustBig(decoded.Token),
		Amount:        mustBig(decoded.Amount),
		SafetyDeposit: mustBig(decoded.SafetyDeposit),
		Timelocks:     mustBig(decoded.Timelocks),
	}, nil
}

// hexWord parses a hex string into a 32-byte word, right-aligned
func hexWord(s string) [32]byte {
	var word [32]byte
	raw := common.FromHex(s)
	if len(raw) > 32 {
		raw = raw[len(raw)-32:]
	}
	copy(word[32-len(raw):], raw)
	return word
}

// addressUint widens an address into the uint256 slot the contracts use
func addressUint(addr string) *big.Int {
	return new(big.Int).SetBytes(common.HexToAddress(addr).Bytes())
}

// mustBig parses a decimal or hex numeric string, defaulting to zero
func mustBig(s string) *big.Int {
	if s == "" {
		return new(big.Int)
	}
	if strings.HasPrefix(s, "0x") {
		v, ok := new(big.Int).SetString(s[2:], 16)
		if ok {
			return v
		}
		return new(big.Int)
	}
	v, ok := new(big.Int).SetString(s, 10)
	if ok {
		return v
	}
	return new(big.Int)
}
