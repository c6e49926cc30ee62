package adapters

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/wire"
	"go.uber.org/zap"

	"github.com/gardenfi/swapd/internal/htlc"
	"github.com/gardenfi/swapd/internal/types"
)

// BitcoinRPC is the narrow chain surface the Bitcoin adapter needs
type BitcoinRPC interface {
	ListUTXOs(ctx context.Context, address string) ([]htlc.UTXO, error)
	Broadcast(ctx context.Context, tx *wire.MsgTx) (string, error)
	FeeRate(ctx context.Context) (int64, error)
}

// bitcoinLeg is the Bitcoin-side parameter block carried in an order's
// args payload
type bitcoinLeg struct {
	InitiatorPubKey string `json:"initiatorPubkey"`
	ResponderPubKey string `json:"responderPubkey"`
	Timelock        int64  `json:"timelock"`
	RecipientAddr   string `json:"recipientAddress"`
	RefundAddr      string `json:"refundAddress"`
}

// BitcoinAdapter settles Bitcoin legs through P2WSH HTLCs. There is no
// escrow contract to deploy: the HTLC address derived from the order is
// the escrow, and deposits are plain payments to it. Withdrawals spend
// the redeem branch; cancels spend the refund branch.
type BitcoinAdapter struct {
	rpc        BitcoinRPC
	chainID    uint64
	params     *chaincfg.Params
	privateKey string
	logger     *zap.Logger
}

// NewBitcoinAdapter creates an adapter for one Bitcoin-family chain
func NewBitcoinAdapter(rpc BitcoinRPC, chainID uint64, params *chaincfg.Params, privateKey string, logger *zap.Logger) *BitcoinAdapter {
	return &BitcoinAdapter{
		rpc:        rpc,
		chainID:    chainID,
		params:     params,
		privateKey: privateKey,
		logger:     logger.With(zap.Uint64("chain_id", chainID)),
	}
}

// ChainID returns the chain this adapter submits to
func (a *BitcoinAdapter) ChainID() uint64 {
	return a.chainID
}

// DeploySrcEscrow derives the source HTLC address. Funding it is the
// maker's move; the adapter only has to know where the escrow lives.
func (a *BitcoinAdapter) DeploySrcEscrow(ctx context.Context, action *OrderAction) error {
	return a.announceEscrow(action)
}

// DeployDstEscrow derives the destination HTLC address for the taker leg
func (a *BitcoinAdapter) DeployDstEscrow(ctx context.Context, action *OrderAction) error {
	return a.announceEscrow(action)
}

func (a *BitcoinAdapter) announceEscrow(action *OrderAction) error {
	contract, _, err := a.contractFor(action.Order)
	if err != nil {
		return err
	}

	address, err := contract.Address(a.params)
	if err != nil {
		return err
	}

	a.logger.Info("htlc escrow address derived",
		zap.String("order_hash", action.OrderID),
		zap.String("address", address.EncodeAddress()))
	return nil
}

// WithdrawSrc redeems the source HTLC with the revealed secret
func (a *BitcoinAdapter) WithdrawSrc(ctx context.Context, action *OrderAction) error {
	return a.redeem(ctx, action)
}

// WithdrawDst redeems the destination HTLC with the revealed secret
func (a *BitcoinAdapter) WithdrawDst(ctx context.Context, action *OrderAction) error {
	return a.redeem(ctx, action)
}

func (a *BitcoinAdapter) redeem(ctx context.Context, action *OrderAction) error {
	order := action.Order

	secret := order.FirstSecret()
	if secret == nil {
		return fmt.Errorf("order %s: no revealed secret", order.OrderHash)
	}

	contract, leg, err := a.contractFor(order)
	if err != nil {
		return err
	}

	utxos, feeRate, err := a.spendInputs(ctx, contract)
	if err != nil {
		return err
	}

	payTo, err := btcutil.DecodeAddress(leg.RecipientAddr, a.params)
	if err != nil {
		return fmt.Errorf("order %s: invalid recipient address: %w", order.OrderHash, err)
	}

	tx, err := htlc.Redeem(contract, *secret, a.privateKey, utxos, payTo, feeRate, a.params)
	if err != nil {
		return fmt.Errorf("order %s: failed to build redeem: %w", order.OrderHash, err)
	}

	txid, err := a.rpc.Broadcast(ctx, tx)
	if err != nil {
		return fmt.Errorf("order %s: failed to broadcast redeem: %w", order.OrderHash, err)
	}

	a.logger.Info("htlc redeemed",
		zap.String("order_hash", order.OrderHash),
		zap.String("txid", txid))
	return nil
}

// ArbitraryCall refunds the HTLC after the CSV timelock has matured
func (a *BitcoinAdapter) ArbitraryCall(ctx context.Context, action *OrderAction) error {
	order := action.Order

	contract, leg, err := a.contractFor(order)
	if err != nil {
		return err
	}

	utxos, feeRate, err := a.spendInputs(ctx, contract)
	if err != nil {
		return err
	}

	payTo, err := btcutil.DecodeAddress(leg.RefundAddr, a.params)
	if err != nil {
		return fmt.Errorf("order %s: invalid refund address: %w", order.OrderHash, err)
	}

	tx, err := htlc.Refund(contract, a.privateKey, utxos, payTo, feeRate, a.params)
	if err != nil {
		return fmt.Errorf("order %s: failed to build refund: %w", order.OrderHash, err)
	}

	txid, err := a.rpc.Broadcast(ctx, tx)
	if err != nil {
		return fmt.Errorf("order %s: failed to broadcast refund: %w", order.OrderHash, err)
	}

	a.logger.Info("htlc refunded",
		zap.String("order_hash", order.OrderHash),
		zap.String("txid", txid))
	return nil
}

// contractFor derives the HTLC parameters of an order's Bitcoin leg. The
// payment hash is the order's first hashlock; keys and timelock come from
// the args payload.
func (a *BitcoinAdapter) contractFor(order *types.Order) (*htlc.Contract, *bitcoinLeg, error) {
	if len(order.Secrets) == 0 {
		return nil, nil, fmt.Errorf("order %s: no hashlock", order.OrderHash)
	}

	var leg bitcoinLeg
	if err := json.Unmarshal(order.Args, &leg); err != nil {
		return nil, nil, fmt.Errorf("order %s: failed to decode bitcoin leg args: %w", order.OrderHash, err)
	}
	if leg.InitiatorPubKey == "" || leg.ResponderPubKey == "" || leg.Timelock == 0 {
		return nil, nil, fmt.Errorf("order %s: incomplete bitcoin leg args", order.OrderHash)
	}

	contract := &htlc.Contract{
		PaymentHash:     order.Secrets[0].SecretHash,
		InitiatorPubKey: leg.InitiatorPubKey,
		ResponderPubKey: leg.ResponderPubKey,
		Timelock:        leg.Timelock,
		Kind:            htlc.P2WSH,
	}
	return contract, &leg, nil
}

func (a *BitcoinAdapter) spendInputs(ctx context.Context, contract *htlc.Contract) ([]htlc.UTXO, int64, error) {
	address, err := contract.Address(a.params)
	if err != nil {
		return nil, 0, err
	}

	utxos, err := a.rpc.ListUTXOs(ctx, address.EncodeAddress())
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list utxos: %w", err)
	}
	if len(utxos) == 0 {
		return nil, 0, fmt.Errorf("no utxos at htlc address %s", address.EncodeAddress())
	}

	feeRate, err := a.rpc.FeeRate(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch fee rate: %w", err)
	}

	return utxos, feeRate, nil
}
