package adapters

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"

	"github.com/gardenfi/swapd/internal/types"
)

// solanaLeg carries pre-built, pre-signed transactions for each action on
// a Solana leg. The program-side encoding happens off-coordinator; the
// adapter only relays.
type solanaLeg struct {
	DeployTx   string `json:"deployTx"`
	WithdrawTx string `json:"withdrawTx"`
	CancelTx   string `json:"cancelTx"`
}

// SolanaAdapter relays pre-encoded transactions from an order's args
// payload to a Solana RPC endpoint
type SolanaAdapter struct {
	client  *rpc.Client
	chainID uint64
	logger  *zap.Logger
}

// NewSolanaAdapter connects to a Solana RPC endpoint
func NewSolanaAdapter(rpcURL string, chainID uint64, logger *zap.Logger) *SolanaAdapter {
	return &SolanaAdapter{
		client:  rpc.New(rpcURL),
		chainID: chainID,
		logger:  logger.With(zap.Uint64("chain_id", chainID)),
	}
}

// ChainID returns the chain this adapter submits to
func (a *SolanaAdapter) ChainID() uint64 {
	return a.chainID
}

// DeploySrcEscrow relays the leg's deploy transaction
func (a *SolanaAdapter) DeploySrcEscrow(ctx context.Context, action *OrderAction) error {
	return a.relay(ctx, action, func(leg *solanaLeg) string { return leg.DeployTx })
}

// DeployDstEscrow relays the leg's deploy transaction
func (a *SolanaAdapter) DeployDstEscrow(ctx context.Context, action *OrderAction) error {
	return a.relay(ctx, action, func(leg *solanaLeg) string { return leg.DeployTx })
}

// WithdrawSrc relays the leg's withdraw transaction
func (a *SolanaAdapter) WithdrawSrc(ctx context.Context, action *OrderAction) error {
	return a.relay(ctx, action, func(leg *solanaLeg) string { return leg.WithdrawTx })
}

// WithdrawDst relays the leg's withdraw transaction
func (a *SolanaAdapter) WithdrawDst(ctx context.Context, action *OrderAction) error {
	return a.relay(ctx, action, func(leg *solanaLeg) string { return leg.WithdrawTx })
}

// ArbitraryCall relays the leg's cancel transaction
func (a *SolanaAdapter) ArbitraryCall(ctx context.Context, action *OrderAction) error {
	return a.relay(ctx, action, func(leg *solanaLeg) string { return leg.CancelTx })
}

func (a *SolanaAdapter) relay(ctx context.Context, action *OrderAction, pick func(*solanaLeg) string) error {
	leg, err := decodeSolanaLeg(action.Order)
	if err != nil {
		return err
	}

	encodedTx := pick(leg)
	if encodedTx == "" {
		return fmt.Errorf("order %s: no transaction payload for %s", action.OrderID, action.ActionType)
	}

	sig, err := a.client.SendEncodedTransaction(ctx, encodedTx)
	if err != nil {
		return fmt.Errorf("order %s: failed to send transaction: %w", action.OrderID, err)
	}

	a.logger.Info("submitted solana transaction",
		zap.String("order_hash", action.OrderID),
		zap.String("action", string(action.ActionType)),
		zap.String("signature", sig.String()))
	return nil
}

func decodeSolanaLeg(order *types.Order) (*solanaLeg, error) {
	var leg solanaLeg
	if len(order.Args) == 0 {
		return nil, fmt.Errorf("order %s: no solana leg args", order.OrderHash)
	}
	if err := json.Unmarshal(order.Args, &leg); err != nil {
		return nil, fmt.Errorf("order %s: failed to decode solana leg args: %w", order.OrderHash, err)
	}
	return &leg, nil
}
