package adapters

import (
	"context"

	"github.com/gardenfi/swapd/internal/types"
)

// ActionType names one of the capabilities a chain adapter exposes
type ActionType string

const (
	DeploySrcEscrow ActionType = "deploy_src_escrow"
	DeployDstEscrow ActionType = "deploy_dst_escrow"
	WithdrawSrc     ActionType = "withdraw_src"
	WithdrawDst     ActionType = "withdraw_dst"
	ArbitraryCall   ActionType = "arbitrary_call"
	NoOp            ActionType = "noop"
)

// Side names which leg of the order an action targets
type Side string

const (
	SourceSide      Side = "source"
	DestinationSide Side = "destination"
)

// OrderAction carries everything an adapter needs to act on an order. The
// adapter assembles immutables, encodes the call and submits the
// transaction; callers never retry at this layer.
type OrderAction struct {
	OrderID    string
	ActionType ActionType
	Side       Side
	Order      *types.Order
}

// ChainAdapter is the minimal capability set the resolver depends on.
// One implementation exists per chain family; adding a chain means adding
// an adapter, not touching the coordination loop.
type ChainAdapter interface {
	ChainID() uint64
	DeploySrcEscrow(ctx context.Context, action *OrderAction) error
	DeployDstEscrow(ctx context.Context, action *OrderAction) error
	WithdrawSrc(ctx context.Context, action *OrderAction) error
	WithdrawDst(ctx context.Context, action *OrderAction) error
	ArbitraryCall(ctx context.Context, action *OrderAction) error
}

// Execute dispatches an action to the matching adapter capability
func Execute(ctx context.Context, adapter ChainAdapter, action *OrderAction) error {
	switch action.ActionType {
	case DeploySrcEscrow:
		return adapter.DeploySrcEscrow(ctx, action)
	case DeployDstEscrow:
		return adapter.DeployDstEscrow(ctx, action)
	case WithdrawSrc:
		return adapter.WithdrawSrc(ctx, action)
	case WithdrawDst:
		return adapter.WithdrawDst(ctx, action)
	case ArbitraryCall:
		return adapter.ArbitraryCall(ctx, action)
	case NoOp:
		return nil
	}
	return nil
}
