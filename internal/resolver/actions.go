package resolver

import (
	"github.com/gardenfi/swapd/internal/adapters"
	"github.com/gardenfi/swapd/internal/types"
)

// actionTable maps an order's persisted status to the action each side
// must take next. The table is a function of current status only: events
// from different chains arrive in any order, so decisions must never
// depend on which event was seen last.
var actionTable = map[types.OrderStatus][2]adapters.ActionType{
	types.StatusUnmatched:                  {adapters.DeploySrcEscrow, adapters.NoOp},
	types.StatusSourceFilled:               {adapters.NoOp, adapters.DeployDstEscrow},
	types.StatusDestinationFilled:          {adapters.WithdrawSrc, adapters.WithdrawDst},
	types.StatusSourceWithdrawPending:      {adapters.WithdrawSrc, adapters.NoOp},
	types.StatusDestinationWithdrawPending: {adapters.NoOp, adapters.WithdrawDst},
	types.StatusSourceSettled:              {adapters.NoOp, adapters.WithdrawDst},
	types.StatusDestinationSettled:         {adapters.NoOp, adapters.NoOp},
	types.StatusExpired:                    {adapters.ArbitraryCall, adapters.ArbitraryCall},
	types.StatusSourceCanceled:             {adapters.NoOp, adapters.NoOp},
	types.StatusDestinationCanceled:        {adapters.NoOp, adapters.ArbitraryCall},
	types.StatusDestinationRefunded:        {adapters.NoOp, adapters.ArbitraryCall},
	types.StatusSourceRefunded:             {adapters.NoOp, adapters.NoOp},
	types.StatusFinalityConfirmed:          {adapters.NoOp, adapters.NoOp},
	types.StatusFulfilled:                  {adapters.NoOp, adapters.NoOp},
}

// DetermineActions returns the (source, destination) actions for an
// order's current status. Unknown statuses act on neither side.
func DetermineActions(status types.OrderStatus) (adapters.ActionType, adapters.ActionType) {
	pair, ok := actionTable[status]
	if !ok {
		return adapters.NoOp, adapters.NoOp
	}
	return pair[0], pair[1]
}
