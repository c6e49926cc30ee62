package resolver

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/gardenfi/swapd/internal/adapters"
	"github.com/gardenfi/swapd/internal/types"
)

func TestDetermineActions(t *testing.T) {
	cases := []struct {
		status      types.OrderStatus
		source      adapters.ActionType
		destination adapters.ActionType
	}{
		{types.StatusUnmatched, adapters.DeploySrcEscrow, adapters.NoOp},
		{types.StatusSourceFilled, adapters.NoOp, adapters.DeployDstEscrow},
		{types.StatusDestinationFilled, adapters.WithdrawSrc, adapters.WithdrawDst},
		{types.StatusSourceWithdrawPending, adapters.WithdrawSrc, adapters.NoOp},
		{types.StatusDestinationWithdrawPending, adapters.NoOp, adapters.WithdrawDst},
		{types.StatusSourceSettled, adapters.NoOp, adapters.WithdrawDst},
		{types.StatusDestinationSettled, adapters.NoOp, adapters.NoOp},
		{types.StatusExpired, adapters.ArbitraryCall, adapters.ArbitraryCall},
		{types.StatusSourceCanceled, adapters.NoOp, adapters.NoOp},
		{types.StatusDestinationCanceled, adapters.NoOp, adapters.ArbitraryCall},
		{types.StatusDestinationRefunded, adapters.NoOp, adapters.ArbitraryCall},
		{types.StatusSourceRefunded, adapters.NoOp, adapters.NoOp},
		{types.StatusFinalityConfirmed, adapters.NoOp, adapters.NoOp},
		{types.StatusFulfilled, adapters.NoOp, adapters.NoOp},
	}

	for _, tc := range cases {
		source, destination := DetermineActions(tc.status)
		assert.Equal(t, tc.source, source, "source action for %s", tc.status)
		assert.Equal(t, tc.destination, destination, "destination action for %s", tc.status)
	}
}

func TestDetermineActionsUnknownStatus(t *testing.T) {
	source, destination := DetermineActions(types.OrderStatus("mystery"))
	assert.Equal(t, adapters.NoOp, source)
	assert.Equal(t, adapters.NoOp, destination)
}
