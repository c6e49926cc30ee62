package types

import (
	"fmt"
	"math/big"
	"strings"
)

// EscrowEventKind identifies an on-chain escrow event after decoding
type EscrowEventKind string

const (
	EventSrcEscrowCreated      EscrowEventKind = "src_escrow_created"
	EventDstEscrowCreated      EscrowEventKind = "dst_escrow_created"
	EventSourceWithdrawal      EscrowEventKind = "source_withdrawal"
	EventDestinationWithdrawal EscrowEventKind = "destination_withdrawal"
	EventSourceRescue          EscrowEventKind = "source_rescue"
	EventDestinationRescue     EscrowEventKind = "destination_rescue"
)

// SourceSide reports whether the event concerns the source-chain escrow
func (k EscrowEventKind) SourceSide() bool {
	switch k {
	case EventSrcEscrowCreated, EventSourceWithdrawal, EventSourceRescue:
		return true
	}
	return false
}

// statusRank orders statuses along the lifecycle so that an event replayed
// out of order never moves an order backwards. Events from different
// chains carry no total order, so the persisted status must only ever
// advance.
var statusRank = map[OrderStatus]int{
	StatusUnmatched:                  0,
	StatusSourceFilled:               1,
	StatusDestinationFilled:          2,
	StatusFinalityConfirmed:          3,
	StatusSourceWithdrawPending:      4,
	StatusDestinationWithdrawPending: 4,
	StatusSourceSettled:              5,
	StatusDestinationSettled:         5,
	StatusExpired:                    6,
	StatusSourceRefunded:             6,
	StatusDestinationRefunded:        6,
	StatusSourceCanceled:             6,
	StatusDestinationCanceled:        6,
	StatusFulfilled:                  7,
}

// Rank returns the lifecycle rank of a status; unknown statuses rank lowest
func (s OrderStatus) Rank() int {
	return statusRank[s]
}

// Terminal reports whether the status admits no further transitions.
// Expired is not terminal: cancel actions still follow it.
func (s OrderStatus) Terminal() bool {
	switch s {
	case StatusSourceRefunded, StatusDestinationRefunded,
		StatusSourceCanceled, StatusDestinationCanceled,
		StatusFulfilled:
		return true
	}
	return false
}

// Valid reports whether s is a known order status
func (s OrderStatus) Valid() bool {
	_, ok := statusRank[s]
	return ok
}

// eventTargets maps each escrow event kind to the status it drives the
// order toward
var eventTargets = map[EscrowEventKind]OrderStatus{
	EventSrcEscrowCreated:      StatusSourceFilled,
	EventDstEscrowCreated:      StatusDestinationFilled,
	EventSourceWithdrawal:      StatusSourceSettled,
	EventDestinationWithdrawal: StatusDestinationSettled,
	EventSourceRescue:          StatusSourceRefunded,
	EventDestinationRescue:     StatusDestinationRefunded,
}

// NextStatus resolves the status an order moves to when the given event
// arrives while the order is in current. A withdrawal on one side promotes
// the order straight to fulfilled when the complementary side has already
// settled. An event that would move the order backwards, or out of a
// terminal status, leaves the status unchanged.
func NextStatus(current OrderStatus, event EscrowEventKind) (OrderStatus, error) {
	target, ok := eventTargets[event]
	if !ok {
		return current, fmt.Errorf("unknown escrow event kind: %s", event)
	}

	switch {
	case event == EventSourceWithdrawal && current == StatusDestinationSettled:
		return StatusFulfilled, nil
	case event == EventDestinationWithdrawal && current == StatusSourceSettled:
		return StatusFulfilled, nil
	}

	if current.Terminal() {
		return current, nil
	}
	if target.Rank() < current.Rank() {
		return current, nil
	}
	return target, nil
}

// NormalizeHex lower-cases a hex identifier and guarantees the 0x prefix.
// Addresses and order hashes are stored and compared in this form only.
func NormalizeHex(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return s
	}
	if !strings.HasPrefix(s, "0x") {
		s = "0x" + s
	}
	return s
}

// TakerTraits exposes the flag bits of the opaque taker_traits value
type TakerTraits struct {
	value *big.Int
}

// ParseTakerTraits parses a base-10 taker_traits string
func ParseTakerTraits(s string) (*TakerTraits, error) {
	v, err := ParseBigInt(s)
	if err != nil {
		return nil, err
	}
	return &TakerTraits{value: v}, nil
}

// HasTarget reports the "target" flag at bit 251
func (t *TakerTraits) HasTarget() bool {
	return t.value.Bit(251) == 1
}
