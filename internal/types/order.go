package types

import (
	"encoding/json"
	"math/big"
	"time"
)

// OrderStatus represents the lifecycle status of a cross-chain order
type OrderStatus string

const (
	StatusUnmatched                  OrderStatus = "unmatched"
	StatusSourceFilled               OrderStatus = "source_filled"
	StatusDestinationFilled          OrderStatus = "destination_filled"
	StatusFinalityConfirmed          OrderStatus = "finality_confirmed"
	StatusSourceWithdrawPending      OrderStatus = "source_withdraw_pending"
	StatusDestinationWithdrawPending OrderStatus = "destination_withdraw_pending"
	StatusSourceSettled              OrderStatus = "source_settled"
	StatusDestinationSettled         OrderStatus = "destination_settled"
	StatusSourceRefunded             OrderStatus = "source_refunded"
	StatusDestinationRefunded        OrderStatus = "destination_refunded"
	StatusSourceCanceled             OrderStatus = "source_canceled"
	StatusDestinationCanceled        OrderStatus = "destination_canceled"
	StatusExpired                    OrderStatus = "expired"
	StatusFulfilled                  OrderStatus = "fulfilled"
)

// OrderType distinguishes orders that settle in one fill from orders that
// may be filled in parts, each part with its own secret
type OrderType string

const (
	SingleFill    OrderType = "single_fill"
	MultipleFills OrderType = "multiple_fills"
)

// SecretEntry holds one hashlock of an order. The hash is always present;
// the secret appears only after the holder reveals it.
type SecretEntry struct {
	Index      uint32  `json:"index"`
	Secret     *string `json:"secret"`
	SecretHash string  `json:"secretHash"`
}

// Revealed reports whether the secret for this entry is known
func (s *SecretEntry) Revealed() bool {
	return s.Secret != nil && *s.Secret != ""
}

// OrderInput is the order data as signed by the maker
type OrderInput struct {
	Salt         string   `json:"salt"`
	MakerAsset   string   `json:"makerAsset"`
	TakerAsset   string   `json:"takerAsset"`
	Maker        string   `json:"maker"`
	Receiver     string   `json:"receiver"`
	MakingAmount *big.Int `json:"makingAmount"`
	TakingAmount *big.Int `json:"takingAmount"`
	MakerTraits  string   `json:"makerTraits"`
}

// SignedOrderInput is a cross-chain order submission. The signature,
// extension and args payloads are opaque to the coordinator; they pass
// through unchanged until a chain adapter needs them.
type SignedOrderInput struct {
	OrderHash             string          `json:"orderHash"`
	Order                 OrderInput      `json:"order"`
	SrcChainID            uint64          `json:"srcChainId"`
	DstChainID            uint64          `json:"dstChainId"`
	Signature             json.RawMessage `json:"signature"`
	Extension             json.RawMessage `json:"extension"`
	OrderType             OrderType       `json:"orderType"`
	Secrets               []SecretEntry   `json:"secrets"`
	Deadline              uint64          `json:"deadline"`
	Taker                 string          `json:"taker"`
	Timelock              string          `json:"timelock"`
	TakerTraits           string          `json:"takerTraits"`
	Args                  json.RawMessage `json:"args"`
	SrcDeployImmutables   json.RawMessage `json:"srcDeployImmutables,omitempty"`
	DstDeployImmutables   json.RawMessage `json:"dstDeployImmutables,omitempty"`
	SrcWithdrawImmutables json.RawMessage `json:"srcWithdrawImmutables,omitempty"`
	DstWithdrawImmutables json.RawMessage `json:"dstWithdrawImmutables,omitempty"`
}

// Order is the persisted form of a cross-chain order, keyed by OrderHash
type Order struct {
	OrderHash             string          `json:"orderHash"`
	SrcChainID            uint64          `json:"srcChainId"`
	DstChainID            uint64          `json:"dstChainId"`
	Maker                 string          `json:"maker"`
	Receiver              string          `json:"receiver"`
	Taker                 string          `json:"taker"`
	Timelock              string          `json:"timelock"`
	MakerAsset            string          `json:"makerAsset"`
	TakerAsset            string          `json:"takerAsset"`
	MakingAmount          *big.Int        `json:"makingAmount"`
	TakingAmount          *big.Int        `json:"takingAmount"`
	Salt                  string          `json:"salt"`
	MakerTraits           string          `json:"makerTraits"`
	TakerTraits           string          `json:"takerTraits"`
	Args                  json.RawMessage `json:"args"`
	Signature             json.RawMessage `json:"signature"`
	Extension             json.RawMessage `json:"extension"`
	OrderType             OrderType       `json:"orderType"`
	Secrets               []SecretEntry   `json:"secrets"`
	Status                OrderStatus     `json:"status"`
	Deadline              int64           `json:"deadline"`
	SrcEscrowAddress      string          `json:"srcEscrowAddress,omitempty"`
	DstEscrowAddress      string          `json:"dstEscrowAddress,omitempty"`
	SrcTxHash             string          `json:"srcTxHash,omitempty"`
	DstTxHash             string          `json:"dstTxHash,omitempty"`
	FilledMakerAmount     *big.Int        `json:"filledMakerAmount"`
	FilledTakerAmount     *big.Int        `json:"filledTakerAmount"`
	SrcEvent              json.RawMessage `json:"srcEvent,omitempty"`
	DstEvent              json.RawMessage `json:"dstEvent,omitempty"`
	SrcDeployImmutables   json.RawMessage `json:"srcDeployImmutables,omitempty"`
	DstDeployImmutables   json.RawMessage `json:"dstDeployImmutables,omitempty"`
	SrcWithdrawImmutables json.RawMessage `json:"srcWithdrawImmutables,omitempty"`
	DstWithdrawImmutables json.RawMessage `json:"dstWithdrawImmutables,omitempty"`
	CreatedAt             time.Time       `json:"createdAt"`
	UpdatedAt             time.Time       `json:"updatedAt"`
}

// FirstSecret returns the first revealed secret of the order, if any
func (o *Order) FirstSecret() *string {
	for i := range o.Secrets {
		if o.Secrets[i].Revealed() {
			return o.Secrets[i].Secret
		}
	}
	return nil
}

// RemainingMakerAmount is the maker amount still open for filling
func (o *Order) RemainingMakerAmount() *big.Int {
	remaining := new(big.Int).Set(o.MakingAmount)
	if o.FilledMakerAmount != nil {
		remaining.Sub(remaining, o.FilledMakerAmount)
	}
	return remaining
}

// SecretInput is a secret submission for an order's hashlock
type SecretInput struct {
	Secret    string `json:"secret"`
	OrderHash string `json:"orderHash"`
}

// SecretResponse carries a revealed secret, or null before revelation
type SecretResponse struct {
	Secret    *string `json:"secret"`
	OrderHash string  `json:"orderHash"`
}

// UpdateOrderFieldRequest updates one of the whitelisted mutable JSON
// fields on an order
type UpdateOrderFieldRequest struct {
	OrderHash string          `json:"orderHash"`
	FieldName string          `json:"fieldName"`
	Value     json.RawMessage `json:"value"`
}

// ActiveOrderOutput is the shape of an order on the active-orders page
type ActiveOrderOutput struct {
	OrderHash            string          `json:"orderHash"`
	Signature            json.RawMessage `json:"signature"`
	Deadline             uint64          `json:"deadline"`
	RemainingMakerAmount string          `json:"remainingMakerAmount"`
	Extension            json.RawMessage `json:"extension"`
	SrcChainID           uint64          `json:"srcChainId"`
	DstChainID           uint64          `json:"dstChainId"`
	Order                OrderInput      `json:"order"`
	Taker                string          `json:"taker"`
	Timelock             string          `json:"timelock"`
	TakerTraits          string          `json:"takerTraits"`
	Args                 json.RawMessage `json:"args"`
	OrderType            OrderType       `json:"orderType"`
	Secrets              []SecretEntry   `json:"secrets"`
	Status               OrderStatus     `json:"status"`
}

// Meta carries pagination bookkeeping for list responses
type Meta struct {
	TotalItems   uint64 `json:"total_items"`
	ItemsPerPage uint64 `json:"items_per_page"`
	TotalPages   uint64 `json:"total_pages"`
	CurrentPage  uint64 `json:"current_page"`
}

// GetActiveOrdersOutput is one page of unmatched orders
type GetActiveOrdersOutput struct {
	Meta  Meta                `json:"meta"`
	Items []ActiveOrderOutput `json:"items"`
}

// ParseBigInt parses a base-10 string into a big.Int. Empty input parses
// to zero.
func ParseBigInt(s string) (*big.Int, error) {
	if s == "" {
		return big.NewInt(0), nil
	}

	result := new(big.Int)
	if _, ok := result.SetString(s, 10); !ok {
		return nil, &ParseError{Value: s}
	}

	return result, nil
}

// ParseError reports a malformed numeric string
type ParseError struct {
	Value string
}

func (e *ParseError) Error() string {
	return "invalid numeric value: " + e.Value
}
