package service

import (
	"encoding/json"

	"go.uber.org/zap"

	"github.com/gardenfi/swapd/internal/types"
)

// Store is the slice of the order store the orderbook service depends on
type Store interface {
	CreateOrder(signed *types.SignedOrderInput) (string, error)
	GetOrder(orderHash string) (*types.Order, error)
	GetActiveOrders(limit, offset uint64) ([]*types.Order, uint64, error)
	GetOrdersByChain(srcChainID uint64) ([]*types.Order, error)
	SubmitSecret(orderHash, secret string) error
	GetSecrets(orderHash string) ([]types.SecretEntry, error)
	UpdateOrderField(orderHash, fieldName string, value json.RawMessage) error
}

// OrderbookService implements the relayer's business logic over the order
// store: input validation, pagination math and secret bookkeeping.
type OrderbookService struct {
	store  Store
	logger *zap.Logger
}

// NewOrderbookService creates a new orderbook service
func NewOrderbookService(store Store, logger *zap.Logger) *OrderbookService {
	return &OrderbookService{store: store, logger: logger}
}

// SubmitOrder validates and stores a signed cross-chain order
func (s *OrderbookService) SubmitOrder(signed *types.SignedOrderInput) error {
	if err := ValidateSignedOrder(signed); err != nil {
		return err
	}

	id, err := s.store.CreateOrder(signed)
	if err != nil {
		return err
	}

	s.logger.Info("order created",
		zap.String("order_id", id),
		zap.String("order_hash", signed.OrderHash),
		zap.Uint64("src_chain_id", signed.SrcChainID),
		zap.String("maker", signed.Order.Maker))
	return nil
}

// GetOrder returns the full order for a hash
func (s *OrderbookService) GetOrder(orderHash string) (*types.Order, error) {
	return s.store.GetOrder(orderHash)
}

// GetOrdersByChain returns every order whose source chain matches
func (s *OrderbookService) GetOrdersByChain(chainID uint64) ([]*types.Order, error) {
	return s.store.GetOrdersByChain(chainID)
}

// GetActiveOrders returns one page of unmatched orders with pagination
// meta. Pages are 1-based; limit defaults to 100 and is capped at 500.
func (s *OrderbookService) GetActiveOrders(page, limit uint64) (*types.GetActiveOrdersOutput, error) {
	if page == 0 {
		page = 1
	}
	if limit == 0 {
		limit = 100
	}
	if limit > 500 {
		limit = 500
	}
	offset := (page - 1) * limit

	orders, total, err := s.store.GetActiveOrders(limit, offset)
	if err != nil {
		return nil, err
	}

	items := make([]types.ActiveOrderOutput, 0, len(orders))
	for _, order := range orders {
		items = append(items, types.ActiveOrderOutput{
			OrderHash:            order.OrderHash,
			Signature:            order.Signature,
			Deadline:             uint64(order.Deadline),
			RemainingMakerAmount: order.RemainingMakerAmount().String(),
			Extension:            order.Extension,
			SrcChainID:           order.SrcChainID,
			DstChainID:           order.DstChainID,
			Order: types.OrderInput{
				Salt:         order.Salt,
				MakerAsset:   order.MakerAsset,
				TakerAsset:   order.TakerAsset,
				Maker:        order.Maker,
				Receiver:     order.Receiver,
				MakingAmount: order.MakingAmount,
				TakingAmount: order.TakingAmount,
				MakerTraits:  order.MakerTraits,
			},
			Taker:       order.Taker,
			Timelock:    order.Timelock,
			TakerTraits: order.TakerTraits,
			Args:        order.Args,
			OrderType:   order.OrderType,
			Secrets:     order.Secrets,
			Status:      order.Status,
		})
	}

	totalPages := (total + limit - 1) / limit
	return &types.GetActiveOrdersOutput{
		Meta: types.Meta{
			TotalItems:   total,
			ItemsPerPage: limit,
			TotalPages:   totalPages,
			CurrentPage:  page,
		},
		Items: items,
	}, nil
}

// SubmitSecret validates and records a revealed secret for an order
func (s *OrderbookService) SubmitSecret(input *types.SecretInput) error {
	if err := ValidateSecretInput(input); err != nil {
		return err
	}
	return s.store.SubmitSecret(input.OrderHash, input.Secret)
}

// GetSecret returns the first revealed secret of an order, or null if
// nothing has been revealed yet
func (s *OrderbookService) GetSecret(orderHash string) (*types.SecretResponse, error) {
	secrets, err := s.store.GetSecrets(orderHash)
	if err != nil {
		return nil, err
	}

	response := &types.SecretResponse{OrderHash: orderHash}
	for i := range secrets {
		if secrets[i].Revealed() {
			response.Secret = secrets[i].Secret
			break
		}
	}
	return response, nil
}

// UpdateOrderField updates one whitelisted mutable JSON field
func (s *OrderbookService) UpdateOrderField(req *types.UpdateOrderFieldRequest) error {
	if err := ValidateUpdateFieldRequest(req); err != nil {
		return err
	}
	return s.store.UpdateOrderField(req.OrderHash, req.FieldName, req.Value)
}
