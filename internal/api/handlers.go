package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/gardenfi/swapd/internal/database"
	"github.com/gardenfi/swapd/internal/service"
	"github.com/gardenfi/swapd/internal/types"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeOk(w, http.StatusOK, "Online")
}

// POST /relayer/submit
func (s *Server) handleSubmitOrder(w http.ResponseWriter, r *http.Request) {
	var signed types.SignedOrderInput
	if err := json.NewDecoder(r.Body).Decode(&signed); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	if err := s.orderbook.SubmitOrder(&signed); err != nil {
		s.respondError(w, err, "Failed to create order")
		return
	}

	writeOk(w, http.StatusAccepted, nil)
}

// POST /relayer/secret
func (s *Server) handleSubmitSecret(w http.ResponseWriter, r *http.Request) {
	var input types.SecretInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	if err := s.orderbook.SubmitSecret(&input); err != nil {
		s.respondError(w, err, "Failed to submit secret")
		return
	}

	writeOk(w, http.StatusAccepted, nil)
}

// GET /orders/active?page=n&limit=m
func (s *Server) handleActiveOrders(w http.ResponseWriter, r *http.Request) {
	page := parseQueryUint(r, "page", 1)
	limit := parseQueryUint(r, "limit", 100)

	output, err := s.orderbook.GetActiveOrders(page, limit)
	if err != nil {
		s.respondError(w, err, "Failed to retrieve active orders")
		return
	}

	writeOk(w, http.StatusOK, output)
}

// GET /orders/{order_hash}
func (s *Server) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	orderHash := mux.Vars(r)["order_hash"]

	order, err := s.orderbook.GetOrder(orderHash)
	if err != nil {
		s.respondError(w, err, "Failed to retrieve order")
		return
	}

	writeOk(w, http.StatusOK, order)
}

// GET /orders/chain/{chain_id}
func (s *Server) handleOrdersByChain(w http.ResponseWriter, r *http.Request) {
	chainID, err := strconv.ParseUint(mux.Vars(r)["chain_id"], 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid chain id")
		return
	}

	orders, err := s.orderbook.GetOrdersByChain(chainID)
	if err != nil {
		s.respondError(w, err, "Failed to retrieve orders")
		return
	}

	writeOk(w, http.StatusOK, orders)
}

// GET /orders/secret/{order_hash}
func (s *Server) handleGetSecret(w http.ResponseWriter, r *http.Request) {
	orderHash := mux.Vars(r)["order_hash"]

	secret, err := s.orderbook.GetSecret(orderHash)
	if err != nil {
		s.respondError(w, err, "Failed to retrieve secret")
		return
	}

	writeOk(w, http.StatusOK, secret)
}

// POST /orders/update/{order_hash}
func (s *Server) handleUpdateOrderField(w http.ResponseWriter, r *http.Request) {
	orderHash := mux.Vars(r)["order_hash"]

	var req types.UpdateOrderFieldRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	if req.OrderHash != orderHash {
		writeError(w, http.StatusBadRequest, "Order hash in path does not match order hash in request body")
		return
	}

	if err := s.orderbook.UpdateOrderField(&req); err != nil {
		s.respondError(w, err, "Failed to update order field")
		return
	}

	writeOk(w, http.StatusOK, nil)
}

// respondError maps error kinds onto HTTP status codes: validation and
// duplicates are 4xx, missing rows are 404, everything else is internal
func (s *Server) respondError(w http.ResponseWriter, err error, internalMsg string) {
	var validationErr *service.ValidationError
	var storeValidationErr *database.ValidationError

	switch {
	case errors.Is(err, database.ErrDuplicateOrder):
		writeError(w, http.StatusBadRequest, database.ErrDuplicateOrder.Error())
	case errors.Is(err, database.ErrNotFound):
		writeError(w, http.StatusNotFound, "Order not found")
	case errors.As(err, &validationErr):
		writeError(w, http.StatusBadRequest, validationErr.Msg)
	case errors.As(err, &storeValidationErr):
		writeError(w, http.StatusBadRequest, storeValidationErr.Msg)
	default:
		s.logger.Error(internalMsg, zap.Error(err))
		writeError(w, http.StatusInternalServerError, internalMsg)
	}
}

func parseQueryUint(r *http.Request, key string, def uint64) uint64 {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def
	}
	value, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return def
	}
	return value
}
