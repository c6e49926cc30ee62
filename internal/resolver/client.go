package resolver

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/gardenfi/swapd/internal/types"
)

// apiResponse is the relayer's response envelope
type apiResponse struct {
	Status string          `json:"status"`
	Result json.RawMessage `json:"result"`
	Error  string          `json:"error"`
}

// OrdersClient talks to the relayer orderbook API
type OrdersClient struct {
	client  *http.Client
	baseURL string
}

// NewOrdersClient creates an orders client with a 10-second timeout
func NewOrdersClient(baseURL string) *OrdersClient {
	return &OrdersClient{
		client:  &http.Client{Timeout: 10 * time.Second},
		baseURL: baseURL,
	}
}

// GetActiveOrders fetches one page of unmatched orders
func (c *OrdersClient) GetActiveOrders(page, limit uint64) (*types.GetActiveOrdersOutput, error) {
	endpoint := c.baseURL + "/orders/active"
	query := url.Values{}
	if page > 0 {
		query.Set("page", strconv.FormatUint(page, 10))
	}
	if limit > 0 {
		query.Set("limit", strconv.FormatUint(limit, 10))
	}
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var output types.GetActiveOrdersOutput
	if err := c.get(endpoint, &output); err != nil {
		return nil, err
	}
	return &output, nil
}

// GetOrder fetches the full detail of one order
func (c *OrdersClient) GetOrder(orderHash string) (*types.Order, error) {
	var order types.Order
	if err := c.get(c.baseURL+"/orders/"+orderHash, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// GetOrdersByChain fetches every order with the given source chain
func (c *OrdersClient) GetOrdersByChain(chainID uint64) ([]*types.Order, error) {
	var orders []*types.Order
	endpoint := fmt.Sprintf("%s/orders/chain/%d", c.baseURL, chainID)
	if err := c.get(endpoint, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// GetSecret fetches the revealed secret of an order, if any
func (c *OrdersClient) GetSecret(orderHash string) (*types.SecretResponse, error) {
	var secret types.SecretResponse
	if err := c.get(c.baseURL+"/orders/secret/"+orderHash, &secret); err != nil {
		return nil, err
	}
	return &secret, nil
}

func (c *OrdersClient) get(endpoint string, result interface{}) error {
	resp, err := c.client.Get(endpoint)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	var envelope apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	switch envelope.Status {
	case "Ok":
		if result != nil && len(envelope.Result) > 0 {
			if err := json.Unmarshal(envelope.Result, result); err != nil {
				return fmt.Errorf("failed to decode result: %w", err)
			}
		}
		return nil
	case "Error":
		return fmt.Errorf("API error: %s", envelope.Error)
	}
	return fmt.Errorf("unknown API status %q (http %d)", envelope.Status, resp.StatusCode)
}
