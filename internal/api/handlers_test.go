package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/gardenfi/swapd/internal/database"
	"github.com/gardenfi/swapd/internal/service"
	"github.com/gardenfi/swapd/internal/types"
)

type fakeOrderbook struct {
	orders      map[string]*types.Order
	secrets     map[string]*types.SecretResponse
	submitErr   error
	lastUpdated *types.UpdateOrderFieldRequest
}

func newFakeOrderbook() *fakeOrderbook {
	return &fakeOrderbook{
		orders:  make(map[string]*types.Order),
		secrets: make(map[string]*types.SecretResponse),
	}
}

func (f *fakeOrderbook) SubmitOrder(signed *types.SignedOrderInput) error {
	if f.submitErr != nil {
		return f.submitErr
	}
	if signed.Order.Salt == "" {
		return &service.ValidationError{Msg: "Salt cannot be empty"}
	}
	if _, ok := f.orders[signed.OrderHash]; ok {
		return database.ErrDuplicateOrder
	}
	f.orders[signed.OrderHash] = &types.Order{OrderHash: signed.OrderHash}
	return nil
}

func (f *fakeOrderbook) GetOrder(orderHash string) (*types.Order, error) {
	order, ok := f.orders[orderHash]
	if !ok {
		return nil, database.ErrNotFound
	}
	return order, nil
}

func (f *fakeOrderbook) GetOrdersByChain(chainID uint64) ([]*types.Order, error) {
	return nil, nil
}

func (f *fakeOrderbook) GetActiveOrders(page, limit uint64) (*types.GetActiveOrdersOutput, error) {
	return &types.GetActiveOrdersOutput{
		Meta: types.Meta{CurrentPage: page, ItemsPerPage: limit},
	}, nil
}

func (f *fakeOrderbook) SubmitSecret(input *types.SecretInput) error {
	if input.Secret == "" {
		return &service.ValidationError{Msg: "Secret cannot be empty"}
	}
	if _, ok := f.orders[input.OrderHash]; !ok {
		return database.ErrNotFound
	}
	return nil
}

func (f *fakeOrderbook) GetSecret(orderHash string) (*types.SecretResponse, error) {
	secret, ok := f.secrets[orderHash]
	if !ok {
		return &types.SecretResponse{OrderHash: orderHash}, nil
	}
	return secret, nil
}

func (f *fakeOrderbook) UpdateOrderField(req *types.UpdateOrderFieldRequest) error {
	if _, ok := f.orders[req.OrderHash]; !ok {
		return database.ErrNotFound
	}
	f.lastUpdated = req
	return nil
}

func newTestServer(orderbook Orderbook) *Server {
	return NewServer(0, orderbook, zap.NewNop())
}

func doRequest(t *testing.T, s *Server, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	recorder := httptest.NewRecorder()
	s.Handler().ServeHTTP(recorder, req)
	return recorder
}

func decodeEnvelope(t *testing.T, recorder *httptest.ResponseRecorder) *Response {
	t.Helper()
	var envelope Response
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &envelope))
	return &envelope
}

func submission(hash string) map[string]interface{} {
	return map[string]interface{}{
		"orderHash": hash,
		"order": map[string]interface{}{
			"salt":         "1",
			"makerAsset":   "0x1111111111111111111111111111111111111111",
			"takerAsset":   "0x2222222222222222222222222222222222222222",
			"maker":        "0x3333333333333333333333333333333333333333",
			"receiver":     "0x4444444444444444444444444444444444444444",
			"makingAmount": 100,
			"takingAmount": 99,
			"makerTraits":  "0",
		},
		"signature": map[string]string{"r": "0x01", "vs": "0x02"},
		"orderType": "single_fill",
		"deadline":  1700000000000,
	}
}

func TestHealthEndpoint(t *testing.T) {
	recorder := doRequest(t, newTestServer(newFakeOrderbook()), http.MethodGet, "/health", nil)

	assert.Equal(t, http.StatusOK, recorder.Code)
	envelope := decodeEnvelope(t, recorder)
	assert.Equal(t, StatusOk, envelope.Status)
	assert.Equal(t, "Online", envelope.Result)
}

func TestSubmitOrderAccepted(t *testing.T) {
	s := newTestServer(newFakeOrderbook())

	recorder := doRequest(t, s, http.MethodPost, "/relayer/submit", submission("0xaaa"))
	assert.Equal(t, http.StatusAccepted, recorder.Code)
}

func TestSubmitOrderDuplicateIs400(t *testing.T) {
	s := newTestServer(newFakeOrderbook())

	first := doRequest(t, s, http.MethodPost, "/relayer/submit", submission("0xaaa"))
	require.Equal(t, http.StatusAccepted, first.Code)

	second := doRequest(t, s, http.MethodPost, "/relayer/submit", submission("0xaaa"))
	assert.Equal(t, http.StatusBadRequest, second.Code)
	envelope := decodeEnvelope(t, second)
	assert.Equal(t, StatusError, envelope.Status)
	assert.Equal(t, "Order already exists", envelope.Error)
}

func TestSubmitOrderValidationIs400(t *testing.T) {
	s := newTestServer(newFakeOrderbook())

	body := submission("0xbbb")
	body["order"].(map[string]interface{})["salt"] = ""
	recorder := doRequest(t, s, http.MethodPost, "/relayer/submit", body)
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestSubmitSecretForMissingOrderIs404(t *testing.T) {
	s := newTestServer(newFakeOrderbook())

	recorder := doRequest(t, s, http.MethodPost, "/relayer/secret", map[string]string{
		"secret":    "deadbeef",
		"orderHash": "0x404",
	})
	assert.Equal(t, http.StatusNotFound, recorder.Code)
}

func TestGetOrderNotFound(t *testing.T) {
	recorder := doRequest(t, newTestServer(newFakeOrderbook()), http.MethodGet, "/orders/0x404", nil)
	assert.Equal(t, http.StatusNotFound, recorder.Code)
}

func TestGetSecretBeforeRevealIsNull(t *testing.T) {
	recorder := doRequest(t, newTestServer(newFakeOrderbook()), http.MethodGet, "/orders/secret/0xaaa", nil)

	require.Equal(t, http.StatusOK, recorder.Code)
	envelope := decodeEnvelope(t, recorder)

	result, err := json.Marshal(envelope.Result)
	require.NoError(t, err)

	var secret types.SecretResponse
	require.NoError(t, json.Unmarshal(result, &secret))
	assert.Nil(t, secret.Secret)
	assert.Equal(t, "0xaaa", secret.OrderHash)
}

func TestActiveOrdersQueryParams(t *testing.T) {
	recorder := doRequest(t, newTestServer(newFakeOrderbook()), http.MethodGet, "/orders/active?page=2&limit=50", nil)

	require.Equal(t, http.StatusOK, recorder.Code)
	envelope := decodeEnvelope(t, recorder)

	result, err := json.Marshal(envelope.Result)
	require.NoError(t, err)

	var page types.GetActiveOrdersOutput
	require.NoError(t, json.Unmarshal(result, &page))
	assert.Equal(t, uint64(2), page.Meta.CurrentPage)
	assert.Equal(t, uint64(50), page.Meta.ItemsPerPage)
}

func TestUpdateOrderFieldHashMismatch(t *testing.T) {
	orderbook := newFakeOrderbook()
	orderbook.orders["0xaaa"] = &types.Order{OrderHash: "0xaaa"}
	s := newTestServer(orderbook)

	recorder := doRequest(t, s, http.MethodPost, "/orders/update/0xaaa", map[string]interface{}{
		"orderHash": "0xbbb",
		"fieldName": "args",
		"value":     map[string]string{},
	})
	assert.Equal(t, http.StatusBadRequest, recorder.Code)

	recorder = doRequest(t, s, http.MethodPost, "/orders/update/0xaaa", map[string]interface{}{
		"orderHash": "0xaaa",
		"fieldName": "args",
		"value":     map[string]string{},
	})
	assert.Equal(t, http.StatusOK, recorder.Code)
	require.NotNil(t, orderbook.lastUpdated)
	assert.Equal(t, "args", orderbook.lastUpdated.FieldName)
}
