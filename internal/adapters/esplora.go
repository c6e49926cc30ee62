package adapters

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/btcsuite/btcd/wire"

	"github.com/gardenfi/swapd/internal/htlc"
)

// EsploraClient implements BitcoinRPC over an Esplora-style HTTP API
// (mempool.space, blockstream.info)
type EsploraClient struct {
	client  *http.Client
	baseURL string
}

// NewEsploraClient creates a client for the given Esplora endpoint
func NewEsploraClient(baseURL string) *EsploraClient {
	return &EsploraClient{
		client:  &http.Client{Timeout: 10 * time.Second},
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// esploraUTXO is the /address/{addr}/utxo response shape
type esploraUTXO struct {
	Txid   string `json:"txid"`
	Vout   uint32 `json:"vout"`
	Value  int64  `json:"value"`
	Status struct {
		Confirmed bool `json:"confirmed"`
	} `json:"status"`
}

// ListUTXOs returns the confirmed UTXOs at an address
func (c *EsploraClient) ListUTXOs(ctx context.Context, address string) ([]htlc.UTXO, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/address/"+address+"/utxo", nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch utxos: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("utxo request failed with status %d", resp.StatusCode)
	}

	var raw []esploraUTXO
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to decode utxos: %w", err)
	}

	utxos := make([]htlc.UTXO, 0, len(raw))
	for _, u := range raw {
		if !u.Status.Confirmed {
			continue
		}
		utxos = append(utxos, htlc.UTXO{TxID: u.Txid, Vout: u.Vout, Value: u.Value})
	}
	return utxos, nil
}

// Broadcast serializes and submits a transaction, returning its txid
func (c *EsploraClient) Broadcast(ctx context.Context, tx *wire.MsgTx) (string, error) {
	var buf bytes.Buffer
	if err := tx.Serialize(&buf); err != nil {
		return "", fmt.Errorf("failed to serialize transaction: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/tx", strings.NewReader(hex.EncodeToString(buf.Bytes())))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "text/plain")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to broadcast transaction: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read broadcast response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("broadcast rejected: %s", strings.TrimSpace(string(body)))
	}

	return strings.TrimSpace(string(body)), nil
}

// FeeRate returns the next-block fee rate in sat/vB, floored at 1
func (c *EsploraClient) FeeRate(ctx context.Context) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/fee-estimates", nil)
	if err != nil {
		return 0, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch fee estimates: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("fee estimate request failed with status %d", resp.StatusCode)
	}

	var estimates map[string]float64
	if err := json.NewDecoder(resp.Body).Decode(&estimates); err != nil {
		return 0, fmt.Errorf("failed to decode fee estimates: %w", err)
	}

	rate := int64(estimates["1"])
	if rate < 1 {
		rate = 1
	}
	return rate, nil
}
