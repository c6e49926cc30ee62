package watcher

import (
	"context"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	coretypes "github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"
)

// Monitor cadence and look-back. The monitor re-scans a trailing window
// every tick, so a withdrawal is never more than lookBackBlocks behind.
const (
	monitorInterval = 5 * time.Second
	lookBackBlocks  = 100
	maxSeenOrders   = 4096
)

// MonitorStore extends the watcher's store view with the escrow index
type MonitorStore interface {
	Orderbook
	EscrowAddressesByChain() (map[uint64][]string, error)
}

// EscrowMonitor watches the escrow addresses known to the order store for
// Withdrawal events. Escrows deployed after a watcher started are not in
// any watcher's contract filter; this loop catches them. A bounded set of
// already-seen logs, keyed by transaction hash and emitting address (not by
// order hash), suppresses duplicate work within one process lifetime;
// correctness does not depend on it.
type EscrowMonitor struct {
	clients map[uint64]EthClient
	store   MonitorStore
	logger  *zap.Logger

	mu   sync.Mutex
	seen map[string]bool

	watchers map[uint64]*Watcher
}

// NewEscrowMonitor creates a monitor over one RPC client per chain
func NewEscrowMonitor(clients map[uint64]EthClient, store MonitorStore, logger *zap.Logger) (*EscrowMonitor, error) {
	watchers := make(map[uint64]*Watcher, len(clients))
	for chainID, client := range clients {
		w, err := New(client, "", "escrow-monitor", 0, store, logger)
		if err != nil {
			return nil, err
		}
		watchers[chainID] = w
	}

	return &EscrowMonitor{
		clients:  clients,
		store:    store,
		logger:   logger,
		seen:     make(map[string]bool),
		watchers: watchers,
	}, nil
}

// Run monitors until the context is cancelled
func (m *EscrowMonitor) Run(ctx context.Context) {
	m.logger.Info("starting escrow monitor")

	ticker := time.NewTicker(monitorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.logger.Info("escrow monitor stopped")
			return
		case <-ticker.C:
			if err := m.scan(ctx); err != nil {
				m.logger.Error("error monitoring escrows", zap.Error(err))
			}
		}
	}
}

func (m *EscrowMonitor) scan(ctx context.Context) error {
	byChain, err := m.store.EscrowAddressesByChain()
	if err != nil {
		return err
	}
	if len(byChain) == 0 {
		return nil
	}

	for chainID, addresses := range byChain {
		client, ok := m.clients[chainID]
		if !ok {
			m.logger.Warn("no client configured for chain", zap.Uint64("chain_id", chainID))
			continue
		}
		if err := m.scanChain(ctx, chainID, client, addresses); err != nil {
			m.logger.Error("error monitoring chain escrows",
				zap.Uint64("chain_id", chainID), zap.Error(err))
		}
	}
	return nil
}

// scanChain filters one bounded trailing range over every known escrow
// address of the chain in a single query
func (m *EscrowMonitor) scanChain(ctx context.Context, chainID uint64, client EthClient, addresses []string) error {
	latest, err := client.BlockNumber(ctx)
	if err != nil {
		return err
	}

	from := uint64(0)
	if latest > lookBackBlocks {
		from = latest - lookBackBlocks
	}

	filterAddrs := make([]common.Address, 0, len(addresses))
	for _, addr := range addresses {
		filterAddrs = append(filterAddrs, common.HexToAddress(addr))
	}

	logs, err := client.FilterLogs(ctx, ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(from),
		ToBlock:   new(big.Int).SetUint64(latest),
		Addresses: filterAddrs,
	})
	if err != nil {
		return err
	}

	w := m.watchers[chainID]
	for i := range logs {
		if m.alreadySeen(&logs[i]) {
			continue
		}
		w.ProcessLog(&logs[i])
	}
	return nil
}

// alreadySeen suppresses reprocessing of a withdrawal already handled in
// this process. The set is bounded; overflow clears it, which only costs
// redundant idempotent writes.
func (m *EscrowMonitor) alreadySeen(lg *coretypes.Log) bool {
	key := lg.TxHash.Hex() + ":" + lg.Address.Hex()

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.seen[key] {
		return true
	}
	if len(m.seen) >= maxSeenOrders {
		m.seen = make(map[string]bool)
	}
	m.seen[key] = true
	return false
}
