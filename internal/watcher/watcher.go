package watcher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	coretypes "github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"github.com/gardenfi/swapd/internal/database"
	"github.com/gardenfi/swapd/internal/types"
)

// MaxBlockSpan bounds one getLogs window. Public RPC endpoints reject
// wider ranges.
const MaxBlockSpan = 200

// DefaultPollInterval is the watcher cadence between scans
const DefaultPollInterval = 5 * time.Second

// EthClient is the slice of the Ethereum RPC client the watcher uses
type EthClient interface {
	BlockNumber(ctx context.Context) (uint64, error)
	FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]coretypes.Log, error)
}

// Orderbook is the slice of the order store the watcher drives
type Orderbook interface {
	HandleEscrowEvent(orderHash string, kind types.EscrowEventKind, escrowAddress, txHash string, rawEvent json.RawMessage) error
	DetermineWithdrawalStatus(orderHash, escrowAddress string) (types.OrderStatus, error)
	SubmitSecret(orderHash, secret string) error
}

// Watcher polls one contract on one chain for escrow events and turns
// each into a state transition on the order store
type Watcher struct {
	client       EthClient
	contract     common.Address
	chainName    string
	startBlock   uint64
	lastBlock    uint64
	contractABI  abi.ABI
	store        Orderbook
	logger       *zap.Logger
	pollInterval time.Duration
}

// New creates a watcher over the given contract. The watcher resumes from
// startBlock; persisting progress across restarts is the operator's
// concern.
func New(client EthClient, contractAddress, chainName string, startBlock uint64, store Orderbook, logger *zap.Logger) (*Watcher, error) {
	contractABI, err := EscrowABI()
	if err != nil {
		return nil, fmt.Errorf("failed to parse escrow ABI: %w", err)
	}

	return &Watcher{
		client:       client,
		contract:     common.HexToAddress(contractAddress),
		chainName:    chainName,
		startBlock:   startBlock,
		contractABI:  contractABI,
		store:        store,
		logger:       logger.With(zap.String("chain", chainName)),
		pollInterval: DefaultPollInterval,
	}, nil
}

// SetPollInterval overrides the default polling cadence
func (w *Watcher) SetPollInterval(d time.Duration) {
	if d > 0 {
		w.pollInterval = d
	}
}

// Run polls until the context is cancelled. A tick is never cancelled
// mid-iteration; the shutdown signal is read at the top of the loop.
func (w *Watcher) Run(ctx context.Context) {
	w.logger.Info("starting watcher", zap.String("contract", w.contract.Hex()))

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("watcher stopped")
			return
		case <-ticker.C:
			if err := w.poll(ctx); err != nil {
				w.logger.Error("error polling events", zap.Error(err))
			}
		}
	}
}

// poll scans [lastBlock, latest] in bounded windows. A window that fails
// does not advance lastBlock, so its logs are retried next tick; the
// store's handlers are idempotent under replay.
func (w *Watcher) poll(ctx context.Context) error {
	latest, err := w.client.BlockNumber(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch latest block: %w", err)
	}

	from := w.lastBlock
	if from == 0 {
		from = w.startBlock
	}
	if from >= latest {
		return nil
	}

	for current := from; current < latest; {
		next := current + MaxBlockSpan
		if next > latest {
			next = latest
		}

		query := ethereum.FilterQuery{
			FromBlock: new(big.Int).SetUint64(current),
			ToBlock:   new(big.Int).SetUint64(next),
			Addresses: []common.Address{w.contract},
		}

		logs, err := w.client.FilterLogs(ctx, query)
		if err != nil {
			return fmt.Errorf("failed to fetch logs [%d, %d]: %w", current, next, err)
		}

		for i := range logs {
			w.ProcessLog(&logs[i])
		}

		current = next + 1
		w.lastBlock = next
	}

	return nil
}

// ProcessLog decodes one log against the escrow ABI and dispatches it.
// Logs with no matching event, and logs that fail to decode, are skipped;
// the iteration continues.
func (w *Watcher) ProcessLog(lg *coretypes.Log) {
	if len(lg.Topics) == 0 {
		return
	}

	event, err := w.contractABI.EventByID(lg.Topics[0])
	if err != nil {
		return
	}

	if err := w.dispatch(event.Name, lg); err != nil {
		w.logger.Warn("failed to process log",
			zap.String("event", event.Name),
			zap.String("tx_hash", lg.TxHash.Hex()),
			zap.Error(err))
	}
}

func (w *Watcher) dispatch(name string, lg *coretypes.Log) error {
	switch name {
	case "SrcEscrowCreated":
		return w.handleSrcEscrowCreated(lg)
	case "DstEscrowCreated":
		return w.handleDstEscrowCreated(lg)
	case "Withdrawal":
		return w.handleWithdrawal(lg)
	case "SourceRescue":
		return w.handleRescue(name, types.EventSourceRescue, lg)
	case "DestinationRescue":
		return w.handleRescue(name, types.EventDestinationRescue, lg)
	}
	return nil
}

func (w *Watcher) handleSrcEscrowCreated(lg *coretypes.Log) error {
	event, err := DecodeSrcEscrowCreated(w.contractABI, lg)
	if err != nil {
		return err
	}

	raw, err := json.Marshal(lg)
	if err != nil {
		return fmt.Errorf("failed to encode raw log: %w", err)
	}

	err = w.store.HandleEscrowEvent(
		event.OrderHashHex(),
		types.EventSrcEscrowCreated,
		event.Escrow.Hex(),
		lg.TxHash.Hex(),
		raw,
	)
	if errors.Is(err, database.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	w.logger.Info("source escrow created",
		zap.String("order_hash", event.OrderHashHex()),
		zap.String("escrow", event.Escrow.Hex()))
	return nil
}

func (w *Watcher) handleDstEscrowCreated(lg *coretypes.Log) error {
	event, err := DecodeDstEscrowCreated(w.contractABI, lg)
	if err != nil {
		return err
	}

	raw, err := json.Marshal(lg)
	if err != nil {
		return fmt.Errorf("failed to encode raw log: %w", err)
	}

	err = w.store.HandleEscrowEvent(
		event.OrderHashHex(),
		types.EventDstEscrowCreated,
		event.Escrow.Hex(),
		lg.TxHash.Hex(),
		raw,
	)
	if errors.Is(err, database.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	w.logger.Info("destination escrow created",
		zap.String("order_hash", event.OrderHashHex()),
		zap.String("escrow", event.Escrow.Hex()))
	return nil
}

// handleWithdrawal routes a Withdrawal by the emitting escrow address:
// the store tells us which side the address belongs to, and the revealed
// secret is recorded against the order's hashlocks
func (w *Watcher) handleWithdrawal(lg *coretypes.Log) error {
	event, err := DecodeWithdrawal(w.contractABI, lg)
	if err != nil {
		return err
	}

	orderHash := event.OrderHashHex()
	escrowAddress := lg.Address.Hex()

	if err := w.store.SubmitSecret(orderHash, event.SecretHex()); err != nil {
		if !errors.Is(err, database.ErrNotFound) {
			w.logger.Warn("failed to record revealed secret",
				zap.String("order_hash", orderHash), zap.Error(err))
		}
	}

	status, err := w.store.DetermineWithdrawalStatus(orderHash, escrowAddress)
	if errors.Is(err, database.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	kind := types.EventDestinationWithdrawal
	if status == types.StatusSourceSettled {
		kind = types.EventSourceWithdrawal
	}

	raw, err := json.Marshal(lg)
	if err != nil {
		return fmt.Errorf("failed to encode raw log: %w", err)
	}

	err = w.store.HandleEscrowEvent(orderHash, kind, escrowAddress, lg.TxHash.Hex(), raw)
	if errors.Is(err, database.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	w.logger.Info("withdrawal processed",
		zap.String("order_hash", orderHash),
		zap.String("escrow", escrowAddress))
	return nil
}

func (w *Watcher) handleRescue(name string, kind types.EscrowEventKind, lg *coretypes.Log) error {
	event, err := DecodeRescue(w.contractABI, name, lg)
	if err != nil {
		return err
	}

	raw, err := json.Marshal(lg)
	if err != nil {
		return fmt.Errorf("failed to encode raw log: %w", err)
	}

	err = w.store.HandleEscrowEvent(event.OrderHashHex(), kind, lg.Address.Hex(), lg.TxHash.Hex(), raw)
	if errors.Is(err, database.ErrNotFound) {
		return nil
	}
	return err
}
