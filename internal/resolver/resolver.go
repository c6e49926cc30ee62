package resolver

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/gardenfi/swapd/internal/adapters"
	"github.com/gardenfi/swapd/internal/types"
)

const defaultCacheSize = 1000

// OrdersAPI is the slice of the orderbook the resolver reads
type OrdersAPI interface {
	GetActiveOrders(page, limit uint64) (*types.GetActiveOrdersOutput, error)
	GetOrder(orderHash string) (*types.Order, error)
}

// Resolver discovers supported orders and advances each one through its
// lifecycle: the order's current status determines the action for each
// side, the matching chain adapter executes it, and a TTL cache keeps one
// tick from re-issuing work the previous tick already submitted.
type Resolver struct {
	orders          OrdersAPI
	chainAdapters   map[uint64]adapters.ChainAdapter
	supportedAssets map[uint64]map[string]bool
	cache           *actionCache
	pollInterval    time.Duration
	seedFile        string
	logger          *zap.Logger
}

// Config bundles the resolver's construction parameters
type Config struct {
	Orders       OrdersAPI
	PollInterval time.Duration
	ActionTTL    time.Duration
	SeedFile     string
	Logger       *zap.Logger
}

// New creates a resolver. At least one chain adapter must be registered
// before Run.
func New(cfg Config) (*Resolver, error) {
	if cfg.Orders == nil {
		return nil, fmt.Errorf("orders client must be set")
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 5 * time.Second
	}
	if cfg.ActionTTL <= 0 {
		cfg.ActionTTL = 5 * time.Minute
	}

	return &Resolver{
		orders:          cfg.Orders,
		chainAdapters:   make(map[uint64]adapters.ChainAdapter),
		supportedAssets: make(map[uint64]map[string]bool),
		cache:           newActionCache(cfg.ActionTTL, defaultCacheSize),
		pollInterval:    cfg.PollInterval,
		seedFile:        cfg.SeedFile,
		logger:          cfg.Logger,
	}, nil
}

// AddChain registers the adapter and asset whitelist for one chain
func (r *Resolver) AddChain(adapter adapters.ChainAdapter, assets []string) {
	chainID := adapter.ChainID()
	r.chainAdapters[chainID] = adapter

	whitelist := make(map[string]bool, len(assets))
	for _, asset := range assets {
		whitelist[types.NormalizeHex(asset)] = true
	}
	r.supportedAssets[chainID] = whitelist
}

// Run ticks until the context is cancelled. Each tick discovers new
// orders and processes the tracked working set; failures are logged and
// retried on the next tick through the discovery path.
func (r *Resolver) Run(ctx context.Context) error {
	if len(r.chainAdapters) == 0 {
		return fmt.Errorf("at least one chain adapter must be added")
	}

	r.logger.Info("resolver started",
		zap.Int("chains", len(r.chainAdapters)),
		zap.Duration("poll_interval", r.pollInterval))

	if r.seedFile != "" {
		if err := r.loadSeedFile(); err != nil {
			r.logger.Warn("failed to load order seed file", zap.Error(err))
		}
	}

	ticker := time.NewTicker(r.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("resolver stopped")
			return nil
		case <-ticker.C:
			if err := r.discover(); err != nil {
				r.logger.Error("error discovering orders", zap.Error(err))
			}
			r.processTracked(ctx)
		}
	}
}

// discover pulls the active-order page and adds supported orders to the
// working set
func (r *Resolver) discover() error {
	page, err := r.orders.GetActiveOrders(0, 0)
	if err != nil {
		return err
	}

	for i := range page.Items {
		item := &page.Items[i]
		if !r.isSupported(item.SrcChainID, item.DstChainID, item.Order.MakerAsset, item.Order.TakerAsset) {
			continue
		}
		r.cache.Track(types.NormalizeHex(item.OrderHash))
	}
	return nil
}

// processTracked re-reads every tracked order and executes the actions
// its current status calls for
func (r *Resolver) processTracked(ctx context.Context) {
	for _, orderHash := range r.cache.Tracked() {
		order, err := r.orders.GetOrder(orderHash)
		if err != nil {
			r.logger.Warn("failed to fetch tracked order; dropping",
				zap.String("order_hash", orderHash), zap.Error(err))
			r.cache.Forget(orderHash)
			continue
		}

		sourceAction, destAction := DetermineActions(order.Status)

		// Both dedup decisions are taken before either side executes, so
		// recording the source action cannot swallow an identical
		// destination action in the same tick
		processSource := sourceAction != adapters.NoOp && r.cache.ShouldProcess(order.OrderHash, sourceAction)
		processDest := destAction != adapters.NoOp && r.cache.ShouldProcess(order.OrderHash, destAction)

		if processSource {
			r.executeSide(ctx, order, adapters.SourceSide, order.SrcChainID, sourceAction)
		}
		if processDest {
			r.executeSide(ctx, order, adapters.DestinationSide, order.DstChainID, destAction)
		}
	}
}

// executeSide runs one side's action. Successful actions are cached;
// failures are not, so the next tick retries.
func (r *Resolver) executeSide(ctx context.Context, order *types.Order, side adapters.Side, chainID uint64, action adapters.ActionType) {
	adapter, ok := r.chainAdapters[chainID]
	if !ok {
		r.logger.Warn("no adapter for chain",
			zap.Uint64("chain_id", chainID), zap.String("order_hash", order.OrderHash))
		return
	}

	orderAction := &adapters.OrderAction{
		OrderID:    order.OrderHash,
		ActionType: action,
		Side:       side,
		Order:      order,
	}

	if err := adapters.Execute(ctx, adapter, orderAction); err != nil {
		r.logger.Error("failed to execute action",
			zap.String("order_hash", order.OrderHash),
			zap.String("action", string(action)),
			zap.String("side", string(side)),
			zap.Error(err))
		return
	}

	r.logger.Info("executed action",
		zap.String("order_hash", order.OrderHash),
		zap.String("action", string(action)),
		zap.String("side", string(side)),
		zap.Uint64("chain_id", chainID))
	r.cache.Record(order.OrderHash, action)
}

// isSupported checks both chains and both assets against the whitelist
func (r *Resolver) isSupported(srcChain, dstChain uint64, makerAsset, takerAsset string) bool {
	srcAssets, ok := r.supportedAssets[srcChain]
	if !ok {
		return false
	}
	dstAssets, ok := r.supportedAssets[dstChain]
	if !ok {
		return false
	}
	return srcAssets[types.NormalizeHex(makerAsset)] && dstAssets[types.NormalizeHex(takerAsset)]
}

// loadSeedFile reads order hashes from the bootstrap file, one 0x-prefixed
// hash per line, so in-flight orders from a prior run resume
func (r *Resolver) loadSeedFile() error {
	file, err := os.Open(r.seedFile)
	if err != nil {
		return err
	}
	defer file.Close()

	loaded := 0
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		orderHash := strings.TrimSpace(scanner.Text())
		if orderHash == "" {
			continue
		}
		if !strings.HasPrefix(orderHash, "0x") {
			r.logger.Warn("skipping invalid order hash in seed file",
				zap.String("order_hash", orderHash))
			continue
		}
		r.cache.Track(types.NormalizeHex(orderHash))
		loaded++
	}

	r.logger.Info("loaded order seed file",
		zap.String("path", r.seedFile), zap.Int("orders", loaded))
	return scanner.Err()
}
