package relayer

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/gardenfi/swapd/internal/api"
	"github.com/gardenfi/swapd/internal/config"
	"github.com/gardenfi/swapd/internal/database"
	"github.com/gardenfi/swapd/internal/scheduler"
	"github.com/gardenfi/swapd/internal/service"
)

// Relayer wires the orderbook service: database, HTTP API and the
// deadline sweeper
type Relayer struct {
	db        *sql.DB
	store     *database.OrderStore
	apiServer *api.Server
	sweeper   *scheduler.Sweeper
	logger    *zap.Logger

	stopFunc context.CancelFunc
	wg       sync.WaitGroup
}

// New creates a relayer from its configuration
func New(cfg *config.Relayer, logger *zap.Logger) (*Relayer, error) {
	db, err := database.New(cfg.DBURL)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	store := database.NewOrderStore(db, logger)
	orderbook := service.NewOrderbookService(store, logger)

	return &Relayer{
		db:        db,
		store:     store,
		apiServer: api.NewServer(cfg.Port, orderbook, logger),
		sweeper:   scheduler.NewSweeper(store, 10*time.Second, logger),
		logger:    logger,
	}, nil
}

// Start runs every component until the context is cancelled
func (r *Relayer) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	r.stopFunc = cancel

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		if err := r.apiServer.Start(ctx); err != nil {
			r.logger.Error("API server error", zap.Error(err))
		}
	}()

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.sweeper.Run(ctx)
	}()

	r.logger.Info("relayer components started")

	<-ctx.Done()
	return nil
}

// Stop shuts the relayer down and waits for its tasks to finish
func (r *Relayer) Stop() {
	if r.stopFunc != nil {
		r.stopFunc()
	}
	r.wg.Wait()
	r.db.Close()
	r.logger.Info("relayer stopped")
}
