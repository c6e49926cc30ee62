package scheduler

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// ExpiryStore is the slice of the order store the sweeper drives
type ExpiryStore interface {
	MarkExpired(nowMillis int64) (int64, error)
}

// Sweeper periodically moves orders past their deadline into expired.
// Deadlines are unix milliseconds and monotone in wall-clock, so a single
// bulk update per tick suffices; the resolver picks the expired orders up
// on its next tick and issues the cancel calls.
type Sweeper struct {
	store    ExpiryStore
	interval time.Duration
	logger   *zap.Logger
}

// NewSweeper creates a deadline sweeper
func NewSweeper(store ExpiryStore, interval time.Duration, logger *zap.Logger) *Sweeper {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	return &Sweeper{store: store, interval: interval, logger: logger}
}

// Run sweeps until the context is cancelled
func (s *Sweeper) Run(ctx context.Context) {
	s.logger.Info("starting deadline sweeper", zap.Duration("interval", s.interval))

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("deadline sweeper stopped")
			return
		case <-ticker.C:
			s.sweep()
		}
	}
}

func (s *Sweeper) sweep() {
	expired, err := s.store.MarkExpired(time.Now().UnixMilli())
	if err != nil {
		s.logger.Error("failed to expire orders", zap.Error(err))
		return
	}
	if expired > 0 {
		s.logger.Info("orders expired", zap.Int64("count", expired))
	}
}
