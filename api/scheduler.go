/*
scheduler.go - Background refresh of cached free-bid corrections

PURPOSE:
  A contemplated quota caches the CDI correction accrued by its free bid
  (bid_free_correction). The cache goes stale every time a new CDI month is
  published, so it is recomputed periodically.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - Runs once immediately on Start
  - Each run is bounded by the interval so a slow store can't pile up runs

CONFIGURATION:
  - CheckInterval: How often to refresh (default: 1 hour)
  - Enabled: Whether the scheduler is active (default: true)

USAGE:
  scheduler := NewRefreshScheduler(svc, logger)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - service/service.go: RefreshBidCorrections
*/
package api

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// BidCorrectionRefresher is the operation the scheduler runs.
type BidCorrectionRefresher interface {
	RefreshBidCorrections(ctx context.Context) (int, error)
}

// RefreshScheduler periodically refreshes cached free-bid corrections.
type RefreshScheduler struct {
	Refresher     BidCorrectionRefresher
	Logger        *zap.Logger
	CheckInterval time.Duration
	Enabled       bool

	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex
	runs   atomic.Int64
}

// NewRefreshScheduler creates a new scheduler.
func NewRefreshScheduler(refresher BidCorrectionRefresher, logger *zap.Logger) *RefreshScheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RefreshScheduler{
		Refresher:     refresher,
		Logger:        logger,
		CheckInterval: 1 * time.Hour,
		Enabled:       true,
		stop:          make(chan struct{}),
	}
}

// Start begins the scheduler.
func (rs *RefreshScheduler) Start() {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if !rs.Enabled {
		rs.Logger.Info("scheduler disabled, not starting", zap.String("op", "api.RefreshScheduler.Start"))
		return
	}
	if rs.ticker != nil {
		return
	}

	rs.stop = make(chan struct{})
	rs.ticker = time.NewTicker(rs.CheckInterval)
	rs.wg.Add(1)

	go rs.run(rs.ticker.C, rs.stop)

	rs.Logger.Info("scheduler started",
		zap.String("op", "api.RefreshScheduler.Start"),
		zap.Duration("interval", rs.CheckInterval))
}

// Stop stops the scheduler and waits for a running refresh to finish.
func (rs *RefreshScheduler) Stop() {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if rs.ticker != nil {
		rs.ticker.Stop()
		close(rs.stop)
		rs.wg.Wait()
		rs.ticker = nil
		rs.Logger.Info("scheduler stopped", zap.String("op", "api.RefreshScheduler.Stop"))
	}
}

// Runs returns how many refreshes have completed.
func (rs *RefreshScheduler) Runs() int {
	return int(rs.runs.Load())
}

func (rs *RefreshScheduler) run(tick <-chan time.Time, stop <-chan struct{}) {
	defer rs.wg.Done()

	// Run immediately on start
	rs.refresh()

	for {
		select {
		case <-tick:
			rs.refresh()
		case <-stop:
			return
		}
	}
}

func (rs *RefreshScheduler) refresh() {
	ctx, cancel := context.WithTimeout(context.Background(), rs.CheckInterval)
	defer cancel()

	updated, err := rs.Refresher.RefreshBidCorrections(ctx)
	if err != nil {
		rs.Logger.Error("bid correction refresh failed",
			zap.String("op", "api.RefreshScheduler.refresh"),
			zap.Error(err))
	} else {
		rs.Logger.Debug("bid corrections refreshed",
			zap.String("op", "api.RefreshScheduler.refresh"),
			zap.Int("updated", updated))
	}
	rs.runs.Add(1)
}
