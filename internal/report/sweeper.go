package report

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/kiranshivaraju/faultline/internal/metrics"
	"github.com/robfig/cron/v3"
)

// DefaultSweepInterval is how often stale dedup entries are evicted.
const DefaultSweepInterval = time.Hour

// Sweeper periodically evicts stale entries from a Store. A missed sweep only
// delays memory reclamation; dedup stays correct either way.
type Sweeper struct {
	store Store
	now   func() time.Time
	cron  *cron.Cron
}

// NewSweeper creates a Sweeper for store. A nil now selects time.Now.
func NewSweeper(store Store, now func() time.Time) *Sweeper {
	if now == nil {
		now = time.Now
	}
	return &Sweeper{store: store, now: now}
}

// Start schedules a sweep every interval until Stop is called.
func (s *Sweeper) Start(interval time.Duration) error {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	c := cron.New()
	if _, err := c.AddFunc(fmt.Sprintf("@every %s", interval), func() { s.RunOnce(context.Background()) }); err != nil {
		return fmt.Errorf("scheduling dedup sweep: %w", err)
	}
	s.cron = c
	c.Start()
	return nil
}

// RunOnce sweeps immediately and returns the number of evicted entries.
func (s *Sweeper) RunOnce(ctx context.Context) int {
	evicted, err := s.store.Sweep(ctx, s.now())
	if err != nil {
		slog.Warn("dedup sweep failed", "error", err)
		return 0
	}
	if evicted > 0 {
		metrics.RecordEvictions(evicted)
		slog.Info("dedup sweep evicted stale entries", "evicted", evicted)
	}
	return evicted
}

// Stop cancels future sweeps and waits for a running one, or for ctx.
func (s *Sweeper) Stop(ctx context.Context) {
	if s.cron == nil {
		return
	}
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
	}
}
