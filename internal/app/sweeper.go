package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/roomhub/internal/platform/correlation"
)

// Sweepable evicts connections older than maxAge and reports how many it removed.
type Sweepable interface {
	Sweep(maxAge time.Duration) int
}

// Sweeper periodically evicts connections that outlived the maximum age. It catches
// connections whose close was never observed.
type Sweeper struct {
	target   Sweepable
	interval time.Duration
	maxAge   time.Duration
	clock    clockwork.Clock
}

func NewSweeper(target Sweepable, interval, maxAge time.Duration, clock clockwork.Clock) *Sweeper {
	return &Sweeper{target: target, interval: interval, maxAge: maxAge, clock: clock}
}

// Run sweeps every interval. It blocks until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := s.clock.NewTicker(s.interval)
	defer ticker.Stop()

	slog.Info("Sweeper started", "interval", s.interval, "max_age", s.maxAge)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			tickCtx := correlation.WithID(ctx, correlation.NewID())
			evicted := s.target.Sweep(s.maxAge)
			slog.DebugContext(tickCtx, "Sweep finished", "evicted", evicted)
		}
	}
}
