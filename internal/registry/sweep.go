package registry

import (
	"log/slog"
	"time"

	"github.com/pscheid92/roomhub/internal/domain"
)

// Sweep unregisters every connection whose registration is at least maxAge old and
// returns how many were removed. A zero maxAge evicts all connections.
// Concurrent sweeps are serialized; registrations made while a sweep runs are untouched.
func (r *Registry) Sweep(maxAge time.Duration) int {
	r.sweepMu.Lock()
	defer r.sweepMu.Unlock()

	cutoff := r.clock.Now().Add(-maxAge)

	r.mu.RLock()
	var stale []domain.ConnectionID
	for id, c := range r.conns {
		if !c.joinedAt.After(cutoff) {
			stale = append(stale, id)
		}
	}
	r.mu.RUnlock()

	evicted := make([]domain.ConnectionID, 0, len(stale))
	for _, id := range stale {
		if r.unregister(id) {
			evicted = append(evicted, id)
		}
	}

	if r.onEvict != nil {
		for _, id := range evicted {
			r.onEvict(id)
		}
	}

	r.metrics.Evicted(len(evicted))
	if len(evicted) > 0 {
		slog.Info("Swept stale connections", "evicted", len(evicted), "max_age", maxAge)
	}
	return len(evicted)
}
