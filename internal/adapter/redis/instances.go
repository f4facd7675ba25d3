package redis

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/roomhub/internal/domain"
	goredis "github.com/redis/go-redis/v9"
)

// InstancesKey is the hash holding one heartbeat entry per instance.
const InstancesKey = "roomhub:instances"

// Heartbeat advertises this instance in Redis so operators can see the whole cluster.
// Entries that miss staleAfterBeats heartbeats are treated as gone and pruned on read.
type Heartbeat struct {
	rdb         *goredis.Client
	instanceID  string
	version     string
	interval    time.Duration
	clock       clockwork.Clock
	connections func() int
}

const staleAfterBeats = 4

func NewHeartbeat(rdb *goredis.Client, instanceID, version string, interval time.Duration, clock clockwork.Clock, connections func() int) *Heartbeat {
	return &Heartbeat{
		rdb:         rdb,
		instanceID:  instanceID,
		version:     version,
		interval:    interval,
		clock:       clock,
		connections: connections,
	}
}

// Run registers immediately, then on every interval. On cancellation the entry is removed.
func (h *Heartbeat) Run(ctx context.Context) {
	h.beat(ctx)

	ticker := h.clock.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.Chan():
			h.beat(ctx)
		case <-ctx.Done():
			h.unregister()
			return
		}
	}
}

func (h *Heartbeat) beat(ctx context.Context) {
	data, err := json.Marshal(domain.InstanceInfo{
		InstanceID:  h.instanceID,
		Version:     h.version,
		Connections: h.connections(),
		LastSeen:    h.clock.Now().UTC(),
	})
	if err != nil {
		slog.Error("Failed to encode heartbeat", "error", err)
		return
	}

	if err := h.rdb.HSet(ctx, InstancesKey, h.instanceID, data).Err(); err != nil {
		slog.Warn("Heartbeat failed", "instance_id", h.instanceID, "error", err)
	}
}

func (h *Heartbeat) unregister() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := h.rdb.HDel(ctx, InstancesKey, h.instanceID).Err(); err != nil {
		slog.Warn("Failed to unregister instance", "instance_id", h.instanceID, "error", err)
	}
}

// Instances returns the live instances sorted by id and prunes stale entries.
func (h *Heartbeat) Instances(ctx context.Context) ([]domain.InstanceInfo, error) {
	entries, err := h.rdb.HGetAll(ctx, InstancesKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list instances: %w", err)
	}

	cutoff := h.clock.Now().Add(-staleAfterBeats * h.interval)
	infos := []domain.InstanceInfo{}
	var stale []string

	for id, data := range entries {
		var info domain.InstanceInfo
		if err := json.Unmarshal([]byte(data), &info); err != nil || info.LastSeen.Before(cutoff) {
			stale = append(stale, id)
			continue
		}
		infos = append(infos, info)
	}

	if len(stale) > 0 {
		if err := h.rdb.HDel(ctx, InstancesKey, stale...).Err(); err != nil {
			slog.Debug("Failed to prune stale instances", "error", err)
		}
	}

	slices.SortFunc(infos, func(a, b domain.InstanceInfo) int { return cmp.Compare(a.InstanceID, b.InstanceID) })
	return infos, nil
}
