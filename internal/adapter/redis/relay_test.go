package redis

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/pscheid92/roomhub/internal/adapter/metrics"
	"github.com/pscheid92/roomhub/internal/domain"
	"github.com/pscheid92/roomhub/internal/platform/correlation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type collected struct {
	mu         sync.Mutex
	broadcasts []domain.Broadcast
	ctxs       []context.Context
}

func (c *collected) handler(ctx context.Context, b domain.Broadcast) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.broadcasts = append(c.broadcasts, b)
	c.ctxs = append(c.ctxs, ctx)
}

func (c *collected) all() []domain.Broadcast {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]domain.Broadcast(nil), c.broadcasts...)
}

func encode(t *testing.T, origin string, b domain.Broadcast) string {
	t.Helper()
	data, err := json.Marshal(relayMessage{Origin: origin, Broadcast: b})
	require.NoError(t, err)
	return string(data)
}

func TestRelay_Handle(t *testing.T) {
	relayMetrics := metrics.NewRelayMetrics(prometheus.NewRegistry())
	relay := NewRelay(nil, "node-a", relayMetrics)
	got := &collected{}

	b := domain.Broadcast{
		Target:  domain.TargetRoom,
		Room:    "chat-s1",
		Event:   "status-changed",
		Payload: json.RawMessage(`{"status":"closed"}`),
		Exclude: "c9",
		Roles:   []domain.Role{domain.RoleAdmin},
	}

	relay.handle(context.Background(), encode(t, "node-b", b), got.handler)
	relay.handle(context.Background(), encode(t, "node-a", b), got.handler)
	relay.handle(context.Background(), "{not json", got.handler)
	relay.handle(context.Background(), encode(t, "node-b", domain.Broadcast{Target: domain.TargetRoom, Event: "x"}), got.handler)
	relay.handle(context.Background(), encode(t, "node-b", domain.Broadcast{Target: "everyone", Event: "x"}), got.handler)

	require.Len(t, got.all(), 1)
	assert.Equal(t, b, got.all()[0])
	_, ok := correlation.ID(got.ctxs[0])
	assert.True(t, ok, "relayed broadcasts carry a correlation id")

	assert.InDelta(t, 1.0, testutil.ToFloat64(relayMetrics.Received.WithLabelValues("delivered")), 0)
	assert.InDelta(t, 1.0, testutil.ToFloat64(relayMetrics.Received.WithLabelValues("own")), 0)
	assert.InDelta(t, 3.0, testutil.ToFloat64(relayMetrics.Received.WithLabelValues("invalid")), 0)
}

func TestRelay_WireFormat(t *testing.T) {
	payload := encode(t, "node-a", domain.Broadcast{Target: domain.TargetAdmins, Event: "report-created"})

	var fields map[string]any
	require.NoError(t, json.Unmarshal([]byte(payload), &fields))
	assert.Equal(t, "node-a", fields["origin"])
	assert.Equal(t, "admins", fields["target"])
	assert.Equal(t, "report-created", fields["event"])
}

func TestRelay_MultiInstance(t *testing.T) {
	client := setupTestClient(t)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	nodeA := NewRelay(client, "node-a", nil)
	nodeB := NewRelay(client, "node-b", nil)
	gotA, gotB := &collected{}, &collected{}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		assert.NoError(t, nodeA.Start(ctx, gotA.handler))
	}()
	go func() {
		defer wg.Done()
		assert.NoError(t, nodeB.Start(ctx, gotB.handler))
	}()

	// Wait until both subscriptions are registered on the server.
	require.Eventually(t, func() bool {
		counts, err := client.PubSubNumSub(ctx, BroadcastChannel).Result()
		return err == nil && counts[BroadcastChannel] == 2
	}, 5*time.Second, 20*time.Millisecond)

	b := domain.Broadcast{Target: domain.TargetRoom, Room: domain.GlobalRoom, Event: "chart-refresh"}
	require.NoError(t, nodeA.Publish(ctx, b))

	require.Eventually(t, func() bool { return len(gotB.all()) == 1 }, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, b, gotB.all()[0])
	assert.Empty(t, gotA.all(), "publisher must not receive its own broadcast")

	cancel()
	wg.Wait()
}
