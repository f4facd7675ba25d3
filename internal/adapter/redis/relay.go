package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/pscheid92/roomhub/internal/adapter/metrics"
	"github.com/pscheid92/roomhub/internal/domain"
	"github.com/pscheid92/roomhub/internal/platform/correlation"
	goredis "github.com/redis/go-redis/v9"
)

// BroadcastChannel carries broadcasts between instances.
const BroadcastChannel = "roomhub:broadcast"

var errInvalidMessage = errors.New("invalid relay message")

type relayMessage struct {
	Origin string `json:"origin"`
	domain.Broadcast
}

// Relay shares broadcasts with the other instances of the service. Connections live on
// exactly one instance, so every instance re-delivers relayed broadcasts to its own members.
type Relay struct {
	rdb        *goredis.Client
	instanceID string
	metrics    *metrics.RelayMetrics
}

// NewRelay creates a relay for this instance. relayMetrics may be nil.
func NewRelay(rdb *goredis.Client, instanceID string, relayMetrics *metrics.RelayMetrics) *Relay {
	return &Relay{rdb: rdb, instanceID: instanceID, metrics: relayMetrics}
}

func (r *Relay) Publish(ctx context.Context, b domain.Broadcast) error {
	data, err := json.Marshal(relayMessage{Origin: r.instanceID, Broadcast: b})
	if err != nil {
		r.countPublished("error")
		return fmt.Errorf("encode relay message: %w", err)
	}

	if err := r.rdb.Publish(ctx, BroadcastChannel, data).Err(); err != nil {
		r.countPublished("error")
		return fmt.Errorf("failed to publish broadcast: %w", err)
	}
	r.countPublished("success")
	return nil
}

// Start subscribes and hands every broadcast from another instance to handler until ctx
// is cancelled. It returns an error if the subscription cannot be established or is lost.
func (r *Relay) Start(ctx context.Context, handler func(context.Context, domain.Broadcast)) error {
	pubsub := r.rdb.Subscribe(ctx, BroadcastChannel)
	defer func() { _ = pubsub.Close() }()

	if _, err := pubsub.Receive(ctx); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("failed to subscribe to %s: %w", BroadcastChannel, err)
	}
	slog.Info("Relay subscribed", "channel", BroadcastChannel, "instance_id", r.instanceID)

	ch := pubsub.Channel()
	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return errors.New("relay subscription closed")
			}
			r.handle(ctx, msg.Payload, handler)
		case <-ctx.Done():
			return nil
		}
	}
}

func (r *Relay) handle(ctx context.Context, payload string, handler func(context.Context, domain.Broadcast)) {
	b, origin, err := decode(payload)
	if err != nil {
		r.countReceived("invalid")
		slog.Warn("Dropping relay message", "error", err)
		return
	}
	if origin == r.instanceID {
		r.countReceived("own")
		return
	}

	r.countReceived("delivered")
	ctx = correlation.WithID(ctx, correlation.NewID())
	slog.DebugContext(ctx, "Relayed broadcast received", "origin", origin, "target", b.Target, "event", b.Event)
	handler(ctx, b)
}

func decode(payload string) (domain.Broadcast, string, error) {
	var msg relayMessage
	if err := json.Unmarshal([]byte(payload), &msg); err != nil {
		return domain.Broadcast{}, "", fmt.Errorf("%w: %w", errInvalidMessage, err)
	}
	if msg.Origin == "" || msg.Event == "" {
		return domain.Broadcast{}, "", fmt.Errorf("%w: origin and event are required", errInvalidMessage)
	}

	switch msg.Target {
	case domain.TargetRoom:
		if msg.Room == "" {
			return domain.Broadcast{}, "", fmt.Errorf("%w: room target without room", errInvalidMessage)
		}
	case domain.TargetAdmins:
	default:
		return domain.Broadcast{}, "", fmt.Errorf("%w: unknown target %q", errInvalidMessage, msg.Target)
	}
	return msg.Broadcast, msg.Origin, nil
}

func (r *Relay) countPublished(result string) {
	if r.metrics != nil {
		r.metrics.Published.WithLabelValues(result).Inc()
	}
}

func (r *Relay) countReceived(result string) {
	if r.metrics != nil {
		r.metrics.Received.WithLabelValues(result).Inc()
	}
}
