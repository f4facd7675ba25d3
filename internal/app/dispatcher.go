package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/pscheid92/roomhub/internal/domain"
	"github.com/pscheid92/roomhub/internal/registry"
)

// Relay shares broadcasts with other instances of the service.
type Relay interface {
	Publish(ctx context.Context, b domain.Broadcast) error
}

// Dispatcher delivers broadcasts to local connections and forwards them to the relay,
// so that members connected to other instances receive them too.
type Dispatcher struct {
	broadcaster *registry.Broadcaster
	relay       Relay
}

// NewDispatcher creates a dispatcher. relay may be nil for a single-instance deployment.
func NewDispatcher(broadcaster *registry.Broadcaster, relay Relay) *Dispatcher {
	return &Dispatcher{broadcaster: broadcaster, relay: relay}
}

// Dispatch delivers b locally and publishes it to the relay. It returns the number of local
// connections targeted. A relay failure is logged and does not fail the dispatch.
func (d *Dispatcher) Dispatch(ctx context.Context, b domain.Broadcast) (int, error) {
	if err := validate(b); err != nil {
		return 0, err
	}

	targeted := d.deliver(b)

	if d.relay != nil {
		if err := d.relay.Publish(ctx, b); err != nil {
			slog.WarnContext(ctx, "Broadcast not relayed", "target", b.Target, "event", b.Event, "error", err)
		}
	}

	slog.DebugContext(ctx, "Broadcast dispatched", "target", b.Target, "room", b.Room, "event", b.Event, "targeted", targeted)
	return targeted, nil
}

// HandleRelayed delivers a broadcast that originated on another instance. It is never
// published again.
func (d *Dispatcher) HandleRelayed(ctx context.Context, b domain.Broadcast) {
	if err := validate(b); err != nil {
		slog.WarnContext(ctx, "Dropping relayed broadcast", "error", err)
		return
	}
	targeted := d.deliver(b)
	slog.DebugContext(ctx, "Relayed broadcast delivered", "target", b.Target, "room", b.Room, "event", b.Event, "targeted", targeted)
}

func (d *Dispatcher) deliver(b domain.Broadcast) int {
	var opts []registry.BroadcastOption
	if b.Exclude != "" {
		opts = append(opts, registry.Excluding(b.Exclude))
	}
	if len(b.Roles) > 0 {
		opts = append(opts, registry.Matching(domain.RoleFilter(b.Roles...)))
	}

	var payload any
	if len(b.Payload) > 0 {
		payload = b.Payload
	}

	if b.Target == domain.TargetAdmins {
		return d.broadcaster.BroadcastToAdmins(b.Event, payload, opts...)
	}
	return d.broadcaster.BroadcastToRoom(b.Room, b.Event, payload, opts...)
}

func validate(b domain.Broadcast) error {
	if b.Event == "" {
		return fmt.Errorf("%w: event is required", domain.ErrInvalidBroadcast)
	}
	switch b.Target {
	case domain.TargetRoom:
		if b.Room == "" {
			return fmt.Errorf("%w: room is required", domain.ErrInvalidBroadcast)
		}
	case domain.TargetAdmins:
	default:
		return fmt.Errorf("%w: unknown target %q", domain.ErrInvalidBroadcast, b.Target)
	}
	for _, role := range b.Roles {
		if !role.Valid() {
			return fmt.Errorf("%w: unknown role %d", domain.ErrInvalidBroadcast, role)
		}
	}
	return nil
}
