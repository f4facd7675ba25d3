package registry

import (
	"log/slog"

	"github.com/pscheid92/roomhub/internal/domain"
)

type broadcastOptions struct {
	exclude domain.ConnectionID
	filter  domain.Filter
}

// BroadcastOption narrows the recipient set of a single broadcast.
type BroadcastOption func(*broadcastOptions)

// Excluding skips one connection, typically the sender of the triggering action.
func Excluding(id domain.ConnectionID) BroadcastOption {
	return func(o *broadcastOptions) { o.exclude = id }
}

// Matching delivers only to connections accepted by filter. The filter runs while the
// registry is read-locked and must not call back into it.
func Matching(filter domain.Filter) BroadcastOption {
	return func(o *broadcastOptions) { o.filter = filter }
}

func (o broadcastOptions) accepts(c *connection) bool {
	if o.exclude != "" && c.id == o.exclude {
		return false
	}
	return o.filter == nil || o.filter(c.info())
}

// Broadcaster fans events out to the members of a room or to every admin connection.
type Broadcaster struct {
	registry *Registry
	sender   domain.Sender
}

func NewBroadcaster(registry *Registry, sender domain.Sender) *Broadcaster {
	return &Broadcaster{registry: registry, sender: sender}
}

// BroadcastToRoom sends event to every member of room that passes the options and
// returns how many connections were targeted. Unknown rooms target nobody.
func (b *Broadcaster) BroadcastToRoom(room domain.RoomID, event string, payload any, opts ...BroadcastOption) int {
	o := collect(opts)

	b.registry.mu.RLock()
	var targets []domain.ConnectionID
	for id := range b.registry.rooms[room] {
		if c := b.registry.conns[id]; c != nil && o.accepts(c) {
			targets = append(targets, id)
		}
	}
	b.registry.mu.RUnlock()

	b.deliver(targets, event, payload)
	b.registry.metrics.Broadcast(domain.TargetRoom, len(targets))
	return len(targets)
}

// BroadcastToAdmins sends event to every admin or super-admin connection, whatever rooms
// they are in, and returns how many connections were targeted.
func (b *Broadcaster) BroadcastToAdmins(event string, payload any, opts ...BroadcastOption) int {
	o := collect(opts)

	b.registry.mu.RLock()
	var targets []domain.ConnectionID
	for id, c := range b.registry.conns {
		if c.identity.Role.IsAdmin() && o.accepts(c) {
			targets = append(targets, id)
		}
	}
	b.registry.mu.RUnlock()

	b.deliver(targets, event, payload)
	b.registry.metrics.Broadcast(domain.TargetAdmins, len(targets))
	return len(targets)
}

// deliver sends to each target independently. A failed send is logged and counted,
// it never stops delivery to the remaining targets.
func (b *Broadcaster) deliver(targets []domain.ConnectionID, event string, payload any) {
	for _, id := range targets {
		if err := b.sender.Send(id, event, payload); err != nil {
			b.registry.metrics.SendFailed()
			slog.Debug("Broadcast send failed", "connection_id", id, "event", event, "error", err)
		}
	}
}

func collect(opts []BroadcastOption) broadcastOptions {
	var o broadcastOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
