package registry

import (
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/roomhub/internal/domain"
)

// Metrics receives registry events. Implementations must be safe for concurrent use
// and must not call back into the registry.
type Metrics interface {
	ConnectionRegistered(role domain.Role)
	ConnectionUnregistered(role domain.Role)
	DuplicateRegistration()
	JoinDenied(kind domain.RoomKind)
	Tables(connections, rooms, identities int)
	Broadcast(target domain.BroadcastTarget, targeted int)
	SendFailed()
	Evicted(n int)
}

type noopMetrics struct{}

func (noopMetrics) ConnectionRegistered(domain.Role) {}
func (noopMetrics) ConnectionUnregistered(domain.Role) {}
func (noopMetrics) DuplicateRegistration() {}
func (noopMetrics) JoinDenied(domain.RoomKind) {}
func (noopMetrics) Tables(int, int, int) {}
func (noopMetrics) Broadcast(domain.BroadcastTarget, int) {}
func (noopMetrics) SendFailed() {}
func (noopMetrics) Evicted(int) {}

type connection struct {
	id       domain.ConnectionID
	identity domain.Identity
	joinedAt time.Time
	rooms    []domain.RoomID
}

func (c *connection) info() domain.ConnectionInfo {
	return domain.ConnectionInfo{
		ID:             c.id,
		UserID:         c.identity.UserID,
		Role:           c.identity.Role,
		ConversationID: c.identity.ConversationID,
		JoinedAt:       c.joinedAt,
		Rooms:          slices.Clone(c.rooms),
	}
}

func (c *connection) dropRoom(room domain.RoomID) {
	if i := slices.Index(c.rooms, room); i >= 0 {
		c.rooms = slices.Delete(c.rooms, i, i+1)
	}
}

// Registry is the membership manager. Construct one per process (or per test) with New.
type Registry struct {
	mu         sync.RWMutex
	conns      map[domain.ConnectionID]*connection
	rooms      index[domain.RoomID, domain.ConnectionID]
	identities index[string, domain.ConnectionID]

	sweepMu sync.Mutex

	clock   clockwork.Clock
	metrics Metrics
	onEvict func(domain.ConnectionID)
}

type Option func(*Registry)

func WithClock(clock clockwork.Clock) Option {
	return func(r *Registry) { r.clock = clock }
}

func WithMetrics(m Metrics) Option {
	return func(r *Registry) { r.metrics = m }
}

// WithEvictionHook registers fn to be called for every connection removed by Sweep.
// It runs outside the registry lock, typically to close the underlying socket.
func WithEvictionHook(fn func(domain.ConnectionID)) Option {
	return func(r *Registry) { r.onEvict = fn }
}

func New(opts ...Option) *Registry {
	r := &Registry{
		conns:      make(map[domain.ConnectionID]*connection),
		rooms:      make(index[domain.RoomID, domain.ConnectionID]),
		identities: make(index[string, domain.ConnectionID]),
		clock:      clockwork.NewRealClock(),
		metrics:    noopMetrics{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register binds a fresh connection to an identity and runs the auto-join policy.
// Registering an id that is already known returns domain.ErrDuplicateConnection and
// leaves the existing entry untouched.
func (r *Registry) Register(id domain.ConnectionID, identity domain.Identity) error {
	if id == "" || identity.UserID == "" {
		return fmt.Errorf("register: %w: connection and user id must be set", domain.ErrInvalidIdentity)
	}
	if !identity.Role.Valid() {
		return fmt.Errorf("register: %w: role %s", domain.ErrInvalidIdentity, identity.Role)
	}

	r.mu.Lock()
	if _, exists := r.conns[id]; exists {
		r.mu.Unlock()
		slog.Error("Duplicate connection registration", "connection_id", id, "user_id", identity.UserID)
		r.metrics.DuplicateRegistration()
		return fmt.Errorf("register %s: %w", id, domain.ErrDuplicateConnection)
	}

	c := &connection{id: id, identity: identity, joinedAt: r.clock.Now()}
	r.conns[id] = c
	r.identities.add(identity.UserID, id)
	for _, room := range autoJoinRooms(identity) {
		r.joinLocked(c, room)
	}
	rooms := slices.Clone(c.rooms)
	r.publishTablesLocked()
	r.mu.Unlock()

	r.metrics.ConnectionRegistered(identity.Role)
	slog.Debug("Connection registered",
		"connection_id", id,
		"user_id", identity.UserID,
		"role", identity.Role.String(),
		"rooms", rooms,
	)
	return nil
}

// Unregister removes a connection from every room, from its identity and from the
// connection table. Unknown ids are ignored so disconnect races stay harmless.
func (r *Registry) Unregister(id domain.ConnectionID) {
	r.unregister(id)
}

func (r *Registry) unregister(id domain.ConnectionID) bool {
	r.mu.Lock()
	c, ok := r.conns[id]
	if !ok {
		r.mu.Unlock()
		return false
	}
	for _, room := range c.rooms {
		r.rooms.remove(room, id)
	}
	r.identities.remove(c.identity.UserID, id)
	delete(r.conns, id)
	r.publishTablesLocked()
	r.mu.Unlock()

	r.metrics.ConnectionUnregistered(c.identity.Role)
	slog.Debug("Connection unregistered", "connection_id", id, "user_id", c.identity.UserID)
	return true
}

// Connection returns a snapshot of a registered connection.
func (r *Registry) Connection(id domain.ConnectionID) (domain.ConnectionInfo, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.conns[id]
	if !ok {
		return domain.ConnectionInfo{}, false
	}
	return c.info(), true
}

// IdentityConnections returns the connections currently representing userID, sorted.
// An offline identity yields nil.
func (r *Registry) IdentityConnections(userID string) []domain.ConnectionID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.identities.members(userID)
}

func (r *Registry) publishTablesLocked() {
	r.metrics.Tables(len(r.conns), len(r.rooms), len(r.identities))
}
