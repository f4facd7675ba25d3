// Package websocket is the gorilla/websocket binding of domain.Transport.
//
// Wire format, server to client:
//
//	{"event": "<name>", "payload": <any>}
//
// Client to server, one JSON object per text frame:
//
//	{"type": "join-room" | "leave-room", "room": "<room id>"}
package websocket

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/roomhub/internal/adapter/metrics"
	"github.com/pscheid92/roomhub/internal/domain"
)

var (
	ErrTooManyConnections = errors.New("too many websocket connections")
	ErrTooManyFromAddress = errors.New("too many websocket connections from one address")
	ErrTransportClosed    = errors.New("websocket transport closed")
)

// ErrorEvent is sent back when a client frame cannot be understood.
const ErrorEvent = "error"

type Config struct {
	MaxConnections int
	// MaxPerAddress limits connections sharing one remote IP. Zero disables the limit.
	MaxPerAddress   int
	MaxMessageBytes int64
	CheckOrigin     func(*http.Request) bool
	Clock           clockwork.Clock
	Metrics         *metrics.WebSocketMetrics
}

type outbound struct {
	Event   string `json:"event"`
	Payload any    `json:"payload,omitempty"`
}

type inbound struct {
	Type domain.RoomAction `json:"type"`
	Room domain.RoomID     `json:"room"`
}

type client struct {
	id     domain.ConnectionID
	addr   string
	conn   *websocket.Conn
	writer *clientWriter
}

type Transport struct {
	upgrader        websocket.Upgrader
	maxConnections  int
	maxPerAddress   int
	maxMessageBytes int64
	clock           clockwork.Clock
	metrics         *metrics.WebSocketMetrics

	mu       sync.RWMutex
	clients   map[domain.ConnectionID]*client
	reserved  int
	addresses map[string]int
	closed    bool

	onOpen        func(domain.OpenEvent)
	onClose       func(domain.ConnectionID)
	onRoomRequest func(domain.RoomRequest)

	readers sync.WaitGroup
}

func NewTransport(cfg Config) *Transport {
	clock := cfg.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Transport{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     cfg.CheckOrigin,
		},
		maxConnections:  cfg.MaxConnections,
		maxPerAddress:   cfg.MaxPerAddress,
		maxMessageBytes: cfg.MaxMessageBytes,
		clock:           clock,
		metrics:         cfg.Metrics,
		clients:         make(map[domain.ConnectionID]*client),
		addresses:       make(map[string]int),
		onOpen:          func(domain.OpenEvent) {},
		onClose:         func(domain.ConnectionID) {},
		onRoomRequest:   func(domain.RoomRequest) {},
	}
}

func (t *Transport) OnOpen(handler func(domain.OpenEvent)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onOpen = handler
}

func (t *Transport) OnClose(handler func(domain.ConnectionID)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onClose = handler
}

func (t *Transport) OnRoomRequest(handler func(domain.RoomRequest)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onRoomRequest = handler
}

// Accept upgrades the request and starts serving the connection for identity.
// It returns once the connection is registered; reading continues in the background.
// ErrTooManyConnections, ErrTooManyFromAddress and ErrTransportClosed are returned before
// any upgrade happens.
func (t *Transport) Accept(w http.ResponseWriter, r *http.Request, identity domain.Identity) error {
	addr := remoteIP(r)
	if err := t.reserve(addr); err != nil {
		t.reject(err)
		return err
	}

	conn, err := t.upgrader.Upgrade(w, r, nil)
	if err != nil {
		t.release(addr)
		t.reject(err)
		return fmt.Errorf("websocket upgrade: %w", err)
	}
	if t.maxMessageBytes > 0 {
		conn.SetReadLimit(t.maxMessageBytes)
	}

	c := &client{
		id:     domain.ConnectionID(uuid.NewString()),
		addr:   addr,
		conn:   conn,
		writer: newClientWriter(conn, t.clock),
	}

	t.mu.Lock()
	t.reserved--
	if t.closed {
		t.releaseAddressLocked(addr)
		t.mu.Unlock()
		c.writer.stopGraceful(websocket.CloseGoingAway, "server shutting down")
		t.reject(ErrTransportClosed)
		return ErrTransportClosed
	}
	t.clients[c.id] = c
	onOpen := t.onOpen
	t.readers.Add(1)
	t.mu.Unlock()

	if t.metrics != nil {
		t.metrics.ActiveConnections.Inc()
	}
	slog.Debug("WebSocket connected", "connection_id", c.id, "user_id", identity.UserID)

	onOpen(domain.OpenEvent{ConnectionID: c.id, Identity: identity})

	go t.readLoop(c)
	return nil
}

// reserve claims a global and a per-address slot. The address slot is held until the
// connection is removed; the global reservation turns into the client entry on success.
func (t *Transport) reserve(addr string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return ErrTransportClosed
	}
	if t.maxConnections > 0 && len(t.clients)+t.reserved >= t.maxConnections {
		return ErrTooManyConnections
	}
	if t.maxPerAddress > 0 && t.addresses[addr] >= t.maxPerAddress {
		return ErrTooManyFromAddress
	}
	t.reserved++
	t.addresses[addr]++
	return nil
}

func (t *Transport) release(addr string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.reserved--
	t.releaseAddressLocked(addr)
}

func (t *Transport) releaseAddressLocked(addr string) {
	if t.addresses[addr] <= 1 {
		delete(t.addresses, addr)
		return
	}
	t.addresses[addr]--
}

func remoteIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func (t *Transport) reject(err error) {
	if t.metrics == nil {
		return
	}
	reason := "upgrade"
	switch {
	case errors.Is(err, ErrTooManyConnections):
		reason = "capacity"
	case errors.Is(err, ErrTooManyFromAddress):
		reason = "address_limit"
	case errors.Is(err, ErrTransportClosed):
		reason = "shutdown"
	}
	t.metrics.Rejected.WithLabelValues(reason).Inc()
}

func (t *Transport) readLoop(c *client) {
	defer t.readers.Done()
	defer t.remove(c)

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				slog.Debug("WebSocket read failed", "connection_id", c.id, "error", err)
			}
			return
		}
		c.writer.extendReadDeadline()

		var msg inbound
		if err := json.Unmarshal(data, &msg); err != nil {
			t.replyError(c, "malformed message")
			continue
		}

		switch msg.Type {
		case domain.RoomActionJoin, domain.RoomActionLeave:
			if msg.Room == "" {
				t.replyError(c, "room is required")
				continue
			}
			t.mu.RLock()
			handler := t.onRoomRequest
			t.mu.RUnlock()
			handler(domain.RoomRequest{ConnectionID: c.id, Action: msg.Type, Room: msg.Room})
		default:
			t.replyError(c, fmt.Sprintf("unknown message type %q", msg.Type))
		}
	}
}

func (t *Transport) replyError(c *client, message string) {
	_ = t.Send(c.id, ErrorEvent, map[string]string{"message": message})
}

// remove forgets c and fires OnClose. It runs exactly once per connection, from its read loop.
func (t *Transport) remove(c *client) {
	t.mu.Lock()
	delete(t.clients, c.id)
	t.releaseAddressLocked(c.addr)
	onClose := t.onClose
	t.mu.Unlock()

	c.writer.stop()
	if t.metrics != nil {
		t.metrics.ActiveConnections.Dec()
	}
	slog.Debug("WebSocket disconnected", "connection_id", c.id)

	onClose(c.id)
}

// Send queues one event for id. It never blocks: a client whose buffer is full is
// disconnected, because it has fallen too far behind to catch up.
func (t *Transport) Send(id domain.ConnectionID, event string, payload any) error {
	t.mu.RLock()
	c, ok := t.clients[id]
	t.mu.RUnlock()
	if !ok {
		return fmt.Errorf("send to %s: %w", id, domain.ErrUnknownConnection)
	}

	data, err := json.Marshal(outbound{Event: event, Payload: payload})
	if err != nil {
		return fmt.Errorf("encode %s event: %w", event, err)
	}

	switch err := c.writer.enqueue(data); {
	case err == nil:
		if t.metrics != nil {
			t.metrics.MessagesSent.Inc()
		}
		return nil
	case errors.Is(err, errBufferFull):
		t.dropped("buffer_full")
		slog.Warn("Disconnecting slow WebSocket client", "connection_id", id)
		go c.writer.stopGraceful(websocket.ClosePolicyViolation, "too slow")
		return fmt.Errorf("send to %s: %w", id, err)
	default:
		t.dropped("closed")
		return fmt.Errorf("send to %s: %w", id, domain.ErrUnknownConnection)
	}
}

func (t *Transport) dropped(reason string) {
	if t.metrics != nil {
		t.metrics.MessagesDropped.WithLabelValues(reason).Inc()
	}
}

// Disconnect closes the connection. OnClose fires once its read loop has ended.
func (t *Transport) Disconnect(id domain.ConnectionID) {
	t.mu.RLock()
	c, ok := t.clients[id]
	t.mu.RUnlock()
	if !ok {
		return
	}
	c.writer.stopGraceful(websocket.CloseNormalClosure, "disconnected by server")
}

// Count returns the number of open connections.
func (t *Transport) Count() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.clients)
}

// Close refuses new connections, closes every open one and waits for their read loops.
func (t *Transport) Close() {
	t.mu.Lock()
	t.closed = true
	clients := make([]*client, 0, len(t.clients))
	for _, c := range t.clients {
		clients = append(clients, c)
	}
	t.mu.Unlock()

	for _, c := range clients {
		c.writer.stopGraceful(websocket.CloseGoingAway, "server shutting down")
	}
	t.readers.Wait()
}

var _ domain.Transport = (*Transport)(nil)
