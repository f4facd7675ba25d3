package app

import (
	"log/slog"

	"github.com/pscheid92/roomhub/internal/adapter/metrics"
	"github.com/pscheid92/roomhub/internal/domain"
	"github.com/pscheid92/roomhub/internal/registry"
)

// RoomAckEvent answers every join or leave request.
const RoomAckEvent = "room-ack"

type roomAck struct {
	Action domain.RoomAction `json:"action"`
	Room   domain.RoomID     `json:"room"`
	OK     bool              `json:"ok"`
}

// Gateway binds a transport to the registry.
type Gateway struct {
	registry  *registry.Registry
	transport domain.Transport
	metrics   *metrics.WebSocketMetrics
}

// NewGateway creates a gateway. wsMetrics may be nil.
func NewGateway(reg *registry.Registry, transport domain.Transport, wsMetrics *metrics.WebSocketMetrics) *Gateway {
	return &Gateway{registry: reg, transport: transport, metrics: wsMetrics}
}

// Bind installs the gateway's handlers on the transport.
func (g *Gateway) Bind() {
	g.transport.OnOpen(g.handleOpen)
	g.transport.OnClose(g.handleClose)
	g.transport.OnRoomRequest(g.handleRoomRequest)
}

func (g *Gateway) handleOpen(e domain.OpenEvent) {
	err := g.registry.Register(e.ConnectionID, e.Identity)
	if err == nil {
		return
	}

	// A connection the registry refuses must not stay open unregistered.
	slog.Warn("Rejecting connection", "connection_id", e.ConnectionID, "user_id", e.Identity.UserID, "error", err)
	g.transport.Disconnect(e.ConnectionID)
}

func (g *Gateway) handleClose(id domain.ConnectionID) {
	g.registry.Unregister(id)
}

func (g *Gateway) handleRoomRequest(req domain.RoomRequest) {
	var ok bool
	switch req.Action {
	case domain.RoomActionJoin:
		ok = g.registry.JoinRoom(req.ConnectionID, req.Room, true)
	case domain.RoomActionLeave:
		ok = g.registry.LeaveRoom(req.ConnectionID, req.Room)
	default:
		slog.Warn("Unknown room action", "connection_id", req.ConnectionID, "action", req.Action)
		return
	}

	if g.metrics != nil {
		g.metrics.RoomRequests.WithLabelValues(string(req.Action), outcome(ok)).Inc()
	}

	ack := roomAck{Action: req.Action, Room: req.Room, OK: ok}
	if err := g.transport.Send(req.ConnectionID, RoomAckEvent, ack); err != nil {
		slog.Debug("Room ack not delivered", "connection_id", req.ConnectionID, "error", err)
	}
}

func outcome(ok bool) string {
	if ok {
		return "ok"
	}
	return "rejected"
}
