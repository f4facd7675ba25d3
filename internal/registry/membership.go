package registry

import (
	"log/slog"

	"github.com/pscheid92/roomhub/internal/domain"
)

// autoJoinRooms lists the rooms a connection joins at registration, in join order.
func autoJoinRooms(identity domain.Identity) []domain.RoomID {
	rooms := []domain.RoomID{domain.GlobalRoom}

	switch identity.Role {
	case domain.RoleAdmin, domain.RoleSuperAdmin:
		rooms = append(rooms, domain.AdminsRoom, domain.AdminRoom(identity.UserID))
	case domain.RoleUser:
		rooms = append(rooms, domain.UserRoom(identity.UserID))
		if identity.ConversationID != "" {
			rooms = append(rooms, domain.ChatRoom(identity.ConversationID))
		}
	}
	return rooms
}

// JoinRoom subscribes a connection to room. It fails closed: unknown connections and,
// when enforcePolicy is set, joins rejected by the authorization policy return false.
// Joining a room the connection already belongs to returns true without changes.
func (r *Registry) JoinRoom(id domain.ConnectionID, room domain.RoomID, enforcePolicy bool) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.conns[id]
	if !ok {
		slog.Debug("Join for unknown connection", "connection_id", id, "room", room)
		return false
	}

	if enforcePolicy {
		if err := authorize(c.identity, room); err != nil {
			kind, _ := room.Parse()
			r.metrics.JoinDenied(kind)
			slog.Warn("Room join denied",
				"connection_id", id,
				"user_id", c.identity.UserID,
				"room", room,
				"error", err,
			)
			return false
		}
	}

	if r.joinLocked(c, room) {
		r.publishTablesLocked()
		slog.Debug("Connection joined room", "connection_id", id, "room", room)
	}
	return true
}

// LeaveRoom removes a connection from room. It returns false when the connection is not
// a member, including unknown connections and rooms.
func (r *Registry) LeaveRoom(id domain.ConnectionID, room domain.RoomID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.conns[id]
	if !ok || !r.rooms.remove(room, id) {
		return false
	}
	c.dropRoom(room)
	r.publishTablesLocked()

	slog.Debug("Connection left room", "connection_id", id, "room", room)
	return true
}

// joinLocked links c and room in both directions. Reports whether anything changed.
func (r *Registry) joinLocked(c *connection, room domain.RoomID) bool {
	if !r.rooms.add(room, c.id) {
		return false
	}
	c.rooms = append(c.rooms, room)
	return true
}
