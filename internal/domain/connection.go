package domain

import "time"

// ConnectionID identifies one live transport session. It is assigned by the transport
// and unique for the lifetime of the process.
type ConnectionID string

// Identity is what the transport knows about a connection when it opens.
// It is assumed to come from an already validated credential.
type Identity struct {
	UserID         string
	Role           Role
	ConversationID string
}

// ConnectionInfo is a read-only view of a registered connection.
type ConnectionInfo struct {
	ID             ConnectionID `json:"id"`
	UserID         string       `json:"user_id"`
	Role           Role         `json:"role"`
	ConversationID string       `json:"conversation_id,omitempty"`
	JoinedAt       time.Time    `json:"joined_at"`
	Rooms          []RoomID     `json:"rooms"`
}

// Filter decides per recipient whether a broadcast is delivered.
type Filter func(ConnectionInfo) bool

// RoleFilter returns a Filter accepting connections whose role is one of roles.
// With no roles every connection is accepted.
func RoleFilter(roles ...Role) Filter {
	if len(roles) == 0 {
		return func(ConnectionInfo) bool { return true }
	}
	return func(c ConnectionInfo) bool {
		for _, r := range roles {
			if c.Role == r {
				return true
			}
		}
		return false
	}
}
