package domain

import "encoding/json"

// BroadcastTarget selects the fan-out strategy of a Broadcast.
type BroadcastTarget string

const (
	TargetRoom   BroadcastTarget = "room"
	TargetAdmins BroadcastTarget = "admins"
)

// Broadcast is an application-level fan-out request. It is serializable so it can be
// relayed to other instances.
type Broadcast struct {
	Target  BroadcastTarget `json:"target"`
	Room    RoomID          `json:"room,omitempty"`
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload,omitempty"`
	Exclude ConnectionID    `json:"exclude,omitempty"`
	Roles   []Role          `json:"roles,omitempty"`
}
