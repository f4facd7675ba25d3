package domain

// Sender delivers one event to one connection. Delivery is fire-and-forget:
// a nil error means the message was handed to the transport, not that the client received it.
type Sender interface {
	Send(id ConnectionID, event string, payload any) error
}

// OpenEvent is emitted by a transport when a connection has been established.
type OpenEvent struct {
	ConnectionID ConnectionID
	Identity     Identity
}

// RoomAction is the kind of room request a client sent.
type RoomAction string

const (
	RoomActionJoin  RoomAction = "join-room"
	RoomActionLeave RoomAction = "leave-room"
)

// RoomRequest is an inbound join or leave request from a connection.
type RoomRequest struct {
	ConnectionID ConnectionID
	Action       RoomAction
	Room         RoomID
}

// Transport is the minimal capability the registry needs from a full-duplex,
// message-based connection layer.
type Transport interface {
	Sender
	OnOpen(handler func(OpenEvent))
	OnClose(handler func(ConnectionID))
	OnRoomRequest(handler func(RoomRequest))
	Disconnect(id ConnectionID)
}
