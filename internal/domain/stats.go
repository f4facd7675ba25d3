package domain

// Stats is a point-in-time snapshot of the registry for operational dashboards.
type Stats struct {
	TotalConnections int                       `json:"total_connections"`
	TotalRooms       int                       `json:"total_rooms"`
	TotalIdentities  int                       `json:"total_identities"`
	RoleBreakdown    map[string]int            `json:"role_breakdown"`
	Rooms            map[RoomID][]ConnectionID `json:"rooms"`
}

// Members returns the member ids of room, or nil when the room does not exist.
func (s Stats) Members(room RoomID) []ConnectionID {
	return s.Rooms[room]
}

// RoomsOf returns the rooms that list id as a member.
func (s Stats) RoomsOf(id ConnectionID) []RoomID {
	var rooms []RoomID
	for room, members := range s.Rooms {
		for _, m := range members {
			if m == id {
				rooms = append(rooms, room)
				break
			}
		}
	}
	return rooms
}
