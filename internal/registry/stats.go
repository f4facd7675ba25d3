package registry

import "github.com/pscheid92/roomhub/internal/domain"

// Stats returns a consistent snapshot of all three tables. Member lists are sorted.
func (r *Registry) Stats() domain.Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s := domain.Stats{
		TotalConnections: len(r.conns),
		TotalRooms:       len(r.rooms),
		TotalIdentities:  len(r.identities),
		RoleBreakdown:    make(map[string]int, len(domain.Roles)),
		Rooms:            make(map[domain.RoomID][]domain.ConnectionID, len(r.rooms)),
	}
	for _, role := range domain.Roles {
		s.RoleBreakdown[role.String()] = 0
	}
	for _, c := range r.conns {
		s.RoleBreakdown[c.identity.Role.String()]++
	}
	for room := range r.rooms {
		s.Rooms[room] = r.rooms.members(room)
	}
	return s
}
