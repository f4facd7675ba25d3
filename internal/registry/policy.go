package registry

import (
	"fmt"

	"github.com/pscheid92/roomhub/internal/domain"
)

// authorize applies the join policy for explicit room requests.
func authorize(identity domain.Identity, room domain.RoomID) error {
	kind, target := room.Parse()

	switch kind {
	case domain.RoomKindGlobal:
		return nil
	case domain.RoomKindAdmins, domain.RoomKindAdmin:
		if identity.Role.IsAdmin() {
			return nil
		}
	case domain.RoomKindUser:
		if identity.UserID == target {
			return nil
		}
	case domain.RoomKindChat:
		if identity.Role.IsAdmin() {
			return nil
		}
		if identity.ConversationID != "" && identity.ConversationID == target {
			return nil
		}
	case domain.RoomKindOther:
		// Rooms outside the naming scheme are open. Callers relying on them for
		// privacy need their own check.
		return nil
	}

	return fmt.Errorf("%w: %s may not join %s", domain.ErrUnauthorized, identity.Role, room)
}
