package registry

import (
	"errors"
	"slices"
	"sync"
	"testing"

	"github.com/pscheid92/roomhub/internal/domain"
	"github.com/stretchr/testify/require"
)

type sentMessage struct {
	id      domain.ConnectionID
	event   string
	payload any
}

// fakeSender records every send. Connections listed in fail return an error.
type fakeSender struct {
	mu   sync.Mutex
	sent []sentMessage
	fail map[domain.ConnectionID]bool
}

var errSendFailed = errors.New("send failed")

func (f *fakeSender) Send(id domain.ConnectionID, event string, payload any) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.fail[id] {
		return errSendFailed
	}
	f.sent = append(f.sent, sentMessage{id: id, event: event, payload: payload})
	return nil
}

func (f *fakeSender) recipients() []domain.ConnectionID {
	f.mu.Lock()
	defer f.mu.Unlock()

	ids := make([]domain.ConnectionID, 0, len(f.sent))
	for _, m := range f.sent {
		ids = append(ids, m.id)
	}
	slices.Sort(ids)
	return ids
}

type recordingMetrics struct {
	noopMetrics
	mu         sync.Mutex
	duplicates int
	denied     []domain.RoomKind
	sendFailed int
	evicted    int
}

func (m *recordingMetrics) DuplicateRegistration() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.duplicates++
}

func (m *recordingMetrics) JoinDenied(kind domain.RoomKind) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.denied = append(m.denied, kind)
}

func (m *recordingMetrics) SendFailed() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sendFailed++
}

func (m *recordingMetrics) Evicted(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.evicted += n
}

func user(id, conversation string) domain.Identity {
	return domain.Identity{UserID: id, Role: domain.RoleUser, ConversationID: conversation}
}

func admin(id string) domain.Identity {
	return domain.Identity{UserID: id, Role: domain.RoleAdmin}
}

func mustRegister(t *testing.T, r *Registry, id domain.ConnectionID, identity domain.Identity) {
	t.Helper()
	require.NoError(t, r.Register(id, identity))
}

// requireConsistent checks that the three tables agree with each other.
func requireConsistent(t *testing.T, r *Registry) {
	t.Helper()

	r.mu.RLock()
	defer r.mu.RUnlock()

	for id, c := range r.conns {
		require.Equal(t, id, c.id)
		require.True(t, r.identities.has(c.identity.UserID, id), "connection %s missing from identity index", id)

		seen := make(map[domain.RoomID]bool)
		for _, room := range c.rooms {
			require.False(t, seen[room], "connection %s lists room %s twice", id, room)
			seen[room] = true
			require.True(t, r.rooms.has(room, id), "connection %s lists %s but is not a member", id, room)
		}
	}

	for room, members := range r.rooms {
		require.NotEmpty(t, members, "empty room %s", room)
		for id := range members {
			c, ok := r.conns[id]
			require.True(t, ok, "room %s references unknown connection %s", room, id)
			require.Contains(t, c.rooms, room)
		}
	}

	for userID, conns := range r.identities {
		require.NotEmpty(t, conns, "empty identity %s", userID)
		for id := range conns {
			c, ok := r.conns[id]
			require.True(t, ok, "identity %s references unknown connection %s", userID, id)
			require.Equal(t, userID, c.identity.UserID)
		}
	}
}
