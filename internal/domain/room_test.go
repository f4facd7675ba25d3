package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoomID_Parse(t *testing.T) {
	tests := []struct {
		room   RoomID
		kind   RoomKind
		target string
	}{
		{GlobalRoom, RoomKindGlobal, ""},
		{AdminsRoom, RoomKindAdmins, ""},
		{AdminRoom("a1"), RoomKindAdmin, "a1"},
		{UserRoom("u-42"), RoomKindUser, "u-42"},
		{ChatRoom("s1"), RoomKindChat, "s1"},
		{"administrators", RoomKindOther, ""},
		{"lobby", RoomKindOther, ""},
	}
	for _, tt := range tests {
		t.Run(string(tt.room), func(t *testing.T) {
			kind, target := tt.room.Parse()
			assert.Equal(t, tt.kind, kind)
			assert.Equal(t, tt.target, target)
		})
	}
}

func TestRoleFilter(t *testing.T) {
	admin := ConnectionInfo{Role: RoleAdmin}
	user := ConnectionInfo{Role: RoleUser}

	assert.True(t, RoleFilter()(user))
	assert.True(t, RoleFilter(RoleAdmin)(admin))
	assert.False(t, RoleFilter(RoleAdmin, RoleSuperAdmin)(user))
}

func TestStats_RoomsOf(t *testing.T) {
	s := Stats{Rooms: map[RoomID][]ConnectionID{
		"global": {"c1", "c2"},
		"user-1": {"c1"},
	}}

	assert.ElementsMatch(t, []RoomID{"global", "user-1"}, s.RoomsOf("c1"))
	assert.Equal(t, []RoomID{"global"}, s.RoomsOf("c2"))
	assert.Nil(t, s.RoomsOf("c3"))
	assert.Nil(t, s.Members("missing"))
}
