package domain

import "strings"

// RoomID names a broadcast channel. The naming convention encodes who may join:
//
//	global              every connection
//	admins              all admin and super-admin connections
//	admin-<userID>      personal room of one admin
//	user-<userID>       personal room of one end user
//	chat-<conversation> one room per conversation
type RoomID string

const (
	GlobalRoom RoomID = "global"
	AdminsRoom RoomID = "admins"

	adminRoomPrefix = "admin-"
	userRoomPrefix  = "user-"
	chatRoomPrefix  = "chat-"
)

// RoomKind classifies a RoomID by its naming convention.
type RoomKind int

const (
	RoomKindOther RoomKind = iota
	RoomKindGlobal
	RoomKindAdmins
	RoomKindAdmin
	RoomKindUser
	RoomKindChat
)

func (k RoomKind) String() string {
	switch k {
	case RoomKindGlobal:
		return "global"
	case RoomKindAdmins:
		return "admins"
	case RoomKindAdmin:
		return "admin"
	case RoomKindUser:
		return "user"
	case RoomKindChat:
		return "chat"
	case RoomKindOther:
		return "other"
	default:
		return "other"
	}
}

func AdminRoom(userID string) RoomID { return RoomID(adminRoomPrefix + userID) }

func UserRoom(userID string) RoomID { return RoomID(userRoomPrefix + userID) }

func ChatRoom(conversationID string) RoomID { return RoomID(chatRoomPrefix + conversationID) }

// Parse splits a room id into its kind and encoded target (user or conversation id).
// The target is empty for global, admins and unrecognized rooms.
func (r RoomID) Parse() (RoomKind, string) {
	s := string(r)
	switch {
	case r == GlobalRoom:
		return RoomKindGlobal, ""
	case r == AdminsRoom:
		return RoomKindAdmins, ""
	case strings.HasPrefix(s, adminRoomPrefix):
		return RoomKindAdmin, strings.TrimPrefix(s, adminRoomPrefix)
	case strings.HasPrefix(s, userRoomPrefix):
		return RoomKindUser, strings.TrimPrefix(s, userRoomPrefix)
	case strings.HasPrefix(s, chatRoomPrefix):
		return RoomKindChat, strings.TrimPrefix(s, chatRoomPrefix)
	default:
		return RoomKindOther, ""
	}
}

func (r RoomID) String() string { return string(r) }
