package models

import "time"

// ChatUser is the ephemeral profile built when a user joins the waiting
// pool. It lives only as long as the connection and is never persisted.
type ChatUser struct {
	ID         string
	Nickname   string
	Department string
	IsTyping   bool
}

// ChatRoom is the persisted record of a 1-on-1 chat session. The live room
// state is owned by the hub's session directory; this row exists only so
// the optional storage recorder can keep a history of sessions.
type ChatRoom struct {
	// RoomID is the unique identifier for the chat room (UUID).
	RoomID string `gorm:"primaryKey"`
	// User1ID is the anonymous ID of the first user in the room.
	User1ID string
	// User2ID is the anonymous ID of the second user in the room.
	User2ID string
	// IsActive indicates whether the chat room is currently active.
	IsActive bool
	// StartedAt is the timestamp when the chat room was created.
	StartedAt time.Time
	// EndedAt is the timestamp when the chat room was closed.
	EndedAt time.Time
}
