package chathub

import (
	"time"

	"github.com/google/uuid"
)

// Room is an active two-party session. Exactly two distinct members, always.
type Room struct {
	ID        string
	Members   [2]string
	StartedAt time.Time
}

// Other returns the member that is not userID. ok is false when userID is
// not a member at all.
func (r *Room) Other(userID string) (string, bool) {
	switch userID {
	case r.Members[0]:
		return r.Members[1], true
	case r.Members[1]:
		return r.Members[0], true
	}
	return "", false
}

// RoomDirectory keeps the forward (room -> members) and reverse
// (user -> room) indexes consistent as a unit: both are updated in the same
// call or neither is. Guarded by the hub's mutex.
type RoomDirectory struct {
	rooms  map[string]*Room
	byUser map[string]string
}

func NewRoomDirectory() *RoomDirectory {
	return &RoomDirectory{
		rooms:  make(map[string]*Room),
		byUser: make(map[string]string),
	}
}

// Create opens a room for two distinct users and installs the forward entry
// plus both reverse entries.
func (d *RoomDirectory) Create(userA, userB string) *Room {
	room := &Room{
		ID:        uuid.New().String(),
		Members:   [2]string{userA, userB},
		StartedAt: time.Now(),
	}
	d.rooms[room.ID] = room
	d.byUser[userA] = room.ID
	d.byUser[userB] = room.ID
	return room
}

// RoomOf returns the user's current room, if any.
func (d *RoomDirectory) RoomOf(userID string) (*Room, bool) {
	roomID, ok := d.byUser[userID]
	if !ok {
		return nil, false
	}
	room, ok := d.rooms[roomID]
	return room, ok
}

// PartnerOf returns the other member of the user's current room.
func (d *RoomDirectory) PartnerOf(userID string) (string, bool) {
	room, ok := d.RoomOf(userID)
	if !ok {
		return "", false
	}
	return room.Other(userID)
}

// Delete removes both reverse entries and then the forward entry. A no-op
// for an unknown room id, which makes the double-delete during a
// disconnect / find-new-partner race safe.
func (d *RoomDirectory) Delete(roomID string) *Room {
	room, ok := d.rooms[roomID]
	if !ok {
		return nil
	}
	for _, member := range room.Members {
		// The member may already point at a newer room; only clear a
		// reverse entry that still references the room being deleted.
		if d.byUser[member] == roomID {
			delete(d.byUser, member)
		}
	}
	delete(d.rooms, roomID)
	return room
}

func (d *RoomDirectory) Count() int {
	return len(d.rooms)
}
