// Package storage is the persistence boundary of the server. The chat core
// is fully in-memory and never waits on this package; the recorder exists
// for deployments that want a history of sessions and a registered-account
// table next to the anonymous flow.
package storage

import "campuschat/internal/models"

// Recorder receives best-effort notifications about room lifecycle. The hub
// calls it off the hot path and ignores failures.
type Recorder interface {
	RoomOpened(room *models.ChatRoom) error
	RoomClosed(roomID string) error
}

// UserStore is the CRUD surface of the persistent account table. Nothing in
// the chat core reads it.
type UserStore interface {
	CreateUser(user *models.User) error
	UserByUsername(username string) (*models.User, error)
}
