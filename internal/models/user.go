package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User is the persistent account table. The chat core never reads it; it is
// kept at the storage boundary for deployments that want registered
// accounts alongside the anonymous flow.
type User struct {
	ID       string `gorm:"primaryKey" json:"id"`
	Username string `gorm:"uniqueIndex;not null" json:"username"`
	Password string `gorm:"not null" json:"-"`
}

// BeforeCreate is a GORM hook that assigns a fresh UUID when none is set.
func (u *User) BeforeCreate(tx *gorm.DB) (err error) {
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	return
}
