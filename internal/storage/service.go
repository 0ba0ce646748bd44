package storage

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"campuschat/internal/models"
)

// activeRoomsKey is the redis set mirroring currently open rooms, for
// operational visibility across restarts. It is not a source of truth.
const activeRoomsKey = "rooms:active"

// Service implements Recorder and UserStore on top of PostgreSQL (gorm)
// and redis. Either backend may be absent; the corresponding writes become
// no-ops so a bare in-memory deployment needs no configuration at all.
type Service struct {
	DB    *gorm.DB
	Redis *redis.Client
	Ctx   context.Context
}

func NewService(db *gorm.DB, rdb *redis.Client) *Service {
	return &Service{
		DB:    db,
		Redis: rdb,
		Ctx:   context.Background(),
	}
}

// RoomOpened persists the room row and adds it to the active set.
func (s *Service) RoomOpened(room *models.ChatRoom) error {
	if s.DB != nil {
		if err := s.DB.Create(room).Error; err != nil {
			return err
		}
	}
	if s.Redis != nil {
		if err := s.Redis.SAdd(s.Ctx, activeRoomsKey, room.RoomID).Err(); err != nil {
			return err
		}
	}
	return nil
}

// RoomClosed marks the row inactive and drops it from the active set.
func (s *Service) RoomClosed(roomID string) error {
	if s.DB != nil {
		err := s.DB.Model(&models.ChatRoom{}).
			Where("room_id = ?", roomID).
			Updates(map[string]interface{}{
				"is_active": false,
				"ended_at":  time.Now(),
			}).Error
		if err != nil {
			return err
		}
	}
	if s.Redis != nil {
		if err := s.Redis.SRem(s.Ctx, activeRoomsKey, roomID).Err(); err != nil {
			return err
		}
	}
	return nil
}

// ActiveRoomIDs returns the mirrored set of open rooms.
func (s *Service) ActiveRoomIDs() ([]string, error) {
	if s.Redis == nil {
		return nil, nil
	}
	return s.Redis.SMembers(s.Ctx, activeRoomsKey).Result()
}

func (s *Service) CreateUser(user *models.User) error {
	if s.DB == nil {
		return gorm.ErrInvalidDB
	}
	return s.DB.Create(user).Error
}

func (s *Service) UserByUsername(username string) (*models.User, error) {
	if s.DB == nil {
		return nil, gorm.ErrInvalidDB
	}
	var user models.User
	if err := s.DB.Where("username = ?", username).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}
