package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/viatura/viatura-backend/pkg/enums"
)

// RoomBlock makes a room unavailable over a half-open window, independent of
// any booking. Cancelled blocks stay on the row for audit.
type RoomBlock struct {
	ID          uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	RoomID      uuid.UUID         `gorm:"column:room_id;type:uuid;not null;index"`
	StartsAt    time.Time         `gorm:"column:starts_at;not null"`
	EndsAt      time.Time         `gorm:"column:ends_at;not null"`
	Reason      string            `gorm:"column:reason;not null"`
	Status      enums.BlockStatus `gorm:"column:status;type:block_status;not null;default:'active'"`
	CreatedBy   uuid.UUID         `gorm:"column:created_by;type:uuid;not null"`
	CancelledAt *time.Time        `gorm:"column:cancelled_at"`
	CreatedAt   time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}
