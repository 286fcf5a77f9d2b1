package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Room is a bookable unit owned by a business. Its status is a derived
// projection over active bookings and blocks, computed on demand; nothing in
// this row is authoritative about availability.
type Room struct {
	ID         uuid.UUID        `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	BusinessID uuid.UUID        `gorm:"column:business_id;type:uuid;not null"`
	Name       string           `gorm:"column:name;not null"`
	NightlyRate decimal.Decimal `gorm:"column:nightly_rate;type:numeric(12,2);not null"`
	HourlyRate  *decimal.Decimal `gorm:"column:hourly_rate;type:numeric(12,2)"`
	Notes      *string          `gorm:"column:notes"`
	CreatedAt  time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}
