package rooms

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/viatura/viatura-backend/pkg/db/models"
	"github.com/viatura/viatura-backend/pkg/enums"
)

// RoomDTO is the API projection of a room.
type RoomDTO struct {
	ID          uuid.UUID        `json:"id"`
	BusinessID  uuid.UUID        `json:"business_id"`
	Name        string           `json:"name"`
	NightlyRate decimal.Decimal  `json:"nightly_rate"`
	HourlyRate  *decimal.Decimal `json:"hourly_rate,omitempty"`
	Notes       *string          `json:"notes,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

// BlockDTO is the API projection of a room block.
type BlockDTO struct {
	ID          uuid.UUID         `json:"id"`
	RoomID      uuid.UUID         `json:"room_id"`
	StartsAt    time.Time         `json:"starts_at"`
	EndsAt      time.Time         `json:"ends_at"`
	Reason      string            `json:"reason"`
	Status      enums.BlockStatus `json:"status"`
	CreatedBy   uuid.UUID         `json:"created_by"`
	CancelledAt *time.Time        `json:"cancelled_at,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
}

// NewRoomDTO maps a room row to its API shape.
func NewRoomDTO(room *models.Room) *RoomDTO {
	if room == nil {
		return nil
	}
	return &RoomDTO{
		ID:          room.ID,
		BusinessID:  room.BusinessID,
		Name:        room.Name,
		NightlyRate: room.NightlyRate,
		HourlyRate:  room.HourlyRate,
		Notes:       room.Notes,
		CreatedAt:   room.CreatedAt,
		UpdatedAt:   room.UpdatedAt,
	}
}

// NewBlockDTO maps a block row to its API shape.
func NewBlockDTO(block *models.RoomBlock) *BlockDTO {
	if block == nil {
		return nil
	}
	return &BlockDTO{
		ID:          block.ID,
		RoomID:      block.RoomID,
		StartsAt:    block.StartsAt,
		EndsAt:      block.EndsAt,
		Reason:      block.Reason,
		Status:      block.Status,
		CreatedBy:   block.CreatedBy,
		CancelledAt: block.CancelledAt,
		CreatedAt:   block.CreatedAt,
	}
}
