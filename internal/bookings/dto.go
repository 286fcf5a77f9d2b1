package bookings

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/viatura/viatura-backend/pkg/db/models"
	"github.com/viatura/viatura-backend/pkg/enums"
)

// BookingDTO is the API projection of a booking. The arrival code is only
// exposed once the business has accepted.
type BookingDTO struct {
	ID                uuid.UUID          `json:"id"`
	RoomID            uuid.UUID          `json:"room_id"`
	GuestID           uuid.UUID          `json:"guest_id"`
	CheckIn           time.Time          `json:"check_in"`
	CheckOut          time.Time          `json:"check_out"`
	Status            enums.OrderStatus  `json:"status"`
	ArrivalCode       *string            `json:"arrival_code,omitempty"`
	TotalAmount       decimal.Decimal    `json:"total_amount"`
	ConfirmedAt       *time.Time         `json:"confirmed_at,omitempty"`
	CustomerArrivedAt *time.Time         `json:"customer_arrived_at,omitempty"`
	CancelledAt       *time.Time         `json:"cancelled_at,omitempty"`
	CancelledBy       *enums.CancelActor `json:"cancelled_by,omitempty"`
	NoShowAt          *time.Time         `json:"no_show_at,omitempty"`
	CreatedAt         time.Time          `json:"created_at"`
	UpdatedAt         time.Time          `json:"updated_at"`
}

// NewBookingDTO maps a booking row to its API shape.
func NewBookingDTO(booking *models.Booking) *BookingDTO {
	if booking == nil {
		return nil
	}
	dto := &BookingDTO{
		ID:                booking.ID,
		RoomID:            booking.RoomID,
		GuestID:           booking.GuestID,
		CheckIn:           booking.CheckIn,
		CheckOut:          booking.CheckOut,
		Status:            booking.Status,
		TotalAmount:       booking.TotalAmount,
		ConfirmedAt:       booking.ConfirmedAt,
		CustomerArrivedAt: booking.CustomerArrivedAt,
		CancelledAt:       booking.CancelledAt,
		CancelledBy:       booking.CancelledBy,
		NoShowAt:          booking.NoShowAt,
		CreatedAt:         booking.CreatedAt,
		UpdatedAt:         booking.UpdatedAt,
	}
	if booking.Status == enums.OrderStatusAccepted {
		dto.ArrivalCode = booking.ArrivalCode
	}
	return dto
}
