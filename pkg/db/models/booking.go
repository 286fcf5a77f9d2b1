package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/viatura/viatura-backend/pkg/enums"
)

// Booking reserves a room for a guest over [CheckIn, CheckOut). It moves
// through the same lifecycle states as an order, except arrival confirmation
// is accepted directly from the accepted state.
type Booking struct {
	ID                 uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	RoomID             uuid.UUID          `gorm:"column:room_id;type:uuid;not null;index"`
	GuestID            uuid.UUID          `gorm:"column:guest_id;type:uuid;not null;index"`
	CheckIn            time.Time          `gorm:"column:check_in;not null"`
	CheckOut           time.Time          `gorm:"column:check_out;not null"`
	Status             enums.OrderStatus  `gorm:"column:status;type:order_status;not null;default:'pending'"`
	ArrivalCode        *string            `gorm:"column:arrival_code"`
	ArrivalCodeIssuedAt *time.Time        `gorm:"column:arrival_code_issued_at"`
	TotalAmount        decimal.Decimal    `gorm:"column:total_amount;type:numeric(12,2);not null"`
	ConfirmedAt        *time.Time         `gorm:"column:confirmed_at"`
	CustomerArrivedAt  *time.Time         `gorm:"column:customer_arrived_at"`
	CancelledAt        *time.Time         `gorm:"column:cancelled_at"`
	CancellationReason *string            `gorm:"column:cancellation_reason"`
	CancelledBy        *enums.CancelActor `gorm:"column:cancelled_by;type:cancel_actor"`
	NoShowAt           *time.Time         `gorm:"column:no_show_at"`
	RefundAmount       *decimal.Decimal   `gorm:"column:refund_amount;type:numeric(12,2)"`
	RefundID           *uuid.UUID         `gorm:"column:refund_id;type:uuid"`
	CreatedAt          time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}
