package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/viatura/viatura-backend/pkg/enums"
)

// Order is a pickup order against a business's product stock. Monetary fields
// satisfy Subtotal - DiscountAmount + TaxAmount = TotalAmount at all times.
type Order struct {
	ID                   uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	BusinessID           uuid.UUID          `gorm:"column:business_id;type:uuid;not null;index"`
	CustomerID           uuid.UUID          `gorm:"column:customer_id;type:uuid;not null;index"`
	Status               enums.OrderStatus  `gorm:"column:status;type:order_status;not null;default:'pending'"`
	Subtotal             decimal.Decimal    `gorm:"column:subtotal;type:numeric(12,2);not null"`
	DiscountAmount       decimal.Decimal    `gorm:"column:discount_amount;type:numeric(12,2);not null;default:0"`
	TaxAmount            decimal.Decimal    `gorm:"column:tax_amount;type:numeric(12,2);not null;default:0"`
	TotalAmount          decimal.Decimal    `gorm:"column:total_amount;type:numeric(12,2);not null"`
	PickupTime           *time.Time         `gorm:"column:pickup_time"`
	ArrivalCode          *string            `gorm:"column:arrival_code"`
	ArrivalCodeIssuedAt  *time.Time         `gorm:"column:arrival_code_issued_at"`
	ConfirmedAt          *time.Time         `gorm:"column:confirmed_at"`
	PreparationStartedAt *time.Time         `gorm:"column:preparation_started_at"`
	ReadyAt              *time.Time         `gorm:"column:ready_at"`
	PickedUpAt           *time.Time         `gorm:"column:picked_up_at"`
	CancelledAt          *time.Time         `gorm:"column:cancelled_at"`
	CancellationReason   *string            `gorm:"column:cancellation_reason"`
	CancelledBy          *enums.CancelActor `gorm:"column:cancelled_by;type:cancel_actor"`
	NoShowAt             *time.Time         `gorm:"column:no_show_at"`
	RefundAmount         *decimal.Decimal   `gorm:"column:refund_amount;type:numeric(12,2)"`
	RefundID             *uuid.UUID         `gorm:"column:refund_id;type:uuid"`
	Items                []OrderItem        `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt            time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt            time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}
