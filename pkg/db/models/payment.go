package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/viatura/viatura-backend/pkg/enums"
)

// Payment records money collected for an order or a booking. PaidForKind
// plus PaidForID identify the target row.
type Payment struct {
	ID                uuid.UUID              `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	PaidForKind       enums.RefundTargetKind `gorm:"column:paid_for_kind;type:refund_target_kind;not null"`
	PaidForID         uuid.UUID              `gorm:"column:paid_for_id;type:uuid;not null;index"`
	Amount            decimal.Decimal        `gorm:"column:amount;type:numeric(12,2);not null"`
	Method            enums.PaymentMethod    `gorm:"column:method;type:payment_method;not null"`
	Status            enums.PaymentStatus    `gorm:"column:status;type:payment_status;not null;default:'pending'"`
	ProviderPaymentID *string                `gorm:"column:provider_payment_id;unique"`
	CreatedAt         time.Time              `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time              `gorm:"column:updated_at;autoUpdateTime"`
}
