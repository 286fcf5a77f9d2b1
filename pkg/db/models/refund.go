package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/viatura/viatura-backend/pkg/enums"
)

// Refund tracks returning money for a payment. ProviderRefundID doubles as
// the idempotency key sent to the gateway so a resubmission after a crash
// finds the existing provider refund instead of creating a second one.
type Refund struct {
	ID               uuid.UUID              `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	PaymentID        uuid.UUID              `gorm:"column:payment_id;type:uuid;not null;index"`
	TargetKind       enums.RefundTargetKind `gorm:"column:target_kind;type:refund_target_kind;not null"`
	TargetID         uuid.UUID              `gorm:"column:target_id;type:uuid;not null;index"`
	Amount           decimal.Decimal        `gorm:"column:amount;type:numeric(12,2);not null"`
	Reason           string                 `gorm:"column:reason;not null"`
	Status           enums.RefundStatus     `gorm:"column:status;type:refund_status;not null;default:'pending'"`
	ProviderRefundID *string                `gorm:"column:provider_refund_id;unique"`
	RetryCount       int                    `gorm:"column:retry_count;not null;default:0"`
	NextAttemptAt    *time.Time             `gorm:"column:next_attempt_at"`
	ErrorMessage     *string                `gorm:"column:error_message"`
	RequestedBy      uuid.UUID              `gorm:"column:requested_by;type:uuid;not null"`
	CompletedAt      *time.Time             `gorm:"column:completed_at"`
	CreatedAt        time.Time              `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time              `gorm:"column:updated_at;autoUpdateTime"`
}
