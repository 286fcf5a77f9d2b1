package refunds

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/viatura/viatura-backend/pkg/db/models"
	"github.com/viatura/viatura-backend/pkg/enums"
)

// RefundDTO is the API projection of a refund.
type RefundDTO struct {
	ID               uuid.UUID              `json:"id"`
	PaymentID        uuid.UUID              `json:"payment_id"`
	TargetKind       enums.RefundTargetKind `json:"target_kind"`
	TargetID         uuid.UUID              `json:"target_id"`
	Amount           decimal.Decimal        `json:"amount"`
	Reason           string                 `json:"reason"`
	Status           enums.RefundStatus     `json:"status"`
	ProviderRefundID *string                `json:"provider_refund_id,omitempty"`
	RetryCount       int                    `json:"retry_count"`
	NextAttemptAt    *time.Time             `json:"next_attempt_at,omitempty"`
	ErrorMessage     *string                `json:"error_message,omitempty"`
	RequestedBy      uuid.UUID              `json:"requested_by"`
	CompletedAt      *time.Time             `json:"completed_at,omitempty"`
	CreatedAt        time.Time              `json:"created_at"`
	UpdatedAt        time.Time              `json:"updated_at"`
}

// NewRefundDTO maps the persistence model to its API projection.
func NewRefundDTO(refund *models.Refund) *RefundDTO {
	if refund == nil {
		return nil
	}
	return &RefundDTO{
		ID:               refund.ID,
		PaymentID:        refund.PaymentID,
		TargetKind:       refund.TargetKind,
		TargetID:         refund.TargetID,
		Amount:           refund.Amount,
		Reason:           refund.Reason,
		Status:           refund.Status,
		ProviderRefundID: refund.ProviderRefundID,
		RetryCount:       refund.RetryCount,
		NextAttemptAt:    refund.NextAttemptAt,
		ErrorMessage:     refund.ErrorMessage,
		RequestedBy:      refund.RequestedBy,
		CompletedAt:      refund.CompletedAt,
		CreatedAt:        refund.CreatedAt,
		UpdatedAt:        refund.UpdatedAt,
	}
}
