package refunds

import (
	"context"
	"fmt"
)

// ProviderRefundStatus is the normalized state a gateway reports for a refund.
type ProviderRefundStatus string

const (
	ProviderRefundPending   ProviderRefundStatus = "pending"
	ProviderRefundSucceeded ProviderRefundStatus = "succeeded"
	ProviderRefundFailed    ProviderRefundStatus = "failed"
)

// ParseProviderRefundStatus converts raw webhook input into a status.
func ParseProviderRefundStatus(value string) (ProviderRefundStatus, error) {
	switch ProviderRefundStatus(value) {
	case ProviderRefundPending, ProviderRefundSucceeded, ProviderRefundFailed:
		return ProviderRefundStatus(value), nil
	default:
		return "", fmt.Errorf("invalid provider refund status %q", value)
	}
}

// ProviderRefund is the gateway's view of a submitted refund.
type ProviderRefund struct {
	ID     string
	Status ProviderRefundStatus
}

// CreateRefundParams carries everything a gateway needs to issue a refund.
// IdempotencyKey is deterministic per attempt so a resubmission after a
// crash lands on the provider's existing refund instead of creating a new one.
type CreateRefundParams struct {
	ProviderPaymentID string
	AmountCents       int64
	Currency          string
	Reason            string
	IdempotencyKey    string
}

// Gateway is the payment provider surface the reconciler depends on. It does
// not retry; retry policy lives entirely in the reconciler.
type Gateway interface {
	CreateRefund(ctx context.Context, params CreateRefundParams) (*ProviderRefund, error)
	GetRefundStatus(ctx context.Context, providerRefundID string) (ProviderRefundStatus, error)
}
