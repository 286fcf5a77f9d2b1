package refunds

import (
	"context"
	"fmt"
	"strings"

	"github.com/viatura/viatura-backend/pkg/square"
)

// Square refund states as reported by the Refunds API.
const (
	squareRefundPending   = "PENDING"
	squareRefundCompleted = "COMPLETED"
	squareRefundRejected  = "REJECTED"
	squareRefundFailed    = "FAILED"
)

// SquareGateway adapts the Square client to the Gateway interface.
type SquareGateway struct {
	client *square.Client
}

// NewSquareGateway wraps an initialized Square client.
func NewSquareGateway(client *square.Client) (*SquareGateway, error) {
	if client == nil {
		return nil, fmt.Errorf("square client required")
	}
	return &SquareGateway{client: client}, nil
}

func (g *SquareGateway) CreateRefund(ctx context.Context, params CreateRefundParams) (*ProviderRefund, error) {
	refund, err := g.client.RefundPayment(ctx, square.RefundCreateParams{
		PaymentID:      params.ProviderPaymentID,
		AmountCents:    params.AmountCents,
		Currency:       params.Currency,
		Reason:         params.Reason,
		IdempotencyKey: params.IdempotencyKey,
	})
	if err != nil {
		return nil, err
	}
	return &ProviderRefund{
		ID:     refund.GetID(),
		Status: normalizeSquareRefundStatus(refund.GetStatus()),
	}, nil
}

func (g *SquareGateway) GetRefundStatus(ctx context.Context, providerRefundID string) (ProviderRefundStatus, error) {
	refund, err := g.client.GetRefund(ctx, providerRefundID)
	if err != nil {
		return "", err
	}
	return normalizeSquareRefundStatus(refund.GetStatus()), nil
}

func normalizeSquareRefundStatus(raw *string) ProviderRefundStatus {
	if raw == nil {
		return ProviderRefundPending
	}
	switch strings.ToUpper(strings.TrimSpace(*raw)) {
	case squareRefundCompleted:
		return ProviderRefundSucceeded
	case squareRefundRejected, squareRefundFailed:
		return ProviderRefundFailed
	case squareRefundPending:
		return ProviderRefundPending
	default:
		return ProviderRefundPending
	}
}
