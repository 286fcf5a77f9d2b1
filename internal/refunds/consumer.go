package refunds

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	pubsub "cloud.google.com/go/pubsub/v2"

	pkgerrors "github.com/viatura/viatura-backend/pkg/errors"
	"github.com/viatura/viatura-backend/pkg/logger"
)

const refundEventsScope = "refund_events"

type idempotencyStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) error
	IdempotencyKey(scope, id string) string
}

type statusApplier interface {
	ApplyProviderStatus(ctx context.Context, providerRefundID string, status ProviderRefundStatus, errorMessage string) (*RefundDTO, error)
}

// refundEventPayload is the wire shape published by the payment provider
// bridge for refund state changes.
type refundEventPayload struct {
	ProviderRefundID string `json:"provider_refund_id"`
	Status           string `json:"status"`
	ErrorMessage     string `json:"error_message,omitempty"`
}

// Consumer folds provider refund events into the reconciler. Message ids are
// claimed in Redis before processing so a redelivered event is dropped
// instead of applied twice.
type Consumer struct {
	service      statusApplier
	subscription *pubsub.Subscriber
	idempotency  idempotencyStore
	claimTTL     time.Duration
	logg         *logger.Logger
}

// NewConsumer builds a refund events consumer.
func NewConsumer(service statusApplier, subscription *pubsub.Subscriber, store idempotencyStore, claimTTL time.Duration, logg *logger.Logger) (*Consumer, error) {
	if service == nil {
		return nil, fmt.Errorf("refund service required")
	}
	if subscription == nil {
		return nil, fmt.Errorf("refund events subscription required")
	}
	if store == nil {
		return nil, fmt.Errorf("idempotency store required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if claimTTL <= 0 {
		claimTTL = 24 * time.Hour
	}
	return &Consumer{
		service:      service,
		subscription: subscription,
		idempotency:  store,
		claimTTL:     claimTTL,
		logg:         logg,
	}, nil
}

// Run starts the consumer loop until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		result := c.process(ctx, msg)
		if result.nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

type processResult struct {
	ack  bool
	nack bool
}

func (c *Consumer) process(ctx context.Context, msg *pubsub.Message) processResult {
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"message_id": msg.ID,
	})

	var payload refundEventPayload
	if err := json.Unmarshal(msg.Data, &payload); err != nil {
		c.logg.Error(logCtx, "failed to decode refund event", err)
		return processResult{ack: true}
	}

	if payload.ProviderRefundID == "" {
		c.logg.Warn(logCtx, "refund event missing provider refund id")
		return processResult{ack: true}
	}

	status, err := ParseProviderRefundStatus(payload.Status)
	if err != nil {
		c.logg.Error(logCtx, "invalid refund event status", err)
		return processResult{ack: true}
	}

	logCtx = c.logg.WithFields(logCtx, map[string]any{
		"provider_refund_id": payload.ProviderRefundID,
		"status":             payload.Status,
	})

	claimKey := c.idempotency.IdempotencyKey(refundEventsScope, msg.ID)
	claimed, err := c.idempotency.SetNX(ctx, claimKey, "1", c.claimTTL)
	if err != nil {
		c.logg.Error(logCtx, "idempotency claim failed", err)
		return processResult{nack: true}
	}
	if !claimed {
		c.logg.Info(logCtx, "refund event already processed")
		return processResult{ack: true}
	}

	if _, err := c.service.ApplyProviderStatus(ctx, payload.ProviderRefundID, status, payload.ErrorMessage); err != nil {
		if pkgerrors.HasCode(err, pkgerrors.CodeNotFound) {
			// Events for refunds this system never created are dropped.
			c.logg.Warn(logCtx, "refund event for unknown provider refund")
			return processResult{ack: true}
		}
		c.logg.Error(logCtx, "failed to apply refund event", err)
		_ = c.idempotency.Del(ctx, claimKey)
		return processResult{nack: true}
	}

	c.logg.Info(logCtx, "refund event applied")
	return processResult{ack: true}
}
