package cron

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"

	"github.com/viatura/viatura-backend/pkg/logger"
)

type readyOrderExpirer interface {
	ExpireOverdueReady(ctx context.Context, ttl time.Duration) (int, error)
}

type arrivalExpirer interface {
	ExpireOverdueArrivals(ctx context.Context, ttl time.Duration) (int, error)
}

// ArrivalCodeJobParams configure the arrival code expiry job.
type ArrivalCodeJobParams struct {
	Logger   *logger.Logger
	Orders   readyOrderExpirer
	Bookings arrivalExpirer
	TTL      time.Duration
}

// NewArrivalCodeJob builds the cron job that cancels ready orders and accepted
// bookings whose arrival code was never redeemed within the TTL.
func NewArrivalCodeJob(params ArrivalCodeJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("orders service required")
	}
	if params.Bookings == nil {
		return nil, fmt.Errorf("bookings service required")
	}
	if params.TTL <= 0 {
		return nil, fmt.Errorf("arrival code ttl must be positive")
	}
	return &arrivalCodeJob{
		logg:     params.Logger,
		orders:   params.Orders,
		bookings: params.Bookings,
		ttl:      params.TTL,
	}, nil
}

type arrivalCodeJob struct {
	logg     *logger.Logger
	orders   readyOrderExpirer
	bookings arrivalExpirer
	ttl      time.Duration
}

func (j *arrivalCodeJob) Name() string { return "arrival-code-expiry" }

func (j *arrivalCodeJob) Run(ctx context.Context) error {
	var errs error

	expiredOrders, err := j.orders.ExpireOverdueReady(ctx, j.ttl)
	if err != nil {
		errs = multierr.Append(errs, fmt.Errorf("expire overdue ready orders: %w", err))
	}

	expiredBookings, err := j.bookings.ExpireOverdueArrivals(ctx, j.ttl)
	if err != nil {
		errs = multierr.Append(errs, fmt.Errorf("expire overdue arrivals: %w", err))
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"expired_orders":   expiredOrders,
		"expired_bookings": expiredBookings,
	})
	j.logg.Info(logCtx, "arrival code expiry sweep complete")
	return errs
}
