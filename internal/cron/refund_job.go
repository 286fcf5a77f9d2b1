package cron

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"

	"github.com/viatura/viatura-backend/pkg/logger"
)

// refundSweeper is the slice of the refunds service the job drives.
type refundSweeper interface {
	SubmitDue(ctx context.Context, now time.Time) (int, error)
	PollProcessing(ctx context.Context, now time.Time) (int, error)
}

// RefundJobParams configure the refund reconciliation job.
type RefundJobParams struct {
	Logger  *logger.Logger
	Refunds refundSweeper
}

// NewRefundJob builds the cron job that submits due refunds and polls the
// provider for refunds stuck in processing.
func NewRefundJob(params RefundJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Refunds == nil {
		return nil, fmt.Errorf("refunds service required")
	}
	return &refundJob{
		logg:    params.Logger,
		refunds: params.Refunds,
		now:     time.Now,
	}, nil
}

type refundJob struct {
	logg    *logger.Logger
	refunds refundSweeper
	now     func() time.Time
}

func (j *refundJob) Name() string { return "refund-reconcile" }

func (j *refundJob) Run(ctx context.Context) error {
	now := j.now().UTC()
	var errs error

	submitted, err := j.refunds.SubmitDue(ctx, now)
	if err != nil {
		errs = multierr.Append(errs, fmt.Errorf("submit due refunds: %w", err))
	}

	polled, err := j.refunds.PollProcessing(ctx, now)
	if err != nil {
		errs = multierr.Append(errs, fmt.Errorf("poll processing refunds: %w", err))
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{"submitted": submitted, "polled": polled})
	j.logg.Info(logCtx, "refund reconcile sweep complete")
	return errs
}
