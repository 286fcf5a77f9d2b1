package refunds

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/viatura/viatura-backend/internal/bookings"
	"github.com/viatura/viatura-backend/internal/orders"
	"github.com/viatura/viatura-backend/pkg/config"
	"github.com/viatura/viatura-backend/pkg/db/models"
	"github.com/viatura/viatura-backend/pkg/enums"
	pkgerrors "github.com/viatura/viatura-backend/pkg/errors"
)

const refundCurrency = "USD"

// Service reconciles refunds against the payment provider. Submission and
// status application are split on purpose: submission talks to the provider,
// application only mutates local state, so webhook delivery and polling share
// one code path.
type Service interface {
	Request(ctx context.Context, input RequestInput) (*RefundDTO, error)
	Get(ctx context.Context, id uuid.UUID) (*RefundDTO, error)
	Submit(ctx context.Context, id uuid.UUID) (*RefundDTO, error)
	ApplyProviderStatus(ctx context.Context, providerRefundID string, status ProviderRefundStatus, errorMessage string) (*RefundDTO, error)
	Cancel(ctx context.Context, id uuid.UUID) (*RefundDTO, error)
	SubmitDue(ctx context.Context, now time.Time) (int, error)
	PollProcessing(ctx context.Context, now time.Time) (int, error)
}

// RequestInput is the validated payload to open a refund.
type RequestInput struct {
	PaymentID   uuid.UUID
	Target      Target
	Amount      decimal.Decimal
	Reason      string
	RequestedBy uuid.UUID
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// orderCanceller and bookingCanceller let a full refund force its target into
// a terminal state through the lifecycle services, so stock restoration and
// window release happen exactly as a regular cancellation would.
type orderCanceller interface {
	Cancel(ctx context.Context, id uuid.UUID, actor enums.CancelActor, reason string) (*orders.OrderDTO, error)
}

type bookingCanceller interface {
	Cancel(ctx context.Context, id uuid.UUID, actor enums.CancelActor, reason string) (*bookings.BookingDTO, error)
}

type service struct {
	repo       Repository
	tx         txRunner
	gateway    Gateway
	orderSvc   orderCanceller
	bookingSvc bookingCanceller
	cfg        config.RefundsConfig
	sweepBatch int
}

// NewService constructs the refund reconciler.
func NewService(repo Repository, tx txRunner, gateway Gateway, orderSvc orderCanceller, bookingSvc bookingCanceller, cfg config.RefundsConfig) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("refund repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if gateway == nil {
		return nil, fmt.Errorf("payment gateway required")
	}
	if orderSvc == nil {
		return nil, fmt.Errorf("order service required")
	}
	if bookingSvc == nil {
		return nil, fmt.Errorf("booking service required")
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = time.Minute
	}
	if cfg.SubmitTimeout <= 0 {
		cfg.SubmitTimeout = 10 * time.Second
	}
	if cfg.PollAfter <= 0 {
		cfg.PollAfter = 2 * time.Minute
	}
	return &service{
		repo:       repo,
		tx:         tx,
		gateway:    gateway,
		orderSvc:   orderSvc,
		bookingSvc: bookingSvc,
		cfg:        cfg,
		sweepBatch: 50,
	}, nil
}

// Request validates the payload against the payment and opens a pending
// refund due for immediate submission. The cumulative cap counts succeeded
// refunds only: sum(succeeded) + amount must not exceed the payment amount.
func (s *service) Request(ctx context.Context, input RequestInput) (*RefundDTO, error) {
	if input.Target == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "refund target required")
	}
	if !input.Amount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "refund amount must be positive")
	}
	if strings.TrimSpace(input.Reason) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "refund reason required")
	}
	if input.RequestedBy == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "requested_by required")
	}

	now := time.Now().UTC()
	refund := &models.Refund{
		ID:            uuid.New(),
		PaymentID:     input.PaymentID,
		TargetKind:    input.Target.Kind(),
		TargetID:      input.Target.TargetID(),
		Amount:        input.Amount,
		Reason:        strings.TrimSpace(input.Reason),
		Status:        enums.RefundStatusPending,
		RequestedBy:   input.RequestedBy,
		NextAttemptAt: &now,
	}

	if err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)

		payment, err := txRepo.FindPayment(ctx, input.PaymentID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load payment")
		}
		if payment == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "payment not found")
		}
		if payment.Status != enums.PaymentStatusPaid && payment.Status != enums.PaymentStatusPartiallyRefunded {
			return pkgerrors.New(pkgerrors.CodeStateConflict,
				fmt.Sprintf("payment in status %s is not refundable", payment.Status))
		}
		if payment.PaidForKind != refund.TargetKind || payment.PaidForID != refund.TargetID {
			return pkgerrors.New(pkgerrors.CodeValidation, "refund target does not match payment")
		}
		if input.Amount.GreaterThan(payment.Amount) {
			return pkgerrors.New(pkgerrors.CodeValidation, "refund amount exceeds payment amount")
		}

		refunded, err := txRepo.SumSucceeded(ctx, input.PaymentID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: sum refunds")
		}
		if refunded.Add(input.Amount).GreaterThan(payment.Amount) {
			return pkgerrors.New(pkgerrors.CodeValidation,
				fmt.Sprintf("refund exceeds refundable remainder: %s already returned of %s",
					refunded, payment.Amount))
		}

		if err := txRepo.Create(ctx, refund); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: create refund")
		}
		return nil
	}); err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "request refund")
	}

	return s.Get(ctx, refund.ID)
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*RefundDTO, error) {
	refund, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load refund")
	}
	if refund == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "refund not found")
	}
	return NewRefundDTO(refund), nil
}

// Submit pushes a pending refund to the provider. When a provider refund id
// is already recorded the provider is queried instead of charged again; the
// deterministic idempotency key covers the window where the create succeeded
// but the id was never persisted. A timeout leaves the refund pending and
// untouched so the next sweep retries safely.
func (s *service) Submit(ctx context.Context, id uuid.UUID) (*RefundDTO, error) {
	refund, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load refund")
	}
	if refund == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "refund not found")
	}
	if refund.Status != enums.RefundStatusPending {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("refund in status %s cannot be submitted", refund.Status))
	}

	if refund.ProviderRefundID != nil {
		return s.resumeSubmitted(ctx, refund)
	}

	payment, err := s.repo.FindPayment(ctx, refund.PaymentID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load payment")
	}
	if payment == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payment not found")
	}
	if payment.ProviderPaymentID == nil {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "payment has no provider reference")
	}

	submitCtx, cancel := context.WithTimeout(ctx, s.cfg.SubmitTimeout)
	defer cancel()

	provider, err := s.gateway.CreateRefund(submitCtx, CreateRefundParams{
		ProviderPaymentID: *payment.ProviderPaymentID,
		AmountCents:       toCents(refund.Amount),
		Currency:          refundCurrency,
		Reason:            refund.Reason,
		IdempotencyKey:    submitKey(refund),
	})
	if err != nil {
		if submitOutcomeUnknown(err) {
			// The provider may have created the refund. The refund stays
			// pending and the same idempotency key is reused on the next
			// attempt, so a created refund is found instead of duplicated.
			return nil, pkgerrors.Wrap(pkgerrors.CodeProvider, err, "refund submission unresolved")
		}
		if retryErr := s.scheduleRetry(ctx, refund, err.Error()); retryErr != nil {
			return nil, retryErr
		}
		return nil, err
	}

	applied, err := s.repo.Transition(ctx, refund.ID, enums.RefundStatusPending, enums.RefundStatusProcessing, map[string]any{
		"provider_refund_id": provider.ID,
		"next_attempt_at":    nil,
		"error_message":      nil,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: mark refund processing")
	}
	if !applied {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "refund changed concurrently")
	}

	if provider.Status != ProviderRefundPending {
		return s.ApplyProviderStatus(ctx, provider.ID, provider.Status, "")
	}
	return s.Get(ctx, refund.ID)
}

// resumeSubmitted handles a pending refund that already has a provider id,
// which happens when a previous submit crashed between the provider call and
// the local status write.
func (s *service) resumeSubmitted(ctx context.Context, refund *models.Refund) (*RefundDTO, error) {
	status, err := s.gateway.GetRefundStatus(ctx, *refund.ProviderRefundID)
	if err != nil {
		return nil, err
	}

	applied, err := s.repo.Transition(ctx, refund.ID, enums.RefundStatusPending, enums.RefundStatusProcessing, map[string]any{
		"next_attempt_at": nil,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: mark refund processing")
	}
	if !applied {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "refund changed concurrently")
	}

	if status != ProviderRefundPending {
		return s.ApplyProviderStatus(ctx, *refund.ProviderRefundID, status, "")
	}
	return s.Get(ctx, refund.ID)
}

// ApplyProviderStatus folds a provider-reported outcome into local state.
// Terminal refunds absorb repeats as no-ops, which makes webhook redelivery
// and the poller safe to overlap.
func (s *service) ApplyProviderStatus(ctx context.Context, providerRefundID string, status ProviderRefundStatus, errorMessage string) (*RefundDTO, error) {
	refund, err := s.repo.FindByProviderRefundID(ctx, providerRefundID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load refund by provider id")
	}
	if refund == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "unknown provider refund")
	}

	if refund.Status.IsTerminal() {
		// Re-attempt the forced cancellation in case a prior delivery
		// committed the refund but failed before reaching the target.
		if refund.Status == enums.RefundStatusSucceeded {
			if err := s.cancelTargetIfFullyRefunded(ctx, refund); err != nil {
				return nil, err
			}
		}
		return NewRefundDTO(refund), nil
	}

	switch status {
	case ProviderRefundPending:
		return NewRefundDTO(refund), nil
	case ProviderRefundSucceeded:
		return s.markSucceeded(ctx, refund)
	case ProviderRefundFailed:
		if err := s.scheduleRetry(ctx, refund, errorMessage); err != nil {
			return nil, err
		}
		return s.Get(ctx, refund.ID)
	default:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown provider refund status")
	}
}

// markSucceeded completes the refund and propagates the amount to the payment
// and the target row in a single transaction. A refund that brings the total
// to the full payment amount forces the target into a terminal cancelled
// state afterwards.
func (s *service) markSucceeded(ctx context.Context, refund *models.Refund) (*RefundDTO, error) {
	now := time.Now().UTC()
	fullRefund := false

	if err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)

		from := refund.Status
		if from == enums.RefundStatusPending {
			applied, err := txRepo.Transition(ctx, refund.ID, enums.RefundStatusPending, enums.RefundStatusProcessing, nil)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: promote refund")
			}
			if !applied {
				return pkgerrors.New(pkgerrors.CodeStateConflict, "refund changed concurrently")
			}
			from = enums.RefundStatusProcessing
		}

		applied, err := txRepo.Transition(ctx, refund.ID, from, enums.RefundStatusSucceeded, map[string]any{
			"completed_at":    now,
			"next_attempt_at": nil,
			"error_message":   nil,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: complete refund")
		}
		if !applied {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "refund changed concurrently")
		}

		payment, err := txRepo.FindPayment(ctx, refund.PaymentID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load payment")
		}
		if payment == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "payment not found")
		}

		total, err := txRepo.SumSucceeded(ctx, refund.PaymentID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: sum refunds")
		}

		fullRefund = total.GreaterThanOrEqual(payment.Amount)
		paymentStatus := enums.PaymentStatusPartiallyRefunded
		if fullRefund {
			paymentStatus = enums.PaymentStatusRefunded
		}
		if err := txRepo.SetPaymentStatus(ctx, refund.PaymentID, paymentStatus); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update payment status")
		}

		switch refund.TargetKind {
		case enums.RefundTargetOrder:
			err = txRepo.ApplyToOrder(ctx, refund.TargetID, refund.ID, refund.Amount)
		case enums.RefundTargetBooking:
			err = txRepo.ApplyToBooking(ctx, refund.TargetID, refund.ID, refund.Amount)
		default:
			err = fmt.Errorf("unknown refund target kind %s", refund.TargetKind)
		}
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: apply refund to target")
		}
		return nil
	}); err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "complete refund")
	}

	if fullRefund {
		if err := s.cancelTarget(ctx, refund); err != nil {
			return nil, err
		}
	}
	return s.Get(ctx, refund.ID)
}

// scheduleRetry pushes the refund back to pending with exponential backoff,
// or to terminal failed once the attempt budget is spent. On the re-queue
// path the provider refund id is cleared so the next attempt creates a fresh
// provider refund under a new idempotency key; a terminal failed row keeps
// the id as the provider reference for manual follow-up.
func (s *service) scheduleRetry(ctx context.Context, refund *models.Refund, message string) error {
	attempts := refund.RetryCount + 1
	set := map[string]any{
		"retry_count": attempts,
	}
	if strings.TrimSpace(message) != "" {
		set["error_message"] = strings.TrimSpace(message)
	}

	target := enums.RefundStatusPending
	if attempts >= s.cfg.MaxAttempts {
		target = enums.RefundStatusFailed
		set["next_attempt_at"] = nil
	} else {
		delay := s.cfg.RetryBackoff
		for i := 1; i < attempts; i++ {
			delay *= 4
		}
		set["next_attempt_at"] = time.Now().UTC().Add(delay)
		set["provider_refund_id"] = nil
	}

	applied, err := s.repo.Transition(ctx, refund.ID, refund.Status, target, set)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: schedule refund retry")
	}
	if !applied {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "refund changed concurrently")
	}
	return nil
}

// Cancel abandons a refund that has not reached a terminal state. A refund
// already handed to the provider may still complete there; a late success
// report lands on a terminal row and is ignored.
func (s *service) Cancel(ctx context.Context, id uuid.UUID) (*RefundDTO, error) {
	refund, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load refund")
	}
	if refund == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "refund not found")
	}
	if !enums.CanTransitionRefund(refund.Status, enums.RefundStatusCancelled) {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("refund in status %s cannot be cancelled", refund.Status))
	}

	applied, err := s.repo.Transition(ctx, id, refund.Status, enums.RefundStatusCancelled, map[string]any{
		"next_attempt_at": nil,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: cancel refund")
	}
	if !applied {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "refund changed concurrently")
	}
	return s.Get(ctx, id)
}

// SubmitDue submits every pending refund whose next attempt is due. Returns
// how many submissions went through; individual failures are aggregated and
// do not stop the sweep.
func (s *service) SubmitDue(ctx context.Context, now time.Time) (int, error) {
	due, err := s.repo.ListDue(ctx, now, s.sweepBatch)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list due refunds")
	}

	submitted := 0
	var errs error
	for i := range due {
		if _, err := s.Submit(ctx, due[i].ID); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("refund %s: %w", due[i].ID, err))
			continue
		}
		submitted++
	}
	return submitted, errs
}

// PollProcessing re-queries the provider for refunds stuck in processing
// longer than the poll window, covering lost webhooks.
func (s *service) PollProcessing(ctx context.Context, now time.Time) (int, error) {
	stale, err := s.repo.ListProcessing(ctx, now.Add(-s.cfg.PollAfter), s.sweepBatch)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list processing refunds")
	}

	applied := 0
	var errs error
	for i := range stale {
		refund := stale[i]
		if refund.ProviderRefundID == nil {
			continue
		}
		status, err := s.gateway.GetRefundStatus(ctx, *refund.ProviderRefundID)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("refund %s: %w", refund.ID, err))
			continue
		}
		if status == ProviderRefundPending {
			continue
		}
		if _, err := s.ApplyProviderStatus(ctx, *refund.ProviderRefundID, status, ""); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("refund %s: %w", refund.ID, err))
			continue
		}
		applied++
	}
	return applied, errs
}

func (s *service) cancelTargetIfFullyRefunded(ctx context.Context, refund *models.Refund) error {
	payment, err := s.repo.FindPayment(ctx, refund.PaymentID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load payment")
	}
	if payment == nil || payment.Status != enums.PaymentStatusRefunded {
		return nil
	}
	return s.cancelTarget(ctx, refund)
}

// cancelTarget forces the refunded order or booking into its terminal
// cancelled state through the owning lifecycle service. Targets that are
// already terminal are left alone.
func (s *service) cancelTarget(ctx context.Context, refund *models.Refund) error {
	const reason = "full refund issued"

	var err error
	switch refund.TargetKind {
	case enums.RefundTargetOrder:
		_, err = s.orderSvc.Cancel(ctx, refund.TargetID, enums.CancelActorSystem, reason)
	case enums.RefundTargetBooking:
		_, err = s.bookingSvc.Cancel(ctx, refund.TargetID, enums.CancelActorSystem, reason)
	default:
		return pkgerrors.New(pkgerrors.CodeInternal, "unknown refund target kind")
	}
	if err != nil && !pkgerrors.HasCode(err, pkgerrors.CodeStateConflict) {
		return err
	}
	return nil
}

// submitOutcomeUnknown reports whether a create-refund error leaves the
// provider-side outcome ambiguous. Timeouts, transport failures, and provider
// 5xx responses can land after the refund was created, so only a definite
// provider rejection burns a retry and rotates the idempotency key.
func submitOutcomeUnknown(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	return pkgerrors.HasCode(err, pkgerrors.CodeDependency) || pkgerrors.HasCode(err, pkgerrors.CodeProvider)
}

func submitKey(refund *models.Refund) string {
	return fmt.Sprintf("refund-%s-%d", refund.ID, refund.RetryCount)
}

func toCents(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}
