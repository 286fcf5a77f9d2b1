package refunds

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/viatura/viatura-backend/pkg/db/models"
	"github.com/viatura/viatura-backend/pkg/enums"
)

// Repository exposes refund and payment persistence.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, refund *models.Refund) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Refund, error)
	FindByProviderRefundID(ctx context.Context, providerRefundID string) (*models.Refund, error)
	Transition(ctx context.Context, id uuid.UUID, from, to enums.RefundStatus, set map[string]any) (bool, error)
	SumSucceeded(ctx context.Context, paymentID uuid.UUID) (decimal.Decimal, error)
	ListDue(ctx context.Context, now time.Time, limit int) ([]models.Refund, error)
	ListProcessing(ctx context.Context, updatedBefore time.Time, limit int) ([]models.Refund, error)

	FindPayment(ctx context.Context, paymentID uuid.UUID) (*models.Payment, error)
	SetPaymentStatus(ctx context.Context, paymentID uuid.UUID, status enums.PaymentStatus) error
	ApplyToOrder(ctx context.Context, orderID, refundID uuid.UUID, amount decimal.Decimal) error
	ApplyToBooking(ctx context.Context, bookingID, refundID uuid.UUID, amount decimal.Decimal) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a refund repository backed by the provided DB.
func NewRepository(db *gorm.DB) Repository {
	if db == nil {
		return nil
	}
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, refund *models.Refund) error {
	return r.db.WithContext(ctx).Create(refund).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Refund, error) {
	var refund models.Refund
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&refund).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &refund, nil
}

func (r *repository) FindByProviderRefundID(ctx context.Context, providerRefundID string) (*models.Refund, error) {
	var refund models.Refund
	err := r.db.WithContext(ctx).
		Where("provider_refund_id = ?", providerRefundID).
		First(&refund).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &refund, nil
}

// Transition moves the refund from -> to with extra column writes, guarded on
// the current status so racing writers cannot both apply. Returns false when
// the guard failed.
func (r *repository) Transition(ctx context.Context, id uuid.UUID, from, to enums.RefundStatus, set map[string]any) (bool, error) {
	values := map[string]any{"status": to}
	for k, v := range set {
		values[k] = v
	}
	res := r.db.WithContext(ctx).
		Model(&models.Refund{}).
		Where("id = ? AND status = ?", id, from).
		Updates(values)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repository) SumSucceeded(ctx context.Context, paymentID uuid.UUID) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := r.db.WithContext(ctx).
		Model(&models.Refund{}).
		Select("COALESCE(SUM(amount), 0)").
		Where("payment_id = ? AND status = ?", paymentID, enums.RefundStatusSucceeded).
		Scan(&total).Error
	return total, err
}

func (r *repository) ListDue(ctx context.Context, now time.Time, limit int) ([]models.Refund, error) {
	var due []models.Refund
	q := r.db.WithContext(ctx).
		Where("status = ? AND next_attempt_at IS NOT NULL AND next_attempt_at <= ?", enums.RefundStatusPending, now).
		Order("next_attempt_at ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&due).Error
	return due, err
}

func (r *repository) ListProcessing(ctx context.Context, updatedBefore time.Time, limit int) ([]models.Refund, error) {
	var stale []models.Refund
	q := r.db.WithContext(ctx).
		Where("status = ? AND updated_at <= ?", enums.RefundStatusProcessing, updatedBefore).
		Order("updated_at ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&stale).Error
	return stale, err
}

func (r *repository) FindPayment(ctx context.Context, paymentID uuid.UUID) (*models.Payment, error) {
	var payment models.Payment
	err := r.db.WithContext(ctx).
		Where("id = ?", paymentID).
		First(&payment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &payment, nil
}

func (r *repository) SetPaymentStatus(ctx context.Context, paymentID uuid.UUID, status enums.PaymentStatus) error {
	return r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Where("id = ?", paymentID).
		Update("status", status).Error
}

func (r *repository) ApplyToOrder(ctx context.Context, orderID, refundID uuid.UUID, amount decimal.Decimal) error {
	return r.db.WithContext(ctx).Exec(
		"UPDATE orders SET refund_amount = COALESCE(refund_amount, 0) + ?, refund_id = ? WHERE id = ?",
		amount, refundID, orderID,
	).Error
}

func (r *repository) ApplyToBooking(ctx context.Context, bookingID, refundID uuid.UUID, amount decimal.Decimal) error {
	return r.db.WithContext(ctx).Exec(
		"UPDATE bookings SET refund_amount = COALESCE(refund_amount, 0) + ?, refund_id = ? WHERE id = ?",
		amount, refundID, bookingID,
	).Error
}
