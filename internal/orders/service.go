package orders

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/viatura/viatura-backend/internal/stockledger"
	"github.com/viatura/viatura-backend/pkg/db/models"
	"github.com/viatura/viatura-backend/pkg/enums"
	pkgerrors "github.com/viatura/viatura-backend/pkg/errors"
)

// Service drives the shop order lifecycle. Stock moves in the same
// transaction as the order row on both placement and cancellation.
type Service interface {
	Place(ctx context.Context, input PlaceInput) (*OrderDTO, error)
	Get(ctx context.Context, id uuid.UUID) (*OrderDTO, error)
	Accept(ctx context.Context, id uuid.UUID) (*OrderDTO, error)
	StartPreparation(ctx context.Context, id uuid.UUID) (*OrderDTO, error)
	MarkReady(ctx context.Context, id uuid.UUID) (*OrderDTO, error)
	ConfirmPickup(ctx context.Context, id uuid.UUID, code string) (*OrderDTO, error)
	Cancel(ctx context.Context, id uuid.UUID, actor enums.CancelActor, reason string) (*OrderDTO, error)
	ExpireOverdueReady(ctx context.Context, ttl time.Duration) (int, error)
}

// PlaceInput is the validated payload to create an order.
type PlaceInput struct {
	BusinessID     uuid.UUID
	CustomerID     uuid.UUID
	Items          []PlaceItemInput
	DiscountAmount decimal.Decimal
	TaxAmount      decimal.Decimal
	// ExpectedTotal, when set, must match the server-side computed total.
	ExpectedTotal *decimal.Decimal
	PickupTime    *time.Time
}

// PlaceItemInput is one requested order line.
type PlaceItemInput struct {
	ProductID uuid.UUID
	Quantity  int
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type stockAdjuster interface {
	AdjustTx(ctx context.Context, tx *gorm.DB, productID uuid.UUID, input stockledger.AdjustInput) (*models.StockRecord, error)
}

type service struct {
	repo  Repository
	tx    txRunner
	stock stockAdjuster
}

// NewService constructs the order service.
func NewService(repo Repository, tx txRunner, stock stockAdjuster) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("order repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if stock == nil {
		return nil, fmt.Errorf("stock adjuster required")
	}
	return &service{repo: repo, tx: tx, stock: stock}, nil
}

// Place validates the payload, deducts stock for every line, and creates the
// order in one transaction. Any ledger rejection rolls the whole placement
// back, leaving no order row behind.
func (s *service) Place(ctx context.Context, input PlaceInput) (*OrderDTO, error) {
	if input.BusinessID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "business id required")
	}
	if input.CustomerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer id required")
	}
	if len(input.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one item required")
	}
	for _, item := range input.Items {
		if item.ProductID == uuid.Nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "item product id required")
		}
		if item.Quantity <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "item quantity must be positive")
		}
	}
	if input.DiscountAmount.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "discount cannot be negative")
	}
	if input.TaxAmount.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tax cannot be negative")
	}

	code, err := NewArrivalCode()
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "issue arrival code")
	}
	issuedAt := time.Now().UTC()

	var orderID uuid.UUID
	if err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)

		subtotal := decimal.Zero
		items := make([]models.OrderItem, 0, len(input.Items))
		for _, line := range input.Items {
			product, err := txRepo.FindProduct(ctx, line.ProductID)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load product")
			}
			if product == nil {
				return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
			}
			if product.BusinessID != input.BusinessID {
				return pkgerrors.New(pkgerrors.CodeValidation, "product belongs to another business")
			}
			if product.Status == enums.ProductStatusArchived {
				return pkgerrors.New(pkgerrors.CodeValidation, "product is archived")
			}

			notes := fmt.Sprintf("order placement x%d", line.Quantity)
			if _, err := s.stock.AdjustTx(ctx, tx, line.ProductID, stockledger.AdjustInput{
				ChangeType: enums.StockChangeSale,
				Delta:      -line.Quantity,
				ActorID:    &input.CustomerID,
				Notes:      &notes,
			}); err != nil {
				return err
			}

			lineTotal := product.Price.Mul(decimal.NewFromInt(int64(line.Quantity)))
			subtotal = subtotal.Add(lineTotal)
			items = append(items, models.OrderItem{
				ID:        uuid.New(),
				ProductID: line.ProductID,
				Quantity:  line.Quantity,
				UnitPrice: product.Price,
				LineTotal: lineTotal,
			})
		}

		if input.DiscountAmount.GreaterThan(subtotal) {
			return pkgerrors.New(pkgerrors.CodeValidation, "discount exceeds subtotal")
		}
		total := subtotal.Sub(input.DiscountAmount).Add(input.TaxAmount)
		if input.ExpectedTotal != nil && !input.ExpectedTotal.Equal(total) {
			return pkgerrors.New(pkgerrors.CodeValidation,
				fmt.Sprintf("total mismatch: expected %s, computed %s", input.ExpectedTotal, total))
		}

		order := &models.Order{
			ID:                  uuid.New(),
			BusinessID:          input.BusinessID,
			CustomerID:          input.CustomerID,
			Status:              enums.OrderStatusPending,
			Subtotal:            subtotal,
			DiscountAmount:      input.DiscountAmount,
			TaxAmount:           input.TaxAmount,
			TotalAmount:         total,
			PickupTime:          input.PickupTime,
			ArrivalCode:         &code,
			ArrivalCodeIssuedAt: &issuedAt,
			Items:               items,
		}
		if err := txRepo.Create(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert order")
		}
		orderID = order.ID
		return nil
	}); err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "place order")
	}

	return s.Get(ctx, orderID)
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*OrderDTO, error) {
	order, err := s.load(ctx, s.repo, id)
	if err != nil {
		return nil, err
	}
	return NewOrderDTO(order), nil
}

func (s *service) Accept(ctx context.Context, id uuid.UUID) (*OrderDTO, error) {
	now := time.Now().UTC()
	return s.step(ctx, id, enums.OrderStatusAccepted, map[string]any{"confirmed_at": now})
}

func (s *service) StartPreparation(ctx context.Context, id uuid.UUID) (*OrderDTO, error) {
	now := time.Now().UTC()
	return s.step(ctx, id, enums.OrderStatusPreparing, map[string]any{"preparation_started_at": now})
}

// MarkReady stamps ready_at, which starts the arrival-code TTL clock. The
// code itself was generated at placement.
func (s *service) MarkReady(ctx context.Context, id uuid.UUID) (*OrderDTO, error) {
	now := time.Now().UTC()
	return s.step(ctx, id, enums.OrderStatusReadyForPickup, map[string]any{
		"ready_at": now,
	})
}

// ConfirmPickup verifies the arrival code and completes the order. A code
// presented after the configured TTL has already been swept by the no-show
// job; a stale but unswept code is still honored here since the order is in
// ready_for_pickup.
func (s *service) ConfirmPickup(ctx context.Context, id uuid.UUID, code string) (*OrderDTO, error) {
	order, err := s.load(ctx, s.repo, id)
	if err != nil {
		return nil, err
	}
	if order.Status != enums.OrderStatusReadyForPickup {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("order is %s, not ready for pickup", order.Status))
	}
	if order.ArrivalCode == nil || !CodeMatches(*order.ArrivalCode, code) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "arrival code mismatch")
	}

	now := time.Now().UTC()
	return s.step(ctx, id, enums.OrderStatusPickedUp, map[string]any{
		"picked_up_at": now,
		"arrival_code": nil,
	})
}

// Cancel ends the order and restores the deducted stock with one adjustment
// entry per line item, all in one transaction.
func (s *service) Cancel(ctx context.Context, id uuid.UUID, actor enums.CancelActor, reason string) (*OrderDTO, error) {
	if !actor.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid cancel actor")
	}
	if reason == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cancellation reason required")
	}

	target := actor.TerminalStatus()
	now := time.Now().UTC()

	if err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		order, err := s.load(ctx, txRepo, id)
		if err != nil {
			return err
		}
		if !enums.CanTransition(order.Status, target) {
			return pkgerrors.New(pkgerrors.CodeStateConflict,
				fmt.Sprintf("cannot cancel order in status %s as %s", order.Status, actor))
		}

		applied, err := txRepo.Transition(ctx, id, order.Status, target, map[string]any{
			"cancelled_at":        now,
			"cancellation_reason": reason,
			"cancelled_by":        actor,
			"arrival_code":        nil,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: cancel order")
		}
		if !applied {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order changed concurrently")
		}

		return s.restoreStock(ctx, tx, order, "order cancellation")
	}); err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cancel order")
	}

	return s.Get(ctx, id)
}

// ExpireOverdueReady sweeps ready_for_pickup orders whose arrival code aged
// past ttl: marks them no-show, system-cancels, and restocks. Each order is
// its own transaction so one failure does not hold the rest. Returns how many
// were swept.
func (s *service) ExpireOverdueReady(ctx context.Context, ttl time.Duration) (int, error) {
	cutoff := time.Now().UTC().Add(-ttl)
	overdue, err := s.repo.ListOverdueReady(ctx, cutoff)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list overdue orders")
	}

	swept := 0
	for i := range overdue {
		order := overdue[i]
		err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			txRepo := s.repo.WithTx(tx)
			now := time.Now().UTC()
			applied, err := txRepo.Transition(ctx, order.ID,
				enums.OrderStatusReadyForPickup, enums.OrderStatusCancelledByBusiness,
				map[string]any{
					"no_show_at":          now,
					"cancelled_at":        now,
					"cancellation_reason": "arrival code expired",
					"cancelled_by":        enums.CancelActorSystem,
					"arrival_code":        nil,
				})
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: expire order")
			}
			if !applied {
				// Picked up or cancelled since listing. Nothing to do.
				return nil
			}
			swept++
			return s.restoreStock(ctx, tx, &order, "no-show expiry")
		})
		if err != nil {
			return swept, err
		}
	}
	return swept, nil
}

func (s *service) restoreStock(ctx context.Context, tx *gorm.DB, order *models.Order, note string) error {
	for _, item := range order.Items {
		notes := note
		if _, err := s.stock.AdjustTx(ctx, tx, item.ProductID, stockledger.AdjustInput{
			ChangeType: enums.StockChangeAdjustment,
			Delta:      item.Quantity,
			Notes:      &notes,
		}); err != nil {
			return err
		}
	}
	return nil
}

// step applies a plain guarded transition and returns the refreshed order.
func (s *service) step(ctx context.Context, id uuid.UUID, to enums.OrderStatus, set map[string]any) (*OrderDTO, error) {
	order, err := s.load(ctx, s.repo, id)
	if err != nil {
		return nil, err
	}
	if !enums.CanTransition(order.Status, to) {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("transition %s -> %s not allowed", order.Status, to))
	}

	applied, err := s.repo.Transition(ctx, id, order.Status, to, set)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: transition order")
	}
	if !applied {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order changed concurrently")
	}
	return s.Get(ctx, id)
}

func (s *service) load(ctx context.Context, repo Repository, id uuid.UUID) (*models.Order, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	order, err := repo.FindByID(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load order")
	}
	if order == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return order, nil
}
