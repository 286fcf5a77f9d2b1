package orders

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/viatura/viatura-backend/internal/stockledger"
	"github.com/viatura/viatura-backend/pkg/db/models"
	"github.com/viatura/viatura-backend/pkg/enums"
	pkgerrors "github.com/viatura/viatura-backend/pkg/errors"
)

func setupOrdersTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := "file:orders_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	for _, stmt := range []string{
		`CREATE TABLE IF NOT EXISTS products (
  id TEXT PRIMARY KEY,
  business_id TEXT NOT NULL,
  name TEXT NOT NULL,
  price TEXT NOT NULL,
  unit TEXT NOT NULL DEFAULT 'piece',
  status TEXT NOT NULL DEFAULT 'active',
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS stock_records (
  product_id TEXT PRIMARY KEY,
  current_stock INTEGER NOT NULL DEFAULT 0,
  minimum_stock INTEGER NOT NULL DEFAULT 0,
  maximum_stock INTEGER,
  unit TEXT NOT NULL DEFAULT 'piece',
  last_restocked_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS stock_history_entries (
  id TEXT PRIMARY KEY,
  product_id TEXT NOT NULL,
  change_type TEXT NOT NULL,
  quantity_delta INTEGER NOT NULL,
  previous_stock INTEGER NOT NULL,
  new_stock INTEGER NOT NULL,
  actor_id TEXT,
  notes TEXT,
  created_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS orders (
  id TEXT PRIMARY KEY,
  business_id TEXT NOT NULL,
  customer_id TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'pending',
  subtotal TEXT NOT NULL,
  discount_amount TEXT NOT NULL DEFAULT '0',
  tax_amount TEXT NOT NULL DEFAULT '0',
  total_amount TEXT NOT NULL,
  pickup_time DATETIME,
  arrival_code TEXT,
  arrival_code_issued_at DATETIME,
  confirmed_at DATETIME,
  preparation_started_at DATETIME,
  ready_at DATETIME,
  picked_up_at DATETIME,
  cancelled_at DATETIME,
  cancellation_reason TEXT,
  cancelled_by TEXT,
  no_show_at DATETIME,
  refund_amount TEXT,
  refund_id TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS order_items (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  product_id TEXT NOT NULL,
  quantity INTEGER NOT NULL,
  unit_price TEXT NOT NULL,
  line_total TEXT NOT NULL,
  created_at DATETIME
);`,
	} {
		require.NoError(t, db.Exec(stmt).Error)
	}
	return db
}

type gormTxRunner struct {
	db *gorm.DB
}

func (r gormTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.Transaction(fn)
}

func newOrderService(t *testing.T, db *gorm.DB) Service {
	t.Helper()
	stockSvc, err := stockledger.NewService(stockledger.NewRepository(db), gormTxRunner{db: db})
	require.NoError(t, err)
	svc, err := NewService(NewRepository(db), gormTxRunner{db: db}, stockSvc)
	require.NoError(t, err)
	return svc
}

func seedProductWithStock(t *testing.T, db *gorm.DB, businessID uuid.UUID, price int64, stock int) uuid.UUID {
	t.Helper()
	product := models.Product{
		ID:         uuid.New(),
		BusinessID: businessID,
		Name:       "souvenir",
		Price:      decimal.NewFromInt(price),
		Unit:       enums.ProductUnitPiece,
		Status:     enums.ProductStatusActive,
	}
	require.NoError(t, db.Create(&product).Error)
	require.NoError(t, db.Create(&models.StockRecord{
		ProductID:    product.ID,
		CurrentStock: stock,
		Unit:         enums.ProductUnitPiece,
	}).Error)
	return product.ID
}

func currentStock(t *testing.T, db *gorm.DB, productID uuid.UUID) int {
	t.Helper()
	var record models.StockRecord
	require.NoError(t, db.First(&record, "product_id = ?", productID).Error)
	return record.CurrentStock
}

func TestPlaceComputesTotals(t *testing.T) {
	t.Parallel()

	db := setupOrdersTestDB(t)
	svc := newOrderService(t, db)
	businessID := uuid.New()
	productA := seedProductWithStock(t, db, businessID, 10, 20)
	productB := seedProductWithStock(t, db, businessID, 7, 20)

	dto, err := svc.Place(context.Background(), PlaceInput{
		BusinessID: businessID,
		CustomerID: uuid.New(),
		Items: []PlaceItemInput{
			{ProductID: productA, Quantity: 3},
			{ProductID: productB, Quantity: 2},
		},
		DiscountAmount: decimal.NewFromInt(4),
		TaxAmount:      decimal.NewFromInt(5),
	})
	require.NoError(t, err)
	require.Equal(t, enums.OrderStatusPending, dto.Status)
	require.True(t, dto.Subtotal.Equal(decimal.NewFromInt(44)), "subtotal %s", dto.Subtotal)
	require.True(t, dto.TotalAmount.Equal(decimal.NewFromInt(45)), "total %s", dto.TotalAmount)
	require.Len(t, dto.Items, 2)

	require.Equal(t, 17, currentStock(t, db, productA))
	require.Equal(t, 18, currentStock(t, db, productB))

	var saleEntries int64
	require.NoError(t, db.Model(&models.StockHistoryEntry{}).
		Where("change_type = ?", enums.StockChangeSale).Count(&saleEntries).Error)
	require.EqualValues(t, 2, saleEntries)
}

func TestPlaceRejectsTotalMismatch(t *testing.T) {
	t.Parallel()

	db := setupOrdersTestDB(t)
	svc := newOrderService(t, db)
	businessID := uuid.New()
	productID := seedProductWithStock(t, db, businessID, 10, 20)

	wrong := decimal.NewFromInt(999)
	_, err := svc.Place(context.Background(), PlaceInput{
		BusinessID:    businessID,
		CustomerID:    uuid.New(),
		Items:         []PlaceItemInput{{ProductID: productID, Quantity: 1}},
		ExpectedTotal: &wrong,
	})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeValidation, typed.Code())

	// Validation failed inside the tx, so the sale must have rolled back.
	require.Equal(t, 20, currentStock(t, db, productID))
}

func TestPlaceInsufficientStockLeavesNoOrder(t *testing.T) {
	t.Parallel()

	db := setupOrdersTestDB(t)
	svc := newOrderService(t, db)
	businessID := uuid.New()
	plenty := seedProductWithStock(t, db, businessID, 10, 20)
	scarce := seedProductWithStock(t, db, businessID, 10, 1)

	_, err := svc.Place(context.Background(), PlaceInput{
		BusinessID: businessID,
		CustomerID: uuid.New(),
		Items: []PlaceItemInput{
			{ProductID: plenty, Quantity: 5},
			{ProductID: scarce, Quantity: 2},
		},
	})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeInsufficientStock, typed.Code())

	var orderCount int64
	require.NoError(t, db.Model(&models.Order{}).Count(&orderCount).Error)
	require.EqualValues(t, 0, orderCount)

	// The first line's deduction rolled back with the order.
	require.Equal(t, 20, currentStock(t, db, plenty))
	require.Equal(t, 1, currentStock(t, db, scarce))
}

func TestCancelRestoresStock(t *testing.T) {
	t.Parallel()

	db := setupOrdersTestDB(t)
	svc := newOrderService(t, db)
	businessID := uuid.New()
	productID := seedProductWithStock(t, db, businessID, 12, 10)

	dto, err := svc.Place(context.Background(), PlaceInput{
		BusinessID: businessID,
		CustomerID: uuid.New(),
		Items:      []PlaceItemInput{{ProductID: productID, Quantity: 4}},
	})
	require.NoError(t, err)
	require.Equal(t, 6, currentStock(t, db, productID))

	cancelled, err := svc.Cancel(context.Background(), dto.ID, enums.CancelActorUser, "changed my mind")
	require.NoError(t, err)
	require.Equal(t, enums.OrderStatusCancelledByUser, cancelled.Status)
	require.NotNil(t, cancelled.CancelledAt)

	require.Equal(t, 10, currentStock(t, db, productID))

	var restore models.StockHistoryEntry
	require.NoError(t, db.
		Where("product_id = ? AND change_type = ?", productID, enums.StockChangeAdjustment).
		First(&restore).Error)
	require.Equal(t, 4, restore.QuantityDelta)
}

func TestIllegalTransitionMutatesNothing(t *testing.T) {
	t.Parallel()

	db := setupOrdersTestDB(t)
	svc := newOrderService(t, db)
	businessID := uuid.New()
	productID := seedProductWithStock(t, db, businessID, 5, 10)

	dto, err := svc.Place(context.Background(), PlaceInput{
		BusinessID: businessID,
		CustomerID: uuid.New(),
		Items:      []PlaceItemInput{{ProductID: productID, Quantity: 1}},
	})
	require.NoError(t, err)

	// pending -> preparing skips accept and must be refused.
	_, err = svc.StartPreparation(context.Background(), dto.ID)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeStateConflict, typed.Code())

	reloaded, err := svc.Get(context.Background(), dto.ID)
	require.NoError(t, err)
	require.Equal(t, enums.OrderStatusPending, reloaded.Status)

	// A user cannot cancel once preparation started.
	_, err = svc.Accept(context.Background(), dto.ID)
	require.NoError(t, err)
	_, err = svc.StartPreparation(context.Background(), dto.ID)
	require.NoError(t, err)
	_, err = svc.Cancel(context.Background(), dto.ID, enums.CancelActorUser, "too late")
	typed = pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeStateConflict, typed.Code())
	require.Equal(t, 9, currentStock(t, db, productID))
}

func TestPickupFlow(t *testing.T) {
	t.Parallel()

	db := setupOrdersTestDB(t)
	svc := newOrderService(t, db)
	businessID := uuid.New()
	productID := seedProductWithStock(t, db, businessID, 5, 10)
	ctx := context.Background()

	dto, err := svc.Place(ctx, PlaceInput{
		BusinessID: businessID,
		CustomerID: uuid.New(),
		Items:      []PlaceItemInput{{ProductID: productID, Quantity: 1}},
	})
	require.NoError(t, err)

	_, err = svc.Accept(ctx, dto.ID)
	require.NoError(t, err)
	_, err = svc.StartPreparation(ctx, dto.ID)
	require.NoError(t, err)
	ready, err := svc.MarkReady(ctx, dto.ID)
	require.NoError(t, err)
	require.NotNil(t, ready.ArrivalCode)
	require.Len(t, *ready.ArrivalCode, 6)

	_, err = svc.ConfirmPickup(ctx, dto.ID, "000000")
	if *ready.ArrivalCode != "000000" {
		typed := pkgerrors.As(err)
		require.NotNil(t, typed)
		require.Equal(t, pkgerrors.CodeValidation, typed.Code())
	}

	done, err := svc.ConfirmPickup(ctx, dto.ID, *ready.ArrivalCode)
	require.NoError(t, err)
	require.Equal(t, enums.OrderStatusPickedUp, done.Status)
	require.Nil(t, done.ArrivalCode)
	require.NotNil(t, done.PickedUpAt)

	// Stock stays deducted on completed orders.
	require.Equal(t, 9, currentStock(t, db, productID))

	_, err = svc.ConfirmPickup(ctx, dto.ID, *ready.ArrivalCode)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeStateConflict, typed.Code())
}

func TestExpireOverdueReady(t *testing.T) {
	t.Parallel()

	db := setupOrdersTestDB(t)
	svc := newOrderService(t, db)
	businessID := uuid.New()
	productID := seedProductWithStock(t, db, businessID, 5, 10)
	ctx := context.Background()

	dto, err := svc.Place(ctx, PlaceInput{
		BusinessID: businessID,
		CustomerID: uuid.New(),
		Items:      []PlaceItemInput{{ProductID: productID, Quantity: 2}},
	})
	require.NoError(t, err)
	_, err = svc.Accept(ctx, dto.ID)
	require.NoError(t, err)
	_, err = svc.StartPreparation(ctx, dto.ID)
	require.NoError(t, err)
	_, err = svc.MarkReady(ctx, dto.ID)
	require.NoError(t, err)

	// Age the ready timestamp past the TTL.
	stale := time.Now().UTC().Add(-48 * time.Hour)
	require.NoError(t, db.Model(&models.Order{}).
		Where("id = ?", dto.ID).
		UpdateColumn("ready_at", stale).Error)

	swept, err := svc.ExpireOverdueReady(ctx, 24*time.Hour)
	require.NoError(t, err)
	require.Equal(t, 1, swept)

	expired, err := svc.Get(ctx, dto.ID)
	require.NoError(t, err)
	require.Equal(t, enums.OrderStatusCancelledByBusiness, expired.Status)
	require.NotNil(t, expired.NoShowAt)
	require.Nil(t, expired.ArrivalCode)
	require.Equal(t, 10, currentStock(t, db, productID))

	// Second sweep finds nothing.
	swept, err = svc.ExpireOverdueReady(ctx, 24*time.Hour)
	require.NoError(t, err)
	require.Equal(t, 0, swept)
}

func TestPlaceGeneratesArrivalCode(t *testing.T) {
	t.Parallel()

	db := setupOrdersTestDB(t)
	svc := newOrderService(t, db)
	businessID := uuid.New()
	productID := seedProductWithStock(t, db, businessID, 5, 10)
	ctx := context.Background()

	dto, err := svc.Place(ctx, PlaceInput{
		BusinessID: businessID,
		CustomerID: uuid.New(),
		Items:      []PlaceItemInput{{ProductID: productID, Quantity: 1}},
	})
	require.NoError(t, err)

	// The code exists from placement, even while the order is pending.
	var row models.Order
	require.NoError(t, db.First(&row, "id = ?", dto.ID).Error)
	require.NotNil(t, row.ArrivalCode)
	require.Len(t, *row.ArrivalCode, 6)
	require.NotNil(t, row.ArrivalCodeIssuedAt)

	// The ready transition hands the same code to the customer.
	_, err = svc.Accept(ctx, dto.ID)
	require.NoError(t, err)
	_, err = svc.StartPreparation(ctx, dto.ID)
	require.NoError(t, err)
	ready, err := svc.MarkReady(ctx, dto.ID)
	require.NoError(t, err)
	require.NotNil(t, ready.ArrivalCode)
	require.Equal(t, *row.ArrivalCode, *ready.ArrivalCode)
}
