package stockledger

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/viatura/viatura-backend/pkg/db/models"
	"github.com/viatura/viatura-backend/pkg/enums"
	pkgerrors "github.com/viatura/viatura-backend/pkg/errors"
	"github.com/viatura/viatura-backend/pkg/pagination"
)

func setupStockTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := "file:stockledger_" + uuid.NewString() + "?mode=memory&cache=shared"
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

func newStockService(t *testing.T, db *gorm.DB) Service {
	t.Helper()
	svc, err := NewService(NewRepository(db), gormTxRunner{db: db})
	require.NoError(t, err)
	return svc
}

func seedProduct(t *testing.T, db *gorm.DB, status enums.ProductStatus) uuid.UUID {
	t.Helper()
	product := models.Product{
		ID:         uuid.New(),
		BusinessID: uuid.New(),
		Name:       "city tour ticket",
		Price:      decimal.NewFromInt(45),
		Unit:       enums.ProductUnitPiece,
		Status:     status,
	}
	require.NoError(t, db.Create(&product).Error)
	return product.ID
}

func seedHistoryID(t *testing.T, db *gorm.DB, productID uuid.UUID) {
	t.Helper()
	// sqlite has no gen_random_uuid(), so backfill ids the default would set.
	require.NoError(t, db.Exec(
		`UPDATE stock_history_entries SET id = ? WHERE product_id = ? AND (id IS NULL OR id = '')`,
		uuid.NewString(), productID).Error)
}

func adjust(t *testing.T, svc Service, db *gorm.DB, productID uuid.UUID, input AdjustInput) (*StockDTO, error) {
	t.Helper()
	dto, err := svc.Adjust(context.Background(), productID, input)
	if err == nil {
		seedHistoryID(t, db, productID)
	}
	return dto, err
}

func initStock(t *testing.T, svc Service, db *gorm.DB, productID uuid.UUID, qty int) *StockDTO {
	t.Helper()
	dto, err := svc.InitializeStock(context.Background(), productID, InitializeInput{
		InitialStock: qty,
		MinimumStock: 1,
		Unit:         enums.ProductUnitPiece,
	})
	require.NoError(t, err)
	seedHistoryID(t, db, productID)
	return dto
}

func TestAdjustSaleRejectsOverdraw(t *testing.T) {
	t.Parallel()

	db := setupStockTestDB(t)
	svc := newStockService(t, db)
	productID := seedProduct(t, db, enums.ProductStatusActive)
	initStock(t, svc, db, productID, 5)

	dto, err := adjust(t, svc, db, productID, AdjustInput{
		ChangeType: enums.StockChangeSale,
		Delta:      -3,
	})
	require.NoError(t, err)
	require.Equal(t, 2, dto.CurrentStock)

	_, err = adjust(t, svc, db, productID, AdjustInput{
		ChangeType: enums.StockChangeSale,
		Delta:      -3,
	})
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeInsufficientStock, typed.Code())

	// The rejected sale must leave no trace: quantity untouched, no entry.
	var record models.StockRecord
	require.NoError(t, db.First(&record, "product_id = ?", productID).Error)
	require.Equal(t, 2, record.CurrentStock)

	var count int64
	require.NoError(t, db.Model(&models.StockHistoryEntry{}).
		Where("product_id = ?", productID).Count(&count).Error)
	require.EqualValues(t, 2, count)
}

func TestAdjustValidatesDeltaSign(t *testing.T) {
	t.Parallel()

	db := setupStockTestDB(t)
	svc := newStockService(t, db)
	productID := seedProduct(t, db, enums.ProductStatusActive)
	initStock(t, svc, db, productID, 10)

	cases := []struct {
		name  string
		input AdjustInput
	}{
		{"sale with positive delta", AdjustInput{ChangeType: enums.StockChangeSale, Delta: 3}},
		{"restock with negative delta", AdjustInput{ChangeType: enums.StockChangeRestock, Delta: -3}},
		{"expired with positive delta", AdjustInput{ChangeType: enums.StockChangeExpired, Delta: 2}},
		{"zero delta", AdjustInput{ChangeType: enums.StockChangeAdjustment, Delta: 0}},
	}
	for _, tc := range cases {
		_, err := svc.Adjust(context.Background(), productID, tc.input)
		typed := pkgerrors.As(err)
		if typed == nil || typed.Code() != pkgerrors.CodeValidation {
			t.Fatalf("%s: expected validation error, got %v", tc.name, err)
		}
	}
}

func TestInitializeStockConflictsOnDuplicate(t *testing.T) {
	t.Parallel()

	db := setupStockTestDB(t)
	svc := newStockService(t, db)
	productID := seedProduct(t, db, enums.ProductStatusActive)
	initStock(t, svc, db, productID, 4)

	_, err := svc.InitializeStock(context.Background(), productID, InitializeInput{
		InitialStock: 4,
		Unit:         enums.ProductUnitPiece,
	})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeConflict, typed.Code())
}

func TestAdjustSyncsProductStatus(t *testing.T) {
	t.Parallel()

	db := setupStockTestDB(t)
	svc := newStockService(t, db)
	productID := seedProduct(t, db, enums.ProductStatusActive)
	initStock(t, svc, db, productID, 2)

	_, err := adjust(t, svc, db, productID, AdjustInput{
		ChangeType: enums.StockChangeSale,
		Delta:      -2,
	})
	require.NoError(t, err)

	var product models.Product
	require.NoError(t, db.First(&product, "id = ?", productID).Error)
	require.Equal(t, enums.ProductStatusOutOfStock, product.Status)

	_, err = adjust(t, svc, db, productID, AdjustInput{
		ChangeType: enums.StockChangeRestock,
		Delta:      5,
	})
	require.NoError(t, err)

	require.NoError(t, db.First(&product, "id = ?", productID).Error)
	require.Equal(t, enums.ProductStatusActive, product.Status)
}

func TestReconcileDetectsDrift(t *testing.T) {
	t.Parallel()

	db := setupStockTestDB(t)
	svc := newStockService(t, db)
	productID := seedProduct(t, db, enums.ProductStatusActive)
	initStock(t, svc, db, productID, 10)

	_, err := adjust(t, svc, db, productID, AdjustInput{ChangeType: enums.StockChangeSale, Delta: -4})
	require.NoError(t, err)
	_, err = adjust(t, svc, db, productID, AdjustInput{ChangeType: enums.StockChangeExpired, Delta: -1})
	require.NoError(t, err)

	report, err := svc.Reconcile(context.Background(), productID)
	require.NoError(t, err)
	require.True(t, report.Consistent)
	require.Equal(t, 5, report.CurrentStock)
	require.Equal(t, 5, report.ReplayedStock)

	// Simulate an out-of-band write that skipped the ledger.
	require.NoError(t, db.Exec(
		`UPDATE stock_records SET current_stock = 9 WHERE product_id = ?`, productID).Error)

	report, err = svc.Reconcile(context.Background(), productID)
	require.NoError(t, err)
	require.False(t, report.Consistent)
	require.Equal(t, 9, report.CurrentStock)
	require.Equal(t, 5, report.ReplayedStock)
}

func TestHistoryPaginates(t *testing.T) {
	t.Parallel()

	db := setupStockTestDB(t)
	svc := newStockService(t, db)
	productID := seedProduct(t, db, enums.ProductStatusActive)
	initStock(t, svc, db, productID, 100)

	for i := 0; i < 3; i++ {
		_, err := adjust(t, svc, db, productID, AdjustInput{
			ChangeType: enums.StockChangeSale,
			Delta:      -1,
		})
		require.NoError(t, err)
	}

	page, err := svc.History(context.Background(), productID, pagination.Params{Limit: 2})
	require.NoError(t, err)
	require.Len(t, page.Entries, 2)
	require.NotEmpty(t, page.NextCursor)

	rest, err := svc.History(context.Background(), productID, pagination.Params{
		Limit:  10,
		Cursor: page.NextCursor,
	})
	require.NoError(t, err)
	require.Len(t, rest.Entries, 2)
	require.Empty(t, rest.NextCursor)
}
