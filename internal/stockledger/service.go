package stockledger

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/viatura/viatura-backend/pkg/db/models"
	"github.com/viatura/viatura-backend/pkg/enums"
	pkgerrors "github.com/viatura/viatura-backend/pkg/errors"
	"github.com/viatura/viatura-backend/pkg/pagination"
)

// Service exposes stock ledger operations. Every mutation lands as exactly
// one history entry in the same transaction as the quantity change.
type Service interface {
	InitializeStock(ctx context.Context, productID uuid.UUID, input InitializeInput) (*StockDTO, error)
	Adjust(ctx context.Context, productID uuid.UUID, input AdjustInput) (*StockDTO, error)
	AdjustTx(ctx context.Context, tx *gorm.DB, productID uuid.UUID, input AdjustInput) (*models.StockRecord, error)
	GetStock(ctx context.Context, productID uuid.UUID) (*StockDTO, error)
	History(ctx context.Context, productID uuid.UUID, params pagination.Params) (*HistoryPage, error)
	Reconcile(ctx context.Context, productID uuid.UUID) (*ReconciliationReport, error)
}

// InitializeInput seeds a new stock record for a product.
type InitializeInput struct {
	InitialStock int
	MinimumStock int
	MaximumStock *int
	Unit         enums.ProductUnit
	ActorID      *uuid.UUID
}

// AdjustInput describes one stock mutation.
type AdjustInput struct {
	ChangeType enums.StockChangeType
	Delta      int
	ActorID    *uuid.UUID
	Notes      *string
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type service struct {
	repo Repository
	tx   txRunner
}

// NewService constructs the stock ledger service.
func NewService(repo Repository, tx txRunner) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("stock ledger repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{repo: repo, tx: tx}, nil
}

// InitializeStock creates the stock record and writes the opening history
// entry so a replay from an empty ledger reproduces the starting quantity.
func (s *service) InitializeStock(ctx context.Context, productID uuid.UUID, input InitializeInput) (*StockDTO, error) {
	if productID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}
	if input.InitialStock < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "initial stock cannot be negative")
	}
	if input.MinimumStock < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "minimum stock cannot be negative")
	}
	if input.MaximumStock != nil && *input.MaximumStock < input.InitialStock {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "maximum stock cannot be below initial stock")
	}
	if !input.Unit.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid stock unit")
	}

	if err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)

		existing, err := txRepo.FindRecord(ctx, productID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load stock record")
		}
		if existing != nil {
			return pkgerrors.New(pkgerrors.CodeConflict, "stock record already exists")
		}

		record := &models.StockRecord{
			ProductID:    productID,
			CurrentStock: input.InitialStock,
			MinimumStock: input.MinimumStock,
			MaximumStock: input.MaximumStock,
			Unit:         input.Unit,
		}
		if err := txRepo.CreateRecord(ctx, record); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert stock record")
		}

		if input.InitialStock > 0 {
			entry := &models.StockHistoryEntry{
				ProductID:     productID,
				ChangeType:    enums.StockChangeRestock,
				QuantityDelta: input.InitialStock,
				PreviousStock: 0,
				NewStock:      input.InitialStock,
				ActorID:       input.ActorID,
			}
			if err := txRepo.InsertHistory(ctx, entry); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert stock history")
			}
			if err := txRepo.TouchRestockedAt(ctx, productID, time.Now().UTC()); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: touch restocked_at")
			}
		}
		return nil
	}); err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "initialize stock")
	}

	return s.GetStock(ctx, productID)
}

// Adjust applies one mutation in its own transaction.
func (s *service) Adjust(ctx context.Context, productID uuid.UUID, input AdjustInput) (*StockDTO, error) {
	var record *models.StockRecord
	if err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		updated, err := s.AdjustTx(ctx, tx, productID, input)
		if err != nil {
			return err
		}
		record = updated
		return nil
	}); err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "adjust stock")
	}
	return NewStockDTO(record), nil
}

// AdjustTx applies one mutation inside the caller's transaction. Order
// placement and cancellation use this so stock movement commits or rolls back
// together with the order row.
func (s *service) AdjustTx(ctx context.Context, tx *gorm.DB, productID uuid.UUID, input AdjustInput) (*models.StockRecord, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "transaction required for stock adjustment")
	}
	if productID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}
	if !input.ChangeType.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid stock change type")
	}
	if !input.ChangeType.AllowsDelta(input.Delta) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("delta %d not allowed for change type %s", input.Delta, input.ChangeType))
	}

	txRepo := s.repo.WithTx(tx)

	applied, err := txRepo.ApplyDelta(ctx, productID, input.Delta)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: apply stock delta")
	}
	if !applied {
		record, err := txRepo.FindRecord(ctx, productID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load stock record")
		}
		if record == nil {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "stock record not found")
		}
		return nil, pkgerrors.New(pkgerrors.CodeInsufficientStock,
			fmt.Sprintf("insufficient stock: have %d, need %d", record.CurrentStock, -input.Delta))
	}

	record, err := txRepo.FindRecord(ctx, productID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: reload stock record")
	}
	if record == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "stock record vanished after update")
	}

	entry := &models.StockHistoryEntry{
		ProductID:     productID,
		ChangeType:    input.ChangeType,
		QuantityDelta: input.Delta,
		PreviousStock: record.CurrentStock - input.Delta,
		NewStock:      record.CurrentStock,
		ActorID:       input.ActorID,
		Notes:         input.Notes,
	}
	if err := txRepo.InsertHistory(ctx, entry); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert stock history")
	}

	if input.ChangeType == enums.StockChangeRestock {
		if err := txRepo.TouchRestockedAt(ctx, productID, time.Now().UTC()); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: touch restocked_at")
		}
	}

	if err := s.syncProductStatus(ctx, txRepo, productID, record.CurrentStock); err != nil {
		return nil, err
	}
	return record, nil
}

// syncProductStatus flips a product between active and out_of_stock as its
// quantity crosses zero. Archived products are left alone.
func (s *service) syncProductStatus(ctx context.Context, txRepo Repository, productID uuid.UUID, currentStock int) error {
	product, err := txRepo.FindProduct(ctx, productID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load product")
	}
	if product == nil || product.Status == enums.ProductStatusArchived {
		return nil
	}

	var target enums.ProductStatus
	switch {
	case currentStock == 0 && product.Status == enums.ProductStatusActive:
		target = enums.ProductStatusOutOfStock
	case currentStock > 0 && product.Status == enums.ProductStatusOutOfStock:
		target = enums.ProductStatusActive
	default:
		return nil
	}
	if err := txRepo.SetProductStatus(ctx, productID, target); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update product status")
	}
	return nil
}

func (s *service) GetStock(ctx context.Context, productID uuid.UUID) (*StockDTO, error) {
	if productID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}
	record, err := s.repo.FindRecord(ctx, productID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load stock record")
	}
	if record == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "stock record not found")
	}
	return NewStockDTO(record), nil
}

func (s *service) History(ctx context.Context, productID uuid.UUID, params pagination.Params) (*HistoryPage, error) {
	if productID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}

	limit := pagination.NormalizeLimit(params.Limit)
	query := HistoryQuery{
		ProductID: productID,
		Limit:     pagination.LimitWithBuffer(params.Limit),
	}
	if params.Cursor != "" {
		cursor, err := pagination.ParseCursor(params.Cursor)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		query.Cursor = cursor
	}

	rows, err := s.repo.ListHistory(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list stock history")
	}

	nextCursor := ""
	if len(rows) > limit {
		nextCursor = pagination.EncodeCursor(pagination.Cursor{
			CreatedAt: rows[limit].CreatedAt,
			ID:        rows[limit].ID,
		})
		rows = rows[:limit]
	}

	entries := make([]HistoryEntryDTO, len(rows))
	for i, row := range rows {
		entries[i] = newHistoryEntryDTO(row)
	}
	return &HistoryPage{Entries: entries, NextCursor: nextCursor}, nil
}

// Reconcile replays every history delta for the product and compares the
// result with the stored quantity.
func (s *service) Reconcile(ctx context.Context, productID uuid.UUID) (*ReconciliationReport, error) {
	if productID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}
	record, err := s.repo.FindRecord(ctx, productID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load stock record")
	}
	if record == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "stock record not found")
	}

	total, err := s.repo.SumHistoryDeltas(ctx, productID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: replay stock history")
	}

	return &ReconciliationReport{
		ProductID:     productID,
		CurrentStock:  record.CurrentStock,
		ReplayedStock: int(total),
		Consistent:    record.CurrentStock == int(total),
		CheckedAt:     time.Now().UTC(),
	}, nil
}
