package stockledger

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/viatura/viatura-backend/pkg/db/models"
	"github.com/viatura/viatura-backend/pkg/enums"
	"github.com/viatura/viatura-backend/pkg/pagination"
)

// Repository exposes stock record and history persistence.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindRecord(ctx context.Context, productID uuid.UUID) (*models.StockRecord, error)
	CreateRecord(ctx context.Context, record *models.StockRecord) error
	ApplyDelta(ctx context.Context, productID uuid.UUID, delta int) (bool, error)
	TouchRestockedAt(ctx context.Context, productID uuid.UUID, at time.Time) error
	InsertHistory(ctx context.Context, entry *models.StockHistoryEntry) error
	ListHistory(ctx context.Context, query HistoryQuery) ([]models.StockHistoryEntry, error)
	SumHistoryDeltas(ctx context.Context, productID uuid.UUID) (int64, error)
	FindProduct(ctx context.Context, productID uuid.UUID) (*models.Product, error)
	SetProductStatus(ctx context.Context, productID uuid.UUID, status enums.ProductStatus) error
}

// HistoryQuery narrows a history listing to one product with cursor paging.
type HistoryQuery struct {
	ProductID uuid.UUID
	Limit     int
	Cursor    *pagination.Cursor
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a stock ledger repository backed by the provided DB.
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

func (r *repository) FindRecord(ctx context.Context, productID uuid.UUID) (*models.StockRecord, error) {
	var record models.StockRecord
	err := r.db.WithContext(ctx).
		Where("product_id = ?", productID).
		First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &record, nil
}

func (r *repository) CreateRecord(ctx context.Context, record *models.StockRecord) error {
	return r.db.WithContext(ctx).Create(record).Error
}

// ApplyDelta moves current_stock by delta, refusing any update that would
// leave the quantity negative. The condition rides inside the UPDATE so two
// concurrent sales cannot both pass a stale read. Returns false when no row
// qualified.
func (r *repository) ApplyDelta(ctx context.Context, productID uuid.UUID, delta int) (bool, error) {
	res := r.db.WithContext(ctx).Exec(`
		UPDATE stock_records
		SET current_stock = current_stock + ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE product_id = ? AND current_stock + ? >= 0
	`, delta, productID, delta)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repository) TouchRestockedAt(ctx context.Context, productID uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.StockRecord{}).
		Where("product_id = ?", productID).
		UpdateColumn("last_restocked_at", at).Error
}

func (r *repository) InsertHistory(ctx context.Context, entry *models.StockHistoryEntry) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *repository) ListHistory(ctx context.Context, query HistoryQuery) ([]models.StockHistoryEntry, error) {
	q := r.db.WithContext(ctx).
		Model(&models.StockHistoryEntry{}).
		Where("product_id = ?", query.ProductID)
	if query.Cursor != nil {
		q = q.Where("(created_at, id) < (?, ?)", query.Cursor.CreatedAt, query.Cursor.ID)
	}

	var entries []models.StockHistoryEntry
	if err := q.Order("created_at DESC, id DESC").Limit(query.Limit).Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *repository) SumHistoryDeltas(ctx context.Context, productID uuid.UUID) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).
		Model(&models.StockHistoryEntry{}).
		Where("product_id = ?", productID).
		Select("COALESCE(SUM(quantity_delta), 0)").
		Scan(&total).Error
	if err != nil {
		return 0, err
	}
	return total, nil
}

func (r *repository) FindProduct(ctx context.Context, productID uuid.UUID) (*models.Product, error) {
	var product models.Product
	err := r.db.WithContext(ctx).
		Where("id = ?", productID).
		First(&product).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &product, nil
}

func (r *repository) SetProductStatus(ctx context.Context, productID uuid.UUID, status enums.ProductStatus) error {
	return r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ?", productID).
		UpdateColumn("status", status).Error
}
