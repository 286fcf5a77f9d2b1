package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/viatura/viatura-backend/pkg/enums"
)

// StockRecord holds the authoritative on-hand quantity for a product.
// CurrentStock is only ever changed through conditional updates that forbid
// going negative.
type StockRecord struct {
	ProductID       uuid.UUID         `gorm:"column:product_id;type:uuid;primaryKey"`
	CurrentStock    int               `gorm:"column:current_stock;not null;default:0"`
	MinimumStock    int               `gorm:"column:minimum_stock;not null;default:0"`
	MaximumStock    *int              `gorm:"column:maximum_stock"`
	Unit            enums.ProductUnit `gorm:"column:unit;type:product_unit;not null;default:'piece'"`
	LastRestockedAt *time.Time        `gorm:"column:last_restocked_at"`
	UpdatedAt       time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}
