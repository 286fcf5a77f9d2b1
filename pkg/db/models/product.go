package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/viatura/viatura-backend/pkg/enums"
)

// Product is a sellable item. Quantities live on the associated StockRecord,
// never here.
type Product struct {
	ID         uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	BusinessID uuid.UUID           `gorm:"column:business_id;type:uuid;not null;index"`
	Name       string              `gorm:"column:name;not null"`
	Price      decimal.Decimal     `gorm:"column:price;type:numeric(12,2);not null"`
	Unit       enums.ProductUnit   `gorm:"column:unit;type:product_unit;not null;default:'piece'"`
	Status     enums.ProductStatus `gorm:"column:status;type:product_status;not null;default:'active'"`
	Stock      *StockRecord        `gorm:"foreignKey:ProductID"`
	CreatedAt  time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
