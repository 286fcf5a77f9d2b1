package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/viatura/viatura-backend/pkg/enums"
)

// StockHistoryEntry is an append-only record of one stock mutation. Rows are
// written in the same transaction as the StockRecord update and are never
// modified afterwards, so replaying deltas reproduces CurrentStock.
type StockHistoryEntry struct {
	ID            uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ProductID     uuid.UUID             `gorm:"column:product_id;type:uuid;not null;index"`
	ChangeType    enums.StockChangeType `gorm:"column:change_type;type:stock_change_type;not null"`
	QuantityDelta int                   `gorm:"column:quantity_delta;not null"`
	PreviousStock int                   `gorm:"column:previous_stock;not null"`
	NewStock      int                   `gorm:"column:new_stock;not null"`
	ActorID       *uuid.UUID            `gorm:"column:actor_id;type:uuid"`
	Notes         *string               `gorm:"column:notes"`
	CreatedAt     time.Time             `gorm:"column:created_at;autoCreateTime"`
}
