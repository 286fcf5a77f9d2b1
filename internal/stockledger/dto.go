package stockledger

import (
	"time"

	"github.com/google/uuid"

	"github.com/viatura/viatura-backend/pkg/db/models"
	"github.com/viatura/viatura-backend/pkg/enums"
)

// StockDTO exposes the current ledger state for a product.
type StockDTO struct {
	ProductID       uuid.UUID         `json:"product_id"`
	CurrentStock    int               `json:"current_stock"`
	MinimumStock    int               `json:"minimum_stock"`
	MaximumStock    *int              `json:"maximum_stock,omitempty"`
	Unit            enums.ProductUnit `json:"unit"`
	BelowMinimum    bool              `json:"below_minimum"`
	LastRestockedAt *time.Time        `json:"last_restocked_at,omitempty"`
	UpdatedAt       time.Time         `json:"updated_at"`
}

// HistoryEntryDTO is one immutable ledger line.
type HistoryEntryDTO struct {
	ID            uuid.UUID             `json:"id"`
	ProductID     uuid.UUID             `json:"product_id"`
	ChangeType    enums.StockChangeType `json:"change_type"`
	QuantityDelta int                   `json:"quantity_delta"`
	PreviousStock int                   `json:"previous_stock"`
	NewStock      int                   `json:"new_stock"`
	ActorID       *uuid.UUID            `json:"actor_id,omitempty"`
	Notes         *string               `json:"notes,omitempty"`
	CreatedAt     time.Time             `json:"created_at"`
}

// HistoryPage wraps a page of ledger lines with the cursor to continue from.
type HistoryPage struct {
	Entries    []HistoryEntryDTO `json:"entries"`
	NextCursor string            `json:"next_cursor,omitempty"`
}

// ReconciliationReport compares the stored quantity against a full replay of
// the history deltas.
type ReconciliationReport struct {
	ProductID     uuid.UUID `json:"product_id"`
	CurrentStock  int       `json:"current_stock"`
	ReplayedStock int       `json:"replayed_stock"`
	Consistent    bool      `json:"consistent"`
	CheckedAt     time.Time `json:"checked_at"`
}

// NewStockDTO maps a stock record to its API shape.
func NewStockDTO(record *models.StockRecord) *StockDTO {
	if record == nil {
		return nil
	}
	return &StockDTO{
		ProductID:       record.ProductID,
		CurrentStock:    record.CurrentStock,
		MinimumStock:    record.MinimumStock,
		MaximumStock:    record.MaximumStock,
		Unit:            record.Unit,
		BelowMinimum:    record.CurrentStock < record.MinimumStock,
		LastRestockedAt: record.LastRestockedAt,
		UpdatedAt:       record.UpdatedAt,
	}
}

func newHistoryEntryDTO(entry models.StockHistoryEntry) HistoryEntryDTO {
	return HistoryEntryDTO{
		ID:            entry.ID,
		ProductID:     entry.ProductID,
		ChangeType:    entry.ChangeType,
		QuantityDelta: entry.QuantityDelta,
		PreviousStock: entry.PreviousStock,
		NewStock:      entry.NewStock,
		ActorID:       entry.ActorID,
		Notes:         entry.Notes,
		CreatedAt:     entry.CreatedAt,
	}
}
