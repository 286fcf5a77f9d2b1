package enums

import "fmt"

// StockChangeType classifies a stock ledger adjustment.
type StockChangeType string

const (
	StockChangeRestock    StockChangeType = "restock"
	StockChangeSale       StockChangeType = "sale"
	StockChangeAdjustment StockChangeType = "adjustment"
	StockChangeExpired    StockChangeType = "expired"
)

var validStockChangeTypes = []StockChangeType{
	StockChangeRestock,
	StockChangeSale,
	StockChangeAdjustment,
	StockChangeExpired,
}

// String implements fmt.Stringer.
func (s StockChangeType) String() string {
	return string(s)
}

// IsValid reports whether the value is a known StockChangeType.
func (s StockChangeType) IsValid() bool {
	for _, candidate := range validStockChangeTypes {
		if candidate == s {
			return true
		}
	}
	return false
}

// AllowsDelta enforces the sign convention per change type: sales and
// expirations decrement, restocks increment, adjustments go either way.
// A zero delta is never allowed.
func (s StockChangeType) AllowsDelta(delta int) bool {
	if delta == 0 {
		return false
	}
	switch s {
	case StockChangeRestock:
		return delta > 0
	case StockChangeSale, StockChangeExpired:
		return delta < 0
	case StockChangeAdjustment:
		return true
	}
	return false
}

// ParseStockChangeType converts raw input into a StockChangeType.
func ParseStockChangeType(value string) (StockChangeType, error) {
	for _, candidate := range validStockChangeTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid stock change type %q", value)
}
