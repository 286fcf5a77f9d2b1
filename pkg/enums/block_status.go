package enums

import "fmt"

// BlockStatus tracks whether an administrative room block still participates
// in the overlap invariant.
type BlockStatus string

const (
	BlockStatusActive    BlockStatus = "active"
	BlockStatusCancelled BlockStatus = "cancelled"
)

var validBlockStatuses = []BlockStatus{
	BlockStatusActive,
	BlockStatusCancelled,
}

// String implements fmt.Stringer.
func (b BlockStatus) String() string {
	return string(b)
}

// IsValid reports whether the value is a known BlockStatus.
func (b BlockStatus) IsValid() bool {
	for _, candidate := range validBlockStatuses {
		if candidate == b {
			return true
		}
	}
	return false
}

// ParseBlockStatus converts raw input into a BlockStatus.
func ParseBlockStatus(value string) (BlockStatus, error) {
	for _, candidate := range validBlockStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid block status %q", value)
}
