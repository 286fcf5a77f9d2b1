package enums

import "fmt"

// RefundStatus tracks a refund's progress against the payment provider.
type RefundStatus string

const (
	RefundStatusPending    RefundStatus = "pending"
	RefundStatusProcessing RefundStatus = "processing"
	RefundStatusSucceeded  RefundStatus = "succeeded"
	RefundStatusFailed     RefundStatus = "failed"
	RefundStatusCancelled  RefundStatus = "cancelled"
)

var validRefundStatuses = []RefundStatus{
	RefundStatusPending,
	RefundStatusProcessing,
	RefundStatusSucceeded,
	RefundStatusFailed,
	RefundStatusCancelled,
}

var allowedRefundTransitions = map[RefundStatus][]RefundStatus{
	RefundStatusPending:    {RefundStatusProcessing, RefundStatusCancelled, RefundStatusFailed},
	RefundStatusProcessing: {RefundStatusSucceeded, RefundStatusFailed, RefundStatusPending, RefundStatusCancelled},
}

// String implements fmt.Stringer.
func (r RefundStatus) String() string {
	return string(r)
}

// IsValid reports whether the value is a known RefundStatus.
func (r RefundStatus) IsValid() bool {
	for _, candidate := range validRefundStatuses {
		if candidate == r {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the refund can no longer change state.
func (r RefundStatus) IsTerminal() bool {
	switch r {
	case RefundStatusSucceeded, RefundStatusFailed, RefundStatusCancelled:
		return true
	}
	return false
}

// CanTransitionRefund reports whether from -> to is permitted. The
// processing -> pending edge is the automatic retry path after a transient
// provider failure.
func CanTransitionRefund(from, to RefundStatus) bool {
	for _, candidate := range allowedRefundTransitions[from] {
		if candidate == to {
			return true
		}
	}
	return false
}

// ParseRefundStatus converts raw input into a RefundStatus.
func ParseRefundStatus(value string) (RefundStatus, error) {
	for _, candidate := range validRefundStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid refund status %q", value)
}
