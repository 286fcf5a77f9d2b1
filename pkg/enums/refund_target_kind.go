package enums

import "fmt"

// RefundTargetKind discriminates the persisted refund target reference.
// Domain code works with the typed refunds.Target variants; this kind only
// exists at the storage boundary.
type RefundTargetKind string

const (
	RefundTargetOrder   RefundTargetKind = "order"
	RefundTargetBooking RefundTargetKind = "booking"
)

var validRefundTargetKinds = []RefundTargetKind{
	RefundTargetOrder,
	RefundTargetBooking,
}

// String implements fmt.Stringer.
func (r RefundTargetKind) String() string {
	return string(r)
}

// IsValid reports whether the value is a known RefundTargetKind.
func (r RefundTargetKind) IsValid() bool {
	for _, candidate := range validRefundTargetKinds {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseRefundTargetKind converts raw input into a RefundTargetKind.
func ParseRefundTargetKind(value string) (RefundTargetKind, error) {
	for _, candidate := range validRefundTargetKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid refund target kind %q", value)
}
