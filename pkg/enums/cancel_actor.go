package enums

import "fmt"

// CancelActor records who initiated a cancellation.
type CancelActor string

const (
	CancelActorUser     CancelActor = "user"
	CancelActorBusiness CancelActor = "business"
	CancelActorSystem   CancelActor = "system"
)

var validCancelActors = []CancelActor{
	CancelActorUser,
	CancelActorBusiness,
	CancelActorSystem,
}

// String implements fmt.Stringer.
func (c CancelActor) String() string {
	return string(c)
}

// IsValid reports whether the value is a known CancelActor.
func (c CancelActor) IsValid() bool {
	for _, candidate := range validCancelActors {
		if candidate == c {
			return true
		}
	}
	return false
}

// TerminalStatus maps the cancelling actor to the cancelled order status.
// System cancellations (no-shows, full refunds) land on the business side.
func (c CancelActor) TerminalStatus() OrderStatus {
	if c == CancelActorUser {
		return OrderStatusCancelledByUser
	}
	return OrderStatusCancelledByBusiness
}

// ParseCancelActor converts raw input into a CancelActor.
func ParseCancelActor(value string) (CancelActor, error) {
	for _, candidate := range validCancelActors {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid cancel actor %q", value)
}
