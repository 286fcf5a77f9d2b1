package enums

import "fmt"

// OrderStatus tracks the lifecycle of a shop order or accommodation booking.
// Both entities share the same state machine.
type OrderStatus string

const (
	OrderStatusPending             OrderStatus = "pending"
	OrderStatusAccepted            OrderStatus = "accepted"
	OrderStatusPreparing           OrderStatus = "preparing"
	OrderStatusReadyForPickup      OrderStatus = "ready_for_pickup"
	OrderStatusPickedUp            OrderStatus = "picked_up"
	OrderStatusCancelledByUser     OrderStatus = "cancelled_by_user"
	OrderStatusCancelledByBusiness OrderStatus = "cancelled_by_business"
	OrderStatusFailedPayment       OrderStatus = "failed_payment"
)

var validOrderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusAccepted,
	OrderStatusPreparing,
	OrderStatusReadyForPickup,
	OrderStatusPickedUp,
	OrderStatusCancelledByUser,
	OrderStatusCancelledByBusiness,
	OrderStatusFailedPayment,
}

// allowedOrderTransitions is the complete forward edge set. Cancellation by
// the business is handled separately since it applies from any non-terminal
// state.
var allowedOrderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending: {
		OrderStatusAccepted,
		OrderStatusCancelledByUser,
		OrderStatusCancelledByBusiness,
		OrderStatusFailedPayment,
	},
	OrderStatusAccepted: {
		OrderStatusPreparing,
		OrderStatusCancelledByUser,
		OrderStatusCancelledByBusiness,
	},
	OrderStatusPreparing: {
		OrderStatusReadyForPickup,
		OrderStatusCancelledByBusiness,
	},
	OrderStatusReadyForPickup: {
		OrderStatusPickedUp,
		OrderStatusCancelledByBusiness,
	},
}

// String implements fmt.Stringer.
func (o OrderStatus) String() string {
	return string(o)
}

// IsValid reports whether the value is a known OrderStatus.
func (o OrderStatus) IsValid() bool {
	for _, candidate := range validOrderStatuses {
		if candidate == o {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transition is permitted.
func (o OrderStatus) IsTerminal() bool {
	switch o {
	case OrderStatusPickedUp,
		OrderStatusCancelledByUser,
		OrderStatusCancelledByBusiness,
		OrderStatusFailedPayment:
		return true
	}
	return false
}

// IsCancelled reports whether the status is one of the cancelled terminals.
func (o OrderStatus) IsCancelled() bool {
	return o == OrderStatusCancelledByUser || o == OrderStatusCancelledByBusiness
}

// CanTransition reports whether from -> to is in the allowed edge set.
func CanTransition(from, to OrderStatus) bool {
	for _, candidate := range allowedOrderTransitions[from] {
		if candidate == to {
			return true
		}
	}
	return false
}

// TerminalOrderStatuses returns the statuses that exclude a row from the
// active set, for use in NOT IN queries.
func TerminalOrderStatuses() []OrderStatus {
	var out []OrderStatus
	for _, candidate := range validOrderStatuses {
		if candidate.IsTerminal() {
			out = append(out, candidate)
		}
	}
	return out
}

// ParseOrderStatus converts raw input into an OrderStatus.
func ParseOrderStatus(value string) (OrderStatus, error) {
	for _, candidate := range validOrderStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order status %q", value)
}
