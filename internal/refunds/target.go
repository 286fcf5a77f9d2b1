package refunds

import (
	"github.com/google/uuid"

	"github.com/viatura/viatura-backend/pkg/enums"
	pkgerrors "github.com/viatura/viatura-backend/pkg/errors"
)

// Target identifies what a refund pays back. The set of variants is closed:
// OrderTarget and BookingTarget are the only implementations.
type Target interface {
	Kind() enums.RefundTargetKind
	TargetID() uuid.UUID

	sealed()
}

// OrderTarget points a refund at a shop order.
type OrderTarget struct {
	OrderID uuid.UUID
}

func (t OrderTarget) Kind() enums.RefundTargetKind { return enums.RefundTargetOrder }
func (t OrderTarget) TargetID() uuid.UUID          { return t.OrderID }
func (OrderTarget) sealed()                        {}

// BookingTarget points a refund at a room booking.
type BookingTarget struct {
	BookingID uuid.UUID
}

func (t BookingTarget) Kind() enums.RefundTargetKind { return enums.RefundTargetBooking }
func (t BookingTarget) TargetID() uuid.UUID          { return t.BookingID }
func (BookingTarget) sealed()                        {}

// TargetFor rebuilds the typed target from its persisted kind and id.
func TargetFor(kind enums.RefundTargetKind, id uuid.UUID) (Target, error) {
	switch kind {
	case enums.RefundTargetOrder:
		return OrderTarget{OrderID: id}, nil
	case enums.RefundTargetBooking:
		return BookingTarget{BookingID: id}, nil
	default:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown refund target kind")
	}
}
