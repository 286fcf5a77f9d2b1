package bookings

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/viatura/viatura-backend/internal/availability"
	"github.com/viatura/viatura-backend/internal/orders"
	"github.com/viatura/viatura-backend/pkg/db/models"
	"github.com/viatura/viatura-backend/pkg/enums"
	pkgerrors "github.com/viatura/viatura-backend/pkg/errors"
)

// Service drives room bookings. Creation runs check-then-insert under the
// room row lock so two guests cannot win the same window.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*BookingDTO, error)
	Get(ctx context.Context, id uuid.UUID) (*BookingDTO, error)
	Accept(ctx context.Context, id uuid.UUID) (*BookingDTO, error)
	ConfirmArrival(ctx context.Context, id uuid.UUID, code string) (*BookingDTO, error)
	Cancel(ctx context.Context, id uuid.UUID, actor enums.CancelActor, reason string) (*BookingDTO, error)
	ExpireOverdueArrivals(ctx context.Context, ttl time.Duration) (int, error)
}

// CreateInput is the validated payload to reserve a room.
type CreateInput struct {
	RoomID   uuid.UUID
	GuestID  uuid.UUID
	CheckIn  time.Time
	CheckOut time.Time
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type availabilityChecker interface {
	CheckTx(ctx context.Context, tx *gorm.DB, roomID uuid.UUID, start, end time.Time) (*availability.Result, error)
}

type service struct {
	repo    Repository
	tx      txRunner
	checker availabilityChecker
}

// NewService constructs the booking service.
func NewService(repo Repository, tx txRunner, checker availabilityChecker) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("booking repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if checker == nil {
		return nil, fmt.Errorf("availability checker required")
	}
	return &service{repo: repo, tx: tx, checker: checker}, nil
}

// Create reserves [CheckIn, CheckOut). The room lock, the availability check,
// and the insert share one transaction; a losing writer sees the winner's row
// and gets a conflict.
func (s *service) Create(ctx context.Context, input CreateInput) (*BookingDTO, error) {
	if input.RoomID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "room id required")
	}
	if input.GuestID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "guest id required")
	}
	if !input.CheckOut.After(input.CheckIn) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "check-out must be after check-in")
	}

	code, err := orders.NewArrivalCode()
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "issue arrival code")
	}
	issuedAt := time.Now().UTC()

	var bookingID uuid.UUID
	if err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)

		locked, err := txRepo.LockRoom(ctx, input.RoomID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: lock room")
		}
		if !locked {
			return pkgerrors.New(pkgerrors.CodeNotFound, "room not found")
		}

		result, err := s.checker.CheckTx(ctx, tx, input.RoomID, input.CheckIn, input.CheckOut)
		if err != nil {
			return err
		}
		if !result.Available() {
			return pkgerrors.New(pkgerrors.CodeConflict,
				fmt.Sprintf("room unavailable: %s", result.Reason))
		}

		room, err := txRepo.FindRoom(ctx, input.RoomID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load room")
		}

		booking := &models.Booking{
			ID:                  uuid.New(),
			RoomID:              input.RoomID,
			GuestID:             input.GuestID,
			CheckIn:             input.CheckIn,
			CheckOut:            input.CheckOut,
			Status:              enums.OrderStatusPending,
			TotalAmount:         totalFor(room, input.CheckIn, input.CheckOut),
			ArrivalCode:         &code,
			ArrivalCodeIssuedAt: &issuedAt,
		}
		if err := txRepo.Create(ctx, booking); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert booking")
		}
		bookingID = booking.ID
		return nil
	}); err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create booking")
	}

	return s.Get(ctx, bookingID)
}

func totalFor(room *models.Room, checkIn, checkOut time.Time) decimal.Decimal {
	nights := int(math.Ceil(checkOut.Sub(checkIn).Hours() / 24))
	if nights < 1 {
		nights = 1
	}
	return room.NightlyRate.Mul(decimal.NewFromInt(int64(nights)))
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*BookingDTO, error) {
	booking, err := s.load(ctx, s.repo, id)
	if err != nil {
		return nil, err
	}
	return NewBookingDTO(booking), nil
}

// Accept confirms the stay. The guest's arrival code was generated when the
// booking was created.
func (s *service) Accept(ctx context.Context, id uuid.UUID) (*BookingDTO, error) {
	booking, err := s.load(ctx, s.repo, id)
	if err != nil {
		return nil, err
	}
	if !enums.CanTransition(booking.Status, enums.OrderStatusAccepted) {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("transition %s -> accepted not allowed", booking.Status))
	}

	now := time.Now().UTC()
	applied, err := s.repo.Transition(ctx, id, booking.Status, enums.OrderStatusAccepted, map[string]any{
		"confirmed_at": now,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: accept booking")
	}
	if !applied {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "booking changed concurrently")
	}
	return s.Get(ctx, id)
}

// ConfirmArrival is the pickup equivalent for stays. Bookings skip the
// preparation states, so accepted goes straight to picked_up here; this is
// the one edge outside the shared transition table.
func (s *service) ConfirmArrival(ctx context.Context, id uuid.UUID, code string) (*BookingDTO, error) {
	booking, err := s.load(ctx, s.repo, id)
	if err != nil {
		return nil, err
	}
	if booking.Status != enums.OrderStatusAccepted {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("booking is %s, not awaiting arrival", booking.Status))
	}
	if booking.ArrivalCode == nil || !orders.CodeMatches(*booking.ArrivalCode, code) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "arrival code mismatch")
	}

	now := time.Now().UTC()
	applied, err := s.repo.Transition(ctx, id, enums.OrderStatusAccepted, enums.OrderStatusPickedUp, map[string]any{
		"customer_arrived_at": now,
		"arrival_code":        nil,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: confirm arrival")
	}
	if !applied {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "booking changed concurrently")
	}
	return s.Get(ctx, id)
}

// Cancel is logical only. The booking leaves the active set, which frees the
// window for the next availability check; nothing else is touched.
func (s *service) Cancel(ctx context.Context, id uuid.UUID, actor enums.CancelActor, reason string) (*BookingDTO, error) {
	if !actor.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid cancel actor")
	}
	if reason == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cancellation reason required")
	}

	booking, err := s.load(ctx, s.repo, id)
	if err != nil {
		return nil, err
	}
	target := actor.TerminalStatus()
	if !enums.CanTransition(booking.Status, target) {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("cannot cancel booking in status %s as %s", booking.Status, actor))
	}

	now := time.Now().UTC()
	applied, err := s.repo.Transition(ctx, id, booking.Status, target, map[string]any{
		"cancelled_at":        now,
		"cancellation_reason": reason,
		"cancelled_by":        actor,
		"arrival_code":        nil,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: cancel booking")
	}
	if !applied {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "booking changed concurrently")
	}
	return s.Get(ctx, id)
}

// ExpireOverdueArrivals sweeps accepted bookings whose guest never showed up
// within ttl of check-in: marks no-show and system-cancels. Returns how many
// were swept.
func (s *service) ExpireOverdueArrivals(ctx context.Context, ttl time.Duration) (int, error) {
	cutoff := time.Now().UTC().Add(-ttl)
	overdue, err := s.repo.ListOverdueArrivals(ctx, cutoff)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list overdue bookings")
	}

	swept := 0
	for _, booking := range overdue {
		now := time.Now().UTC()
		applied, err := s.repo.Transition(ctx, booking.ID,
			enums.OrderStatusAccepted, enums.OrderStatusCancelledByBusiness,
			map[string]any{
				"no_show_at":          now,
				"cancelled_at":        now,
				"cancellation_reason": "guest did not arrive",
				"cancelled_by":        enums.CancelActorSystem,
				"arrival_code":        nil,
			})
		if err != nil {
			return swept, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: expire booking")
		}
		if applied {
			swept++
		}
	}
	return swept, nil
}

func (s *service) load(ctx context.Context, repo Repository, id uuid.UUID) (*models.Booking, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "booking id required")
	}
	booking, err := repo.FindByID(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load booking")
	}
	if booking == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "booking not found")
	}
	return booking, nil
}
