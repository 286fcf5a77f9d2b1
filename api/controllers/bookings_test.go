package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	bookingsvc "github.com/viatura/viatura-backend/internal/bookings"
	"github.com/viatura/viatura-backend/pkg/enums"
	pkgerrors "github.com/viatura/viatura-backend/pkg/errors"
)

func TestCreateBooking(t *testing.T) {
	logg := testLogger()
	roomID := uuid.New()
	guestID := uuid.New()
	checkIn := time.Date(2026, 9, 1, 15, 0, 0, 0, time.UTC)
	checkOut := time.Date(2026, 9, 4, 11, 0, 0, 0, time.UTC)

	body := `{"room_id":"` + roomID.String() + `","guest_id":"` + guestID.String() +
		`","check_in":"` + checkIn.Format(time.RFC3339) + `","check_out":"` + checkOut.Format(time.RFC3339) + `"}`

	t.Run("success", func(t *testing.T) {
		stub := &stubBookingService{
			create: func(ctx context.Context, input bookingsvc.CreateInput) (*bookingsvc.BookingDTO, error) {
				if input.RoomID != roomID || input.GuestID != guestID {
					t.Fatalf("unexpected input %+v", input)
				}
				if !input.CheckIn.Equal(checkIn) || !input.CheckOut.Equal(checkOut) {
					t.Fatalf("unexpected window %s..%s", input.CheckIn, input.CheckOut)
				}
				return &bookingsvc.BookingDTO{ID: uuid.New()}, nil
			},
		}
		req := httptest.NewRequest(http.MethodPost, "/api/v1/bookings", strings.NewReader(body))
		rec := httptest.NewRecorder()
		CreateBooking(stub, logg).ServeHTTP(rec, req)
		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
	})

	t.Run("window conflict maps to 409", func(t *testing.T) {
		stub := &stubBookingService{
			create: func(ctx context.Context, input bookingsvc.CreateInput) (*bookingsvc.BookingDTO, error) {
				return nil, pkgerrors.New(pkgerrors.CodeConflict, "room is booked over the requested window")
			},
		}
		req := httptest.NewRequest(http.MethodPost, "/api/v1/bookings", strings.NewReader(body))
		rec := httptest.NewRecorder()
		CreateBooking(stub, logg).ServeHTTP(rec, req)
		if rec.Code != http.StatusConflict {
			t.Fatalf("expected 409, got %d", rec.Code)
		}
	})

	t.Run("unknown field rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/bookings", strings.NewReader(`{"room":"x"}`))
		rec := httptest.NewRecorder()
		CreateBooking(&stubBookingService{}, logg).ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})
}

func TestConfirmArrival(t *testing.T) {
	logg := testLogger()
	bookingID := uuid.New()
	stub := &stubBookingService{
		confirmArrival: func(ctx context.Context, id uuid.UUID, code string) (*bookingsvc.BookingDTO, error) {
			if id != bookingID || code != "915270" {
				t.Fatalf("unexpected args %s %q", id, code)
			}
			return &bookingsvc.BookingDTO{ID: id}, nil
		},
	}
	req := requestWithParam(http.MethodPost, "/api/v1/bookings/"+bookingID.String()+"/arrival", "bookingId", bookingID.String(),
		strings.NewReader(`{"code":"915270"}`))
	rec := httptest.NewRecorder()
	ConfirmArrival(stub, logg).ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

type stubBookingService struct {
	create         func(context.Context, bookingsvc.CreateInput) (*bookingsvc.BookingDTO, error)
	confirmArrival func(context.Context, uuid.UUID, string) (*bookingsvc.BookingDTO, error)
}

func (s *stubBookingService) Create(ctx context.Context, input bookingsvc.CreateInput) (*bookingsvc.BookingDTO, error) {
	return s.create(ctx, input)
}

func (s *stubBookingService) Get(ctx context.Context, id uuid.UUID) (*bookingsvc.BookingDTO, error) {
	panic("unimplemented")
}

func (s *stubBookingService) Accept(ctx context.Context, id uuid.UUID) (*bookingsvc.BookingDTO, error) {
	panic("unimplemented")
}

func (s *stubBookingService) ConfirmArrival(ctx context.Context, id uuid.UUID, code string) (*bookingsvc.BookingDTO, error) {
	return s.confirmArrival(ctx, id, code)
}

func (s *stubBookingService) Cancel(ctx context.Context, id uuid.UUID, actor enums.CancelActor, reason string) (*bookingsvc.BookingDTO, error) {
	panic("unimplemented")
}

func (s *stubBookingService) ExpireOverdueArrivals(ctx context.Context, ttl time.Duration) (int, error) {
	panic("unimplemented")
}
