package rooms

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/viatura/viatura-backend/pkg/db/models"
	"github.com/viatura/viatura-backend/pkg/enums"
	pkgerrors "github.com/viatura/viatura-backend/pkg/errors"
)

func setupRoomsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := "file:rooms_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	for _, stmt := range []string{
		`CREATE TABLE IF NOT EXISTS rooms (
  id TEXT PRIMARY KEY,
  business_id TEXT NOT NULL,
  name TEXT NOT NULL,
  nightly_rate TEXT NOT NULL,
  hourly_rate TEXT,
  notes TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS bookings (
  id TEXT PRIMARY KEY,
  room_id TEXT NOT NULL,
  guest_id TEXT NOT NULL,
  check_in DATETIME NOT NULL,
  check_out DATETIME NOT NULL,
  status TEXT NOT NULL DEFAULT 'pending',
  arrival_code TEXT,
  arrival_code_issued_at DATETIME,
  total_amount TEXT NOT NULL,
  confirmed_at DATETIME,
  customer_arrived_at DATETIME,
  cancelled_at DATETIME,
  cancellation_reason TEXT,
  cancelled_by TEXT,
  no_show_at DATETIME,
  refund_amount TEXT,
  refund_id TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS room_blocks (
  id TEXT PRIMARY KEY,
  room_id TEXT NOT NULL,
  starts_at DATETIME NOT NULL,
  ends_at DATETIME NOT NULL,
  reason TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'active',
  created_by TEXT NOT NULL,
  cancelled_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`,
	} {
		require.NoError(t, db.Exec(stmt).Error)
	}
	return db
}

func newRoomService(t *testing.T, db *gorm.DB) Service {
	t.Helper()
	svc, err := NewService(NewRepository(db))
	require.NoError(t, err)
	return svc
}

func createRoom(t *testing.T, svc Service) *RoomDTO {
	t.Helper()
	room, err := svc.CreateRoom(context.Background(), CreateRoomInput{
		BusinessID:  uuid.New(),
		Name:        "loft",
		NightlyRate: decimal.NewFromInt(150),
	})
	require.NoError(t, err)
	return room
}

func TestStatusProjection(t *testing.T) {
	t.Parallel()

	db := setupRoomsTestDB(t)
	svc := newRoomService(t, db)
	room := createRoom(t, svc)
	ctx := context.Background()
	at := time.Date(2026, 11, 3, 12, 0, 0, 0, time.UTC)

	status, err := svc.StatusAt(ctx, room.ID, at)
	require.NoError(t, err)
	require.Equal(t, enums.RoomStatusAvailable, status)

	// A live booking over the instant makes it reserved.
	booking := models.Booking{
		ID:          uuid.New(),
		RoomID:      room.ID,
		GuestID:     uuid.New(),
		CheckIn:     at.Add(-12 * time.Hour),
		CheckOut:    at.Add(36 * time.Hour),
		Status:      enums.OrderStatusAccepted,
		TotalAmount: decimal.NewFromInt(300),
	}
	require.NoError(t, db.Create(&booking).Error)

	status, err = svc.StatusAt(ctx, room.ID, at)
	require.NoError(t, err)
	require.Equal(t, enums.RoomStatusReserved, status)

	// Arrival confirmation flips it to occupied.
	arrived := at.Add(-time.Hour)
	require.NoError(t, db.Model(&models.Booking{}).
		Where("id = ?", booking.ID).
		Updates(map[string]any{
			"status":              enums.OrderStatusPickedUp,
			"customer_arrived_at": arrived,
		}).Error)

	status, err = svc.StatusAt(ctx, room.ID, at)
	require.NoError(t, err)
	require.Equal(t, enums.RoomStatusOccupied, status)

	// A maintenance block wins over everything.
	block, err := svc.CreateBlock(ctx, CreateBlockInput{
		RoomID:    room.ID,
		StartsAt:  at.Add(-time.Hour),
		EndsAt:    at.Add(time.Hour),
		Reason:    "burst pipe",
		CreatedBy: uuid.New(),
	})
	require.NoError(t, err)

	status, err = svc.StatusAt(ctx, room.ID, at)
	require.NoError(t, err)
	require.Equal(t, enums.RoomStatusMaintenance, status)

	// Cancelling the block hands the status back to the booking.
	_, err = svc.CancelBlock(ctx, block.ID)
	require.NoError(t, err)

	status, err = svc.StatusAt(ctx, room.ID, at)
	require.NoError(t, err)
	require.Equal(t, enums.RoomStatusOccupied, status)
}

func TestCancelBlockTwice(t *testing.T) {
	t.Parallel()

	db := setupRoomsTestDB(t)
	svc := newRoomService(t, db)
	room := createRoom(t, svc)
	ctx := context.Background()

	block, err := svc.CreateBlock(ctx, CreateBlockInput{
		RoomID:    room.ID,
		StartsAt:  time.Now(),
		EndsAt:    time.Now().Add(24 * time.Hour),
		Reason:    "painting",
		CreatedBy: uuid.New(),
	})
	require.NoError(t, err)

	cancelled, err := svc.CancelBlock(ctx, block.ID)
	require.NoError(t, err)
	require.Equal(t, enums.BlockStatusCancelled, cancelled.Status)
	require.NotNil(t, cancelled.CancelledAt)

	_, err = svc.CancelBlock(ctx, block.ID)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeStateConflict, typed.Code())
}

func TestCreateRoomValidation(t *testing.T) {
	t.Parallel()

	db := setupRoomsTestDB(t)
	svc := newRoomService(t, db)

	_, err := svc.CreateRoom(context.Background(), CreateRoomInput{
		BusinessID:  uuid.New(),
		Name:        "  ",
		NightlyRate: decimal.NewFromInt(100),
	})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeValidation, typed.Code())

	_, err = svc.CreateRoom(context.Background(), CreateRoomInput{
		BusinessID:  uuid.New(),
		Name:        "basement",
		NightlyRate: decimal.Zero,
	})
	typed = pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeValidation, typed.Code())
}
