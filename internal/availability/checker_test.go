package availability

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
)

func setupAvailabilityTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := "file:availability_" + uuid.NewString() + "?mode=memory&cache=shared"
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

func seedRoom(t *testing.T, db *gorm.DB) uuid.UUID {
	t.Helper()
	room := models.Room{
		ID:          uuid.New(),
		BusinessID:  uuid.New(),
		Name:        "sea view double",
		NightlyRate: decimal.NewFromInt(120),
	}
	require.NoError(t, db.Create(&room).Error)
	return room.ID
}

func seedBooking(t *testing.T, db *gorm.DB, roomID uuid.UUID, status enums.OrderStatus, checkIn, checkOut time.Time) uuid.UUID {
	t.Helper()
	booking := models.Booking{
		ID:          uuid.New(),
		RoomID:      roomID,
		GuestID:     uuid.New(),
		CheckIn:     checkIn,
		CheckOut:    checkOut,
		Status:      status,
		TotalAmount: decimal.NewFromInt(240),
	}
	require.NoError(t, db.Create(&booking).Error)
	return booking.ID
}

func TestCheckHalfOpenWindows(t *testing.T) {
	t.Parallel()

	db := setupAvailabilityTestDB(t)
	checker, err := NewChecker(db)
	require.NoError(t, err)
	roomID := seedRoom(t, db)

	base := time.Date(2026, 9, 10, 15, 0, 0, 0, time.UTC)
	night := 24 * time.Hour
	booked := seedBooking(t, db, roomID, enums.OrderStatusAccepted, base, base.Add(2*night))

	cases := []struct {
		name   string
		start  time.Time
		end    time.Time
		reason Reason
	}{
		{"identical window", base, base.Add(2 * night), ReasonBookingConflict},
		{"contained window", base.Add(night), base.Add(2 * night), ReasonBookingConflict},
		{"overlap at tail", base.Add(night), base.Add(3 * night), ReasonBookingConflict},
		{"starts at checkout", base.Add(2 * night), base.Add(3 * night), ReasonAvailable},
		{"ends at checkin", base.Add(-2 * night), base, ReasonAvailable},
		{"disjoint after", base.Add(5 * night), base.Add(6 * night), ReasonAvailable},
	}
	for _, tc := range cases {
		res, err := checker.Check(context.Background(), roomID, tc.start, tc.end)
		require.NoError(t, err, tc.name)
		if res.Reason != tc.reason {
			t.Fatalf("%s: expected %s, got %s", tc.name, tc.reason, res.Reason)
		}
		if tc.reason == ReasonBookingConflict {
			require.Equal(t, []uuid.UUID{booked}, res.BookingIDs, tc.name)
		}
	}
}

func TestCheckIgnoresTerminalBookings(t *testing.T) {
	t.Parallel()

	db := setupAvailabilityTestDB(t)
	checker, err := NewChecker(db)
	require.NoError(t, err)
	roomID := seedRoom(t, db)

	base := time.Date(2026, 9, 10, 15, 0, 0, 0, time.UTC)
	end := base.Add(48 * time.Hour)
	for _, status := range []enums.OrderStatus{
		enums.OrderStatusCancelledByUser,
		enums.OrderStatusCancelledByBusiness,
		enums.OrderStatusFailedPayment,
		enums.OrderStatusPickedUp,
	} {
		seedBooking(t, db, roomID, status, base, end)
	}

	res, err := checker.Check(context.Background(), roomID, base, end)
	require.NoError(t, err)
	require.Equal(t, ReasonAvailable, res.Reason)
}

func TestCheckReportsBlocks(t *testing.T) {
	t.Parallel()

	db := setupAvailabilityTestDB(t)
	checker, err := NewChecker(db)
	require.NoError(t, err)
	roomID := seedRoom(t, db)

	base := time.Date(2026, 9, 10, 0, 0, 0, 0, time.UTC)
	block := models.RoomBlock{
		ID:        uuid.New(),
		RoomID:    roomID,
		StartsAt:  base,
		EndsAt:    base.Add(72 * time.Hour),
		Reason:    "deep cleaning",
		Status:    enums.BlockStatusActive,
		CreatedBy: uuid.New(),
	}
	require.NoError(t, db.Create(&block).Error)

	res, err := checker.Check(context.Background(), roomID, base.Add(24*time.Hour), base.Add(48*time.Hour))
	require.NoError(t, err)
	require.Equal(t, ReasonBlocked, res.Reason)
	require.Equal(t, []uuid.UUID{block.ID}, res.BlockIDs)

	// Cancelled blocks stop counting.
	require.NoError(t, db.Model(&models.RoomBlock{}).
		Where("id = ?", block.ID).
		UpdateColumn("status", enums.BlockStatusCancelled).Error)

	res, err = checker.Check(context.Background(), roomID, base.Add(24*time.Hour), base.Add(48*time.Hour))
	require.NoError(t, err)
	require.Equal(t, ReasonAvailable, res.Reason)
}

func TestCheckPrefersBookingConflictOverBlock(t *testing.T) {
	t.Parallel()

	db := setupAvailabilityTestDB(t)
	checker, err := NewChecker(db)
	require.NoError(t, err)
	roomID := seedRoom(t, db)

	base := time.Date(2026, 9, 10, 15, 0, 0, 0, time.UTC)
	end := base.Add(24 * time.Hour)
	seedBooking(t, db, roomID, enums.OrderStatusPending, base, end)
	require.NoError(t, db.Create(&models.RoomBlock{
		ID:        uuid.New(),
		RoomID:    roomID,
		StartsAt:  base,
		EndsAt:    end,
		Reason:    "maintenance",
		Status:    enums.BlockStatusActive,
		CreatedBy: uuid.New(),
	}).Error)

	res, err := checker.Check(context.Background(), roomID, base, end)
	require.NoError(t, err)
	require.Equal(t, ReasonBookingConflict, res.Reason)
}

func TestCheckRejectsInvertedWindow(t *testing.T) {
	t.Parallel()

	db := setupAvailabilityTestDB(t)
	checker, err := NewChecker(db)
	require.NoError(t, err)
	roomID := seedRoom(t, db)

	now := time.Now()
	if _, err := checker.Check(context.Background(), roomID, now, now); err == nil {
		t.Fatal("expected validation error for empty window")
	}
}
