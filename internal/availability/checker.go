package availability

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/viatura/viatura-backend/pkg/db/models"
	"github.com/viatura/viatura-backend/pkg/enums"
	pkgerrors "github.com/viatura/viatura-backend/pkg/errors"
)

// Reason classifies why a window is or is not bookable.
type Reason string

const (
	// ReasonAvailable means no booking or block overlaps the window.
	ReasonAvailable Reason = "available"
	// ReasonBookingConflict means a live booking overlaps the window.
	ReasonBookingConflict Reason = "booking_conflict"
	// ReasonBlocked means an active room block overlaps the window.
	ReasonBlocked Reason = "blocked"
)

// Result reports the availability decision plus the rows that caused a
// rejection, for surfacing in API responses.
type Result struct {
	Reason     Reason      `json:"reason"`
	BookingIDs []uuid.UUID `json:"booking_ids,omitempty"`
	BlockIDs   []uuid.UUID `json:"block_ids,omitempty"`
}

// Available is a convenience accessor.
func (r Result) Available() bool {
	return r.Reason == ReasonAvailable
}

// Checker answers whether a room is free over a half-open window
// [start, end). It holds no state beyond the DB handle.
type Checker interface {
	Check(ctx context.Context, roomID uuid.UUID, start, end time.Time) (*Result, error)
	CheckTx(ctx context.Context, tx *gorm.DB, roomID uuid.UUID, start, end time.Time) (*Result, error)
}

type checker struct {
	db *gorm.DB
}

// NewChecker builds an availability checker.
func NewChecker(db *gorm.DB) (Checker, error) {
	if db == nil {
		return nil, fmt.Errorf("db handle required")
	}
	return &checker{db: db}, nil
}

func (c *checker) Check(ctx context.Context, roomID uuid.UUID, start, end time.Time) (*Result, error) {
	return c.CheckTx(ctx, c.db, roomID, start, end)
}

// CheckTx runs the availability decision on the caller's transaction. Booking
// creation calls this after locking the room row, so check plus insert behave
// as one step against concurrent writers.
func (c *checker) CheckTx(ctx context.Context, tx *gorm.DB, roomID uuid.UUID, start, end time.Time) (*Result, error) {
	if tx == nil {
		tx = c.db
	}
	if roomID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "room id required")
	}
	if !end.After(start) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "window end must be after start")
	}

	bookingIDs, err := overlappingBookings(ctx, tx, roomID, start, end)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: scan bookings")
	}
	if len(bookingIDs) > 0 {
		return &Result{Reason: ReasonBookingConflict, BookingIDs: bookingIDs}, nil
	}

	blockIDs, err := overlappingBlocks(ctx, tx, roomID, start, end)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: scan blocks")
	}
	if len(blockIDs) > 0 {
		return &Result{Reason: ReasonBlocked, BlockIDs: blockIDs}, nil
	}

	return &Result{Reason: ReasonAvailable}, nil
}

// Overlap is half-open on both sides: a booking ending exactly at the window
// start does not collide, nor does one starting exactly at the window end.
func overlappingBookings(ctx context.Context, tx *gorm.DB, roomID uuid.UUID, start, end time.Time) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := tx.WithContext(ctx).
		Model(&models.Booking{}).
		Where("room_id = ?", roomID).
		Where("status NOT IN ?", enums.TerminalOrderStatuses()).
		Where("check_in < ? AND check_out > ?", end, start).
		Pluck("id", &ids).Error
	return ids, err
}

func overlappingBlocks(ctx context.Context, tx *gorm.DB, roomID uuid.UUID, start, end time.Time) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := tx.WithContext(ctx).
		Model(&models.RoomBlock{}).
		Where("room_id = ?", roomID).
		Where("status = ?", enums.BlockStatusActive).
		Where("starts_at < ? AND ends_at > ?", end, start).
		Pluck("id", &ids).Error
	return ids, err
}
