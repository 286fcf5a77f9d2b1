package rooms

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/viatura/viatura-backend/pkg/db/models"
	"github.com/viatura/viatura-backend/pkg/enums"
)

// Repository exposes room and block persistence.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateRoom(ctx context.Context, room *models.Room) error
	FindRoom(ctx context.Context, id uuid.UUID) (*models.Room, error)
	ListRooms(ctx context.Context, businessID uuid.UUID) ([]models.Room, error)
	CreateBlock(ctx context.Context, block *models.RoomBlock) error
	FindBlock(ctx context.Context, id uuid.UUID) (*models.RoomBlock, error)
	CancelBlock(ctx context.Context, id uuid.UUID, at time.Time) (bool, error)
	ActiveBlocksAt(ctx context.Context, roomID uuid.UUID, at time.Time) ([]models.RoomBlock, error)
	BookingsAt(ctx context.Context, roomID uuid.UUID, at time.Time) ([]models.Booking, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a room repository backed by the provided DB.
func NewRepository(db *gorm.DB) Repository {
	if db == nil {
		return nil
	}
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateRoom(ctx context.Context, room *models.Room) error {
	return r.db.WithContext(ctx).Create(room).Error
}

func (r *repository) FindRoom(ctx context.Context, id uuid.UUID) (*models.Room, error) {
	var room models.Room
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&room).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &room, nil
}

func (r *repository) ListRooms(ctx context.Context, businessID uuid.UUID) ([]models.Room, error) {
	var rooms []models.Room
	err := r.db.WithContext(ctx).
		Where("business_id = ?", businessID).
		Order("created_at ASC").
		Find(&rooms).Error
	return rooms, err
}

func (r *repository) CreateBlock(ctx context.Context, block *models.RoomBlock) error {
	return r.db.WithContext(ctx).Create(block).Error
}

func (r *repository) FindBlock(ctx context.Context, id uuid.UUID) (*models.RoomBlock, error) {
	var block models.RoomBlock
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&block).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &block, nil
}

// CancelBlock flips an active block to cancelled. Returns false when the
// block was already cancelled or missing.
func (r *repository) CancelBlock(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.RoomBlock{}).
		Where("id = ? AND status = ?", id, enums.BlockStatusActive).
		Updates(map[string]any{
			"status":       enums.BlockStatusCancelled,
			"cancelled_at": at,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repository) ActiveBlocksAt(ctx context.Context, roomID uuid.UUID, at time.Time) ([]models.RoomBlock, error) {
	var blocks []models.RoomBlock
	err := r.db.WithContext(ctx).
		Where("room_id = ? AND status = ?", roomID, enums.BlockStatusActive).
		Where("starts_at <= ? AND ends_at > ?", at, at).
		Find(&blocks).Error
	return blocks, err
}

// BookingsAt keeps picked_up rows: an arrived guest still holds the room
// until checkout, even though the status is terminal for transitions.
func (r *repository) BookingsAt(ctx context.Context, roomID uuid.UUID, at time.Time) ([]models.Booking, error) {
	var bookings []models.Booking
	err := r.db.WithContext(ctx).
		Where("room_id = ?", roomID).
		Where("status NOT IN ?", []enums.OrderStatus{
			enums.OrderStatusCancelledByUser,
			enums.OrderStatusCancelledByBusiness,
			enums.OrderStatusFailedPayment,
		}).
		Where("check_in <= ? AND check_out > ?", at, at).
		Find(&bookings).Error
	return bookings, err
}
