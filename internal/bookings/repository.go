package bookings

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/viatura/viatura-backend/pkg/db/models"
	"github.com/viatura/viatura-backend/pkg/enums"
)

// Repository exposes booking persistence.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, booking *models.Booking) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Booking, error)
	Transition(ctx context.Context, id uuid.UUID, from, to enums.OrderStatus, set map[string]any) (bool, error)
	LockRoom(ctx context.Context, roomID uuid.UUID) (bool, error)
	FindRoom(ctx context.Context, roomID uuid.UUID) (*models.Room, error)
	ListOverdueArrivals(ctx context.Context, cutoff time.Time) ([]models.Booking, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a booking repository backed by the provided DB.
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

func (r *repository) Create(ctx context.Context, booking *models.Booking) error {
	return r.db.WithContext(ctx).Create(booking).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Booking, error) {
	var booking models.Booking
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&booking).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &booking, nil
}

// Transition is guarded on the current status, same contract as the order
// repository.
func (r *repository) Transition(ctx context.Context, id uuid.UUID, from, to enums.OrderStatus, set map[string]any) (bool, error) {
	values := map[string]any{"status": to}
	for k, v := range set {
		values[k] = v
	}
	res := r.db.WithContext(ctx).
		Model(&models.Booking{}).
		Where("id = ? AND status = ?", id, from).
		Updates(values)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// LockRoom takes the room's row lock for the rest of the transaction. Every
// booking writer for a room funnels through this update, which serializes the
// availability check against concurrent inserts. Returns false when the room
// does not exist.
func (r *repository) LockRoom(ctx context.Context, roomID uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).Exec(`
		UPDATE rooms
		SET updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, roomID)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repository) FindRoom(ctx context.Context, roomID uuid.UUID) (*models.Room, error) {
	var room models.Room
	err := r.db.WithContext(ctx).
		Where("id = ?", roomID).
		First(&room).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &room, nil
}

func (r *repository) ListOverdueArrivals(ctx context.Context, cutoff time.Time) ([]models.Booking, error) {
	var overdue []models.Booking
	err := r.db.WithContext(ctx).
		Where("status = ? AND check_in <= ?", enums.OrderStatusAccepted, cutoff).
		Order("check_in ASC").
		Find(&overdue).Error
	return overdue, err
}
