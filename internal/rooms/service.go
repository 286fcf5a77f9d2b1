package rooms

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/viatura/viatura-backend/pkg/db/models"
	"github.com/viatura/viatura-backend/pkg/enums"
	pkgerrors "github.com/viatura/viatura-backend/pkg/errors"
)

// Service manages rooms and blocks. Room status is never stored; StatusAt
// projects it from bookings and blocks on every call.
type Service interface {
	CreateRoom(ctx context.Context, input CreateRoomInput) (*RoomDTO, error)
	GetRoom(ctx context.Context, id uuid.UUID) (*RoomDTO, error)
	ListRooms(ctx context.Context, businessID uuid.UUID) ([]RoomDTO, error)
	CreateBlock(ctx context.Context, input CreateBlockInput) (*BlockDTO, error)
	CancelBlock(ctx context.Context, blockID uuid.UUID) (*BlockDTO, error)
	StatusAt(ctx context.Context, roomID uuid.UUID, at time.Time) (enums.RoomStatus, error)
}

// CreateRoomInput is the validated payload to register a room.
type CreateRoomInput struct {
	BusinessID  uuid.UUID
	Name        string
	NightlyRate decimal.Decimal
	HourlyRate  *decimal.Decimal
	Notes       *string
}

// CreateBlockInput makes a room unavailable over [StartsAt, EndsAt).
type CreateBlockInput struct {
	RoomID    uuid.UUID
	StartsAt  time.Time
	EndsAt    time.Time
	Reason    string
	CreatedBy uuid.UUID
}

type service struct {
	repo Repository
}

// NewService constructs the room service.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("room repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) CreateRoom(ctx context.Context, input CreateRoomInput) (*RoomDTO, error) {
	if input.BusinessID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "business id required")
	}
	if strings.TrimSpace(input.Name) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "room name required")
	}
	if !input.NightlyRate.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "nightly rate must be positive")
	}
	if input.HourlyRate != nil && !input.HourlyRate.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "hourly rate must be positive")
	}

	room := &models.Room{
		ID:          uuid.New(),
		BusinessID:  input.BusinessID,
		Name:        strings.TrimSpace(input.Name),
		NightlyRate: input.NightlyRate,
		HourlyRate:  input.HourlyRate,
		Notes:       input.Notes,
	}
	if err := s.repo.CreateRoom(ctx, room); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert room")
	}
	return NewRoomDTO(room), nil
}

func (s *service) GetRoom(ctx context.Context, id uuid.UUID) (*RoomDTO, error) {
	room, err := s.loadRoom(ctx, id)
	if err != nil {
		return nil, err
	}
	return NewRoomDTO(room), nil
}

func (s *service) ListRooms(ctx context.Context, businessID uuid.UUID) ([]RoomDTO, error) {
	if businessID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "business id required")
	}
	rooms, err := s.repo.ListRooms(ctx, businessID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list rooms")
	}
	out := make([]RoomDTO, len(rooms))
	for i := range rooms {
		out[i] = *NewRoomDTO(&rooms[i])
	}
	return out, nil
}

func (s *service) CreateBlock(ctx context.Context, input CreateBlockInput) (*BlockDTO, error) {
	if input.RoomID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "room id required")
	}
	if input.CreatedBy == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "creator id required")
	}
	if !input.EndsAt.After(input.StartsAt) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "block end must be after start")
	}
	if strings.TrimSpace(input.Reason) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "block reason required")
	}
	if _, err := s.loadRoom(ctx, input.RoomID); err != nil {
		return nil, err
	}

	block := &models.RoomBlock{
		ID:        uuid.New(),
		RoomID:    input.RoomID,
		StartsAt:  input.StartsAt,
		EndsAt:    input.EndsAt,
		Reason:    strings.TrimSpace(input.Reason),
		Status:    enums.BlockStatusActive,
		CreatedBy: input.CreatedBy,
	}
	if err := s.repo.CreateBlock(ctx, block); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert block")
	}
	return NewBlockDTO(block), nil
}

func (s *service) CancelBlock(ctx context.Context, blockID uuid.UUID) (*BlockDTO, error) {
	if blockID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "block id required")
	}
	block, err := s.repo.FindBlock(ctx, blockID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load block")
	}
	if block == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "block not found")
	}

	cancelled, err := s.repo.CancelBlock(ctx, blockID, time.Now().UTC())
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: cancel block")
	}
	if !cancelled {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "block already cancelled")
	}

	block, err = s.repo.FindBlock(ctx, blockID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: reload block")
	}
	return NewBlockDTO(block), nil
}

// StatusAt projects the room's state at the given instant. Precedence:
// maintenance block, then arrived guest, then any live booking, then free.
func (s *service) StatusAt(ctx context.Context, roomID uuid.UUID, at time.Time) (enums.RoomStatus, error) {
	if _, err := s.loadRoom(ctx, roomID); err != nil {
		return "", err
	}

	blocks, err := s.repo.ActiveBlocksAt(ctx, roomID, at)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: scan blocks")
	}
	if len(blocks) > 0 {
		return enums.RoomStatusMaintenance, nil
	}

	bookings, err := s.repo.BookingsAt(ctx, roomID, at)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: scan bookings")
	}
	for _, booking := range bookings {
		if booking.CustomerArrivedAt != nil {
			return enums.RoomStatusOccupied, nil
		}
	}
	if len(bookings) > 0 {
		return enums.RoomStatusReserved, nil
	}
	return enums.RoomStatusAvailable, nil
}

func (s *service) loadRoom(ctx context.Context, id uuid.UUID) (*models.Room, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "room id required")
	}
	room, err := s.repo.FindRoom(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load room")
	}
	if room == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "room not found")
	}
	return room, nil
}
