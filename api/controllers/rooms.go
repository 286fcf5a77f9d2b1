package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/viatura/viatura-backend/api/responses"
	"github.com/viatura/viatura-backend/api/validators"
	"github.com/viatura/viatura-backend/internal/availability"
	roomsvc "github.com/viatura/viatura-backend/internal/rooms"
	pkgerrors "github.com/viatura/viatura-backend/pkg/errors"
	"github.com/viatura/viatura-backend/pkg/logger"
)

// CreateRoom registers a room for a business.
func CreateRoom(svc roomsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "room service unavailable"))
			return
		}

		var payload createRoomRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := payload.toCreateInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		room, err := svc.CreateRoom(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, room)
	}
}

// ListRooms returns the rooms registered for a business.
func ListRooms(svc roomsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "room service unavailable"))
			return
		}

		raw := strings.TrimSpace(r.URL.Query().Get("business_id"))
		businessID, err := uuid.Parse(raw)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid business_id"))
			return
		}

		rooms, err := svc.ListRooms(r.Context(), businessID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, rooms)
	}
}

// GetRoom returns a single room by id.
func GetRoom(svc roomsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "room service unavailable"))
			return
		}

		roomID, err := parseIDParam(r, "roomId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		room, err := svc.GetRoom(r.Context(), roomID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, room)
	}
}

// RoomAvailability answers whether the room is free over [start, end).
func RoomAvailability(checker availability.Checker, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if checker == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "availability checker unavailable"))
			return
		}

		roomID, err := parseIDParam(r, "roomId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		start, err := parseQueryTime(r, "start")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		end, err := parseQueryTime(r, "end")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := checker.Check(r.Context(), roomID, start, end)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}

// RoomStatus projects the room status at a point in time (now by default).
func RoomStatus(svc roomsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "room service unavailable"))
			return
		}

		roomID, err := parseIDParam(r, "roomId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		at := time.Now().UTC()
		if raw := strings.TrimSpace(r.URL.Query().Get("at")); raw != "" {
			parsed, err := time.Parse(time.RFC3339, raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid at timestamp"))
				return
			}
			at = parsed
		}

		status, err := svc.StatusAt(r.Context(), roomID, at)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{
			"room_id": roomID,
			"at":      at,
			"status":  status,
		})
	}
}

// CreateBlock makes a room unavailable over a window.
func CreateBlock(svc roomsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "room service unavailable"))
			return
		}

		roomID, err := parseIDParam(r, "roomId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload createBlockRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		actorID, err := actorIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if actorID == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "actor identity required"))
			return
		}

		block, err := svc.CreateBlock(r.Context(), roomsvc.CreateBlockInput{
			RoomID:    roomID,
			StartsAt:  payload.StartsAt,
			EndsAt:    payload.EndsAt,
			Reason:    validators.SanitizeString(payload.Reason, 500),
			CreatedBy: *actorID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, block)
	}
}

// CancelBlock releases a maintenance block.
func CancelBlock(svc roomsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "room service unavailable"))
			return
		}

		blockID, err := parseIDParam(r, "blockId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		block, err := svc.CancelBlock(r.Context(), blockID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, block)
	}
}

type createRoomRequest struct {
	BusinessID  string  `json:"business_id" validate:"required,uuid4"`
	Name        string  `json:"name" validate:"required"`
	NightlyRate string  `json:"nightly_rate" validate:"required"`
	HourlyRate  *string `json:"hourly_rate,omitempty"`
	Notes       *string `json:"notes,omitempty"`
}

func (req createRoomRequest) toCreateInput() (roomsvc.CreateRoomInput, error) {
	businessID, err := uuid.Parse(req.BusinessID)
	if err != nil {
		return roomsvc.CreateRoomInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid business id")
	}
	nightly, err := decimal.NewFromString(strings.TrimSpace(req.NightlyRate))
	if err != nil {
		return roomsvc.CreateRoomInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid nightly_rate")
	}

	input := roomsvc.CreateRoomInput{
		BusinessID:  businessID,
		Name:        strings.TrimSpace(req.Name),
		NightlyRate: nightly,
		Notes:       req.Notes,
	}
	if req.HourlyRate != nil {
		hourly, err := decimal.NewFromString(strings.TrimSpace(*req.HourlyRate))
		if err != nil {
			return roomsvc.CreateRoomInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid hourly_rate")
		}
		input.HourlyRate = &hourly
	}
	return input, nil
}

type createBlockRequest struct {
	StartsAt time.Time `json:"starts_at" validate:"required"`
	EndsAt   time.Time `json:"ends_at" validate:"required"`
	Reason   string    `json:"reason" validate:"required"`
}

func parseQueryTime(r *http.Request, key string) (time.Time, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return time.Time{}, pkgerrors.New(pkgerrors.CodeValidation, key+" query parameter required")
	}
	parsed, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid "+key+" timestamp")
	}
	return parsed, nil
}
