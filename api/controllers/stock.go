package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/viatura/viatura-backend/api/middleware"
	"github.com/viatura/viatura-backend/api/responses"
	"github.com/viatura/viatura-backend/api/validators"
	"github.com/viatura/viatura-backend/internal/stockledger"
	"github.com/viatura/viatura-backend/pkg/enums"
	pkgerrors "github.com/viatura/viatura-backend/pkg/errors"
	"github.com/viatura/viatura-backend/pkg/logger"
	"github.com/viatura/viatura-backend/pkg/pagination"
)

// AdjustStock applies one signed stock mutation to a product.
func AdjustStock(svc stockledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "stock service unavailable"))
			return
		}

		productID, err := parseIDParam(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload adjustStockRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := payload.toAdjustInput(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		stock, err := svc.Adjust(r.Context(), productID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, stock)
	}
}

// InitializeStock seeds the ledger for a product that has no stock record yet.
func InitializeStock(svc stockledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "stock service unavailable"))
			return
		}

		productID, err := parseIDParam(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload initializeStockRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := payload.toInitializeInput(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		stock, err := svc.InitializeStock(r.Context(), productID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, stock)
	}
}

// GetStock returns the current projection for a product.
func GetStock(svc stockledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "stock service unavailable"))
			return
		}

		productID, err := parseIDParam(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		stock, err := svc.GetStock(r.Context(), productID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, stock)
	}
}

// StockHistory returns the ledger entries for a product, newest first.
func StockHistory(svc stockledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "stock service unavailable"))
			return
		}

		productID, err := parseIDParam(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		page, err := svc.History(r.Context(), productID, pagination.Params{
			Limit:  limit,
			Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, page)
	}
}

// ReconcileStock replays the full history and compares it to the stored quantity.
func ReconcileStock(svc stockledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "stock service unavailable"))
			return
		}

		productID, err := parseIDParam(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		report, err := svc.Reconcile(r.Context(), productID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, report)
	}
}

type adjustStockRequest struct {
	Delta      int     `json:"delta" validate:"required"`
	ChangeType string  `json:"change_type" validate:"required"`
	Notes      *string `json:"notes,omitempty"`
}

func (req adjustStockRequest) toAdjustInput(r *http.Request) (stockledger.AdjustInput, error) {
	changeType, err := enums.ParseStockChangeType(strings.TrimSpace(req.ChangeType))
	if err != nil {
		return stockledger.AdjustInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid change type")
	}
	actorID, err := actorIDFromRequest(r)
	if err != nil {
		return stockledger.AdjustInput{}, err
	}
	return stockledger.AdjustInput{
		ChangeType: changeType,
		Delta:      req.Delta,
		ActorID:    actorID,
		Notes:      req.Notes,
	}, nil
}

type initializeStockRequest struct {
	InitialStock int    `json:"initial_stock" validate:"min=0"`
	MinimumStock int    `json:"minimum_stock" validate:"min=0"`
	MaximumStock *int   `json:"maximum_stock,omitempty" validate:"omitempty,min=0"`
	Unit         string `json:"unit" validate:"required"`
}

func (req initializeStockRequest) toInitializeInput(r *http.Request) (stockledger.InitializeInput, error) {
	unit, err := enums.ParseProductUnit(strings.TrimSpace(req.Unit))
	if err != nil {
		return stockledger.InitializeInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid unit")
	}
	actorID, err := actorIDFromRequest(r)
	if err != nil {
		return stockledger.InitializeInput{}, err
	}
	return stockledger.InitializeInput{
		InitialStock: req.InitialStock,
		MinimumStock: req.MinimumStock,
		MaximumStock: req.MaximumStock,
		Unit:         unit,
		ActorID:      actorID,
	}, nil
}

func parseIDParam(r *http.Request, name string) (uuid.UUID, error) {
	raw := chi.URLParam(r, name)
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid "+name)
	}
	return id, nil
}

// actorIDFromRequest parses the optional actor header lifted into context.
func actorIDFromRequest(r *http.Request) (*uuid.UUID, error) {
	raw := middleware.ActorIDFromContext(r.Context())
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid actor id")
	}
	return &id, nil
}
