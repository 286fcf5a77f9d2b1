package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/viatura/viatura-backend/api/responses"
	"github.com/viatura/viatura-backend/api/validators"
	ordersvc "github.com/viatura/viatura-backend/internal/orders"
	"github.com/viatura/viatura-backend/pkg/enums"
	pkgerrors "github.com/viatura/viatura-backend/pkg/errors"
	"github.com/viatura/viatura-backend/pkg/logger"
)

// PlaceOrder creates an order and deducts stock atomically.
func PlaceOrder(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
			return
		}

		var payload placeOrderRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := payload.toPlaceInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.Place(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, order)
	}
}

// GetOrder returns one order with its items.
func GetOrder(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
			return
		}

		orderID, err := parseIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.Get(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, order)
	}
}

// AcceptOrder moves a pending order into accepted.
func AcceptOrder(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return orderTransition(svc, logg, svcAccept)
}

// PrepareOrder moves an accepted order into preparing.
func PrepareOrder(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return orderTransition(svc, logg, svcPrepare)
}

// ReadyOrder marks the order ready and issues the pickup code.
func ReadyOrder(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return orderTransition(svc, logg, svcReady)
}

// PickupOrder completes the order when the presented code matches.
func PickupOrder(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
			return
		}

		orderID, err := parseIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload pickupRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.ConfirmPickup(r.Context(), orderID, strings.TrimSpace(payload.Code))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, order)
	}
}

// CancelOrder cancels the order and restores the stock it held.
func CancelOrder(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
			return
		}

		orderID, err := parseIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload cancelRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		actor, err := enums.ParseCancelActor(strings.TrimSpace(payload.Actor))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cancel actor"))
			return
		}

		order, err := svc.Cancel(r.Context(), orderID, actor, validators.SanitizeString(payload.Reason, 500))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, order)
	}
}

type orderCall func(svc ordersvc.Service, r *http.Request, id uuid.UUID) (*ordersvc.OrderDTO, error)

func svcAccept(svc ordersvc.Service, r *http.Request, id uuid.UUID) (*ordersvc.OrderDTO, error) {
	return svc.Accept(r.Context(), id)
}

func svcPrepare(svc ordersvc.Service, r *http.Request, id uuid.UUID) (*ordersvc.OrderDTO, error) {
	return svc.StartPreparation(r.Context(), id)
}

func svcReady(svc ordersvc.Service, r *http.Request, id uuid.UUID) (*ordersvc.OrderDTO, error) {
	return svc.MarkReady(r.Context(), id)
}

func orderTransition(svc ordersvc.Service, logg *logger.Logger, call orderCall) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
			return
		}

		orderID, err := parseIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := call(svc, r, orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, order)
	}
}

type placeOrderRequest struct {
	BusinessID     string                  `json:"business_id" validate:"required,uuid4"`
	CustomerID     string                  `json:"customer_id" validate:"required,uuid4"`
	Items          []placeOrderItemRequest `json:"items" validate:"required,min=1,dive"`
	DiscountAmount *string                 `json:"discount_amount,omitempty"`
	TaxAmount      *string                 `json:"tax_amount,omitempty"`
	ExpectedTotal  *string                 `json:"expected_total,omitempty"`
	PickupTime     *time.Time              `json:"pickup_time,omitempty"`
}

type placeOrderItemRequest struct {
	ProductID string `json:"product_id" validate:"required,uuid4"`
	Quantity  int    `json:"quantity" validate:"required,min=1"`
}

func (req placeOrderRequest) toPlaceInput() (ordersvc.PlaceInput, error) {
	businessID, err := uuid.Parse(req.BusinessID)
	if err != nil {
		return ordersvc.PlaceInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid business id")
	}
	customerID, err := uuid.Parse(req.CustomerID)
	if err != nil {
		return ordersvc.PlaceInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid customer id")
	}

	items := make([]ordersvc.PlaceItemInput, 0, len(req.Items))
	for _, item := range req.Items {
		productID, err := uuid.Parse(item.ProductID)
		if err != nil {
			return ordersvc.PlaceInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid product id")
		}
		items = append(items, ordersvc.PlaceItemInput{ProductID: productID, Quantity: item.Quantity})
	}

	discount, err := parseOptionalAmount(req.DiscountAmount, "discount_amount")
	if err != nil {
		return ordersvc.PlaceInput{}, err
	}
	tax, err := parseOptionalAmount(req.TaxAmount, "tax_amount")
	if err != nil {
		return ordersvc.PlaceInput{}, err
	}

	input := ordersvc.PlaceInput{
		BusinessID:     businessID,
		CustomerID:     customerID,
		Items:          items,
		DiscountAmount: discount,
		TaxAmount:      tax,
		PickupTime:     req.PickupTime,
	}

	if req.ExpectedTotal != nil {
		expected, err := decimal.NewFromString(strings.TrimSpace(*req.ExpectedTotal))
		if err != nil {
			return ordersvc.PlaceInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid expected_total")
		}
		input.ExpectedTotal = &expected
	}

	return input, nil
}

func parseOptionalAmount(raw *string, field string) (decimal.Decimal, error) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return decimal.Zero, nil
	}
	value, err := decimal.NewFromString(strings.TrimSpace(*raw))
	if err != nil {
		return decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid "+field)
	}
	return value, nil
}

type pickupRequest struct {
	Code string `json:"code" validate:"required"`
}

type cancelRequest struct {
	Actor  string `json:"actor" validate:"required"`
	Reason string `json:"reason" validate:"required"`
}
