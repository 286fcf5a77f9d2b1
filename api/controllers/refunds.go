package controllers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/viatura/viatura-backend/api/responses"
	"github.com/viatura/viatura-backend/api/validators"
	refundsvc "github.com/viatura/viatura-backend/internal/refunds"
	"github.com/viatura/viatura-backend/pkg/enums"
	pkgerrors "github.com/viatura/viatura-backend/pkg/errors"
	"github.com/viatura/viatura-backend/pkg/logger"
)

// RequestRefund opens a refund against a captured payment.
func RequestRefund(svc refundsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "refund service unavailable"))
			return
		}

		var payload requestRefundRequest
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

		input, err := payload.toRequestInput(*actorID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		refund, err := svc.Request(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, refund)
	}
}

// GetRefund returns one refund.
func GetRefund(svc refundsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "refund service unavailable"))
			return
		}

		refundID, err := parseIDParam(r, "refundId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		refund, err := svc.Get(r.Context(), refundID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, refund)
	}
}

// SubmitRefund pushes a pending refund to the payment provider.
func SubmitRefund(svc refundsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "refund service unavailable"))
			return
		}

		refundID, err := parseIDParam(r, "refundId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		refund, err := svc.Submit(r.Context(), refundID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, refund)
	}
}

// CancelRefund withdraws a refund that has not reached the provider.
func CancelRefund(svc refundsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "refund service unavailable"))
			return
		}

		refundID, err := parseIDParam(r, "refundId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		refund, err := svc.Cancel(r.Context(), refundID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, refund)
	}
}

type requestRefundRequest struct {
	PaymentID  string `json:"payment_id" validate:"required,uuid4"`
	TargetKind string `json:"target_kind" validate:"required"`
	TargetID   string `json:"target_id" validate:"required,uuid4"`
	Amount     string `json:"amount" validate:"required"`
	Reason     string `json:"reason" validate:"required"`
}

func (req requestRefundRequest) toRequestInput(requestedBy uuid.UUID) (refundsvc.RequestInput, error) {
	paymentID, err := uuid.Parse(req.PaymentID)
	if err != nil {
		return refundsvc.RequestInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment id")
	}
	targetID, err := uuid.Parse(req.TargetID)
	if err != nil {
		return refundsvc.RequestInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid target id")
	}
	kind, err := enums.ParseRefundTargetKind(strings.TrimSpace(req.TargetKind))
	if err != nil {
		return refundsvc.RequestInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid target kind")
	}
	target, err := refundsvc.TargetFor(kind, targetID)
	if err != nil {
		return refundsvc.RequestInput{}, err
	}
	amount, err := decimal.NewFromString(strings.TrimSpace(req.Amount))
	if err != nil {
		return refundsvc.RequestInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid amount")
	}

	return refundsvc.RequestInput{
		PaymentID:   paymentID,
		Target:      target,
		Amount:      amount,
		Reason:      validators.SanitizeString(req.Reason, 500),
		RequestedBy: requestedBy,
	}, nil
}
