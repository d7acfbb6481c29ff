package controllers

import (
	"net/http"

	"github.com/angelmondragon/assetflow-backend/api/middleware"
	"github.com/angelmondragon/assetflow-backend/api/responses"
	"github.com/angelmondragon/assetflow-backend/api/validators"
	"github.com/angelmondragon/assetflow-backend/internal/payments"
	pkgerrors "github.com/angelmondragon/assetflow-backend/pkg/errors"
	"github.com/angelmondragon/assetflow-backend/pkg/logger"
)

// CreateCheckoutSession handles POST /create-checkout-session.
func CreateCheckoutSession(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, serviceUnavailable("payment"))
			return
		}
		hr := middleware.HRUserFromContext(r.Context())
		if hr == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "hr context missing"))
			return
		}

		var body payments.CheckoutInput
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.CreateCheckout(r.Context(), hr, body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

// ConfirmPayment handles POST /confirm-payment.
func ConfirmPayment(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return unavailable("payment", logg)
	}
	return jsonCommand(logg, http.StatusOK, func(r *http.Request, body payments.ConfirmInput) (*payments.ConfirmResult, error) {
		return svc.Confirm(r.Context(), middleware.Actor(r.Context()), body)
	})
}

// ListPayments handles GET /payments.
func ListPayments(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, serviceUnavailable("payment"))
			return
		}
		params, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		page, err := svc.List(r.Context(), middleware.Actor(r.Context()), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}
