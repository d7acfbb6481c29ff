package controllers

import (
	"net/http"

	"github.com/angelmondragon/assetflow-backend/api/middleware"
	"github.com/angelmondragon/assetflow-backend/api/responses"
	"github.com/angelmondragon/assetflow-backend/api/validators"
	"github.com/angelmondragon/assetflow-backend/internal/requests"
	"github.com/angelmondragon/assetflow-backend/pkg/enums"
	"github.com/angelmondragon/assetflow-backend/pkg/logger"
)

// CreateRequest handles POST /requests.
func CreateRequest(svc requests.Service, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return unavailable("request", logg)
	}
	return jsonCommand(logg, http.StatusCreated, func(r *http.Request, body requests.CreateRequestInput) (*requests.RequestDTO, error) {
		return svc.Create(r.Context(), middleware.Actor(r.Context()), body)
	})
}

// DecideRequest handles PATCH /requests.
func DecideRequest(svc requests.Service, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return unavailable("request", logg)
	}
	return jsonCommand(logg, http.StatusOK, func(r *http.Request, body requests.DecideInput) (*requests.DecisionResult, error) {
		return svc.Decide(r.Context(), middleware.Actor(r.Context()), body)
	})
}

// ListRequests handles GET /requests: incoming requests for hr, own requests otherwise.
func ListRequests(svc requests.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, serviceUnavailable("request"))
			return
		}
		status, err := queryEnum(r, "status", enums.ParseRequestStatus)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		filters := requests.ListFilters{Status: status, Search: validators.QueryString(r, "search", searchMaxLen)}
		page, err := svc.List(r.Context(), middleware.Actor(r.Context()), filters, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}
