package controllers

import (
	"net/http"

	"github.com/angelmondragon/assetflow-backend/api/middleware"
	"github.com/angelmondragon/assetflow-backend/api/responses"
	"github.com/angelmondragon/assetflow-backend/api/validators"
	"github.com/angelmondragon/assetflow-backend/internal/affiliations"
	"github.com/angelmondragon/assetflow-backend/pkg/enums"
	"github.com/angelmondragon/assetflow-backend/pkg/logger"
)

// ListAffiliations handles GET /affiliations.
func ListAffiliations(svc affiliations.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, serviceUnavailable("affiliation"))
			return
		}
		status, err := queryEnum(r, "status", enums.ParseAffiliationStatus)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		page, err := svc.List(r.Context(), middleware.Actor(r.Context()), affiliations.ListFilters{Status: status}, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

// RemoveAffiliation handles PATCH /affiliations.
func RemoveAffiliation(svc affiliations.Service, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return unavailable("affiliation", logg)
	}
	return jsonCommand(logg, http.StatusOK, func(r *http.Request, body affiliations.RemoveInput) (*affiliations.RemovalResult, error) {
		return svc.Remove(r.Context(), middleware.Actor(r.Context()), body)
	})
}
