package controllers

import (
	"net/http"

	"github.com/angelmondragon/assetflow-backend/api/middleware"
	"github.com/angelmondragon/assetflow-backend/api/responses"
	"github.com/angelmondragon/assetflow-backend/api/validators"
	"github.com/angelmondragon/assetflow-backend/internal/assignments"
	"github.com/angelmondragon/assetflow-backend/pkg/enums"
	"github.com/angelmondragon/assetflow-backend/pkg/logger"
	"github.com/angelmondragon/assetflow-backend/pkg/pagination"
)

// ListAssignedAssets handles GET /assigned-assets for the calling employee.
func ListAssignedAssets(svc assignments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, serviceUnavailable("assignment"))
			return
		}
		filters, params, err := assignmentQuery(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		page, err := svc.ListMine(r.Context(), middleware.Actor(r.Context()), filters, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

// ListCompanyAssignments handles GET /company-assignments.
func ListCompanyAssignments(svc assignments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, serviceUnavailable("assignment"))
			return
		}
		filters, params, err := assignmentQuery(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		filters.EmployeeEmail = validators.NormalizeEmail(r.URL.Query().Get("employeeEmail"))

		page, err := svc.ListCompany(r.Context(), middleware.Actor(r.Context()), filters, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

// ReturnAssignment handles PATCH /assigned-assets/{id}/return.
func ReturnAssignment(svc assignments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, serviceUnavailable("assignment"))
			return
		}
		id, err := pathUUID(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		assignment, err := svc.Return(r.Context(), middleware.Actor(r.Context()), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, assignment)
	}
}

// DirectAssign handles POST /assign-asset.
func DirectAssign(svc assignments.Service, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return unavailable("assignment", logg)
	}
	return jsonCommand(logg, http.StatusCreated, func(r *http.Request, body assignments.DirectAssignInput) (*assignments.AssignmentDTO, error) {
		return svc.DirectAssign(r.Context(), middleware.Actor(r.Context()), body)
	})
}

func assignmentQuery(r *http.Request) (assignments.ListFilters, pagination.Params, error) {
	status, err := queryEnum(r, "status", enums.ParseAssignmentStatus)
	if err != nil {
		return assignments.ListFilters{}, pagination.Params{}, err
	}
	assetType, err := queryEnum(r, "type", enums.ParseAssetType)
	if err != nil {
		return assignments.ListFilters{}, pagination.Params{}, err
	}
	params, err := validators.ParsePagination(r)
	if err != nil {
		return assignments.ListFilters{}, pagination.Params{}, err
	}
	return assignments.ListFilters{
		Status: status,
		Type:   assetType,
		Search: validators.QueryString(r, "search", searchMaxLen),
	}, params, nil
}
