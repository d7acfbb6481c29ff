package controllers

import (
	"net/http"

	"github.com/angelmondragon/assetflow-backend/api/middleware"
	"github.com/angelmondragon/assetflow-backend/api/responses"
	"github.com/angelmondragon/assetflow-backend/api/validators"
	"github.com/angelmondragon/assetflow-backend/internal/assets"
	"github.com/angelmondragon/assetflow-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/assetflow-backend/pkg/errors"
	"github.com/angelmondragon/assetflow-backend/pkg/logger"
)

const searchMaxLen = 100

// CreateAsset handles POST /assets for the hr user loaded by RequireHR.
func CreateAsset(svc assets.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, serviceUnavailable("asset"))
			return
		}
		hr := middleware.HRUserFromContext(r.Context())
		if hr == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "hr context missing"))
			return
		}

		var body assets.CreateAssetInput
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		asset, err := svc.Create(r.Context(), hr, body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, asset)
	}
}

func UpdateAsset(svc assets.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, serviceUnavailable("asset"))
			return
		}
		id, err := pathUUID(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body assets.UpdateAssetInput
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		asset, err := svc.Update(r.Context(), middleware.Actor(r.Context()), id, body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, asset)
	}
}

func DeleteAsset(svc assets.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, serviceUnavailable("asset"))
			return
		}
		id, err := pathUUID(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Delete(r.Context(), middleware.Actor(r.Context()), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func GetAsset(svc assets.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, serviceUnavailable("asset"))
			return
		}
		id, err := pathUUID(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		asset, err := svc.Get(r.Context(), middleware.Actor(r.Context()), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, asset)
	}
}

// ListAssets handles GET /assets, scoped to the caller's companies.
func ListAssets(svc assets.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, serviceUnavailable("asset"))
			return
		}
		filters, err := assetFilters(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		page, err := svc.List(r.Context(), middleware.Actor(r.Context()), filters, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

// ListAvailableAssets handles GET /available-assets.
func ListAvailableAssets(svc assets.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, serviceUnavailable("asset"))
			return
		}
		filters, err := assetFilters(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		filters.Company = validators.QueryString(r, "company", searchMaxLen)
		params, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		page, err := svc.ListAvailable(r.Context(), filters, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

func assetFilters(r *http.Request) (assets.ListFilters, error) {
	assetType, err := queryEnum(r, "type", enums.ParseAssetType)
	if err != nil {
		return assets.ListFilters{}, err
	}
	stock, err := queryEnum(r, "stock", enums.ParseStockFilter)
	if err != nil {
		return assets.ListFilters{}, err
	}
	return assets.ListFilters{
		Search: validators.QueryString(r, "search", searchMaxLen),
		Type:   assetType,
		Stock:  stock,
	}, nil
}
