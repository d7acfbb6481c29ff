package visibility

import (
	"strings"

	"github.com/angelmondragon/assetflow-backend/pkg/db/models"
	"github.com/angelmondragon/assetflow-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/assetflow-backend/pkg/errors"
)

// AssetVisibilityInput drives the shared visibility checks for single-asset reads.
type AssetVisibilityInput struct {
	Asset       *models.Asset
	ViewerRole  enums.UserRole
	ViewerEmail string
	// Companies the viewer is actively affiliated with. Ignored for hr viewers.
	Companies []string
}

// EnsureAssetVisible hides assets a viewer has no business seeing behind a
// not-found error so ids of other companies never leak.
// Hr viewers see their own inventory. Employees see their companies'
// inventory plus anything currently in stock, which is what /available-assets
// already exposes.
func EnsureAssetVisible(input AssetVisibilityInput) error {
	if input.Asset == nil {
		return pkgerrors.New(pkgerrors.CodeNotFound, "asset not found")
	}
	switch input.ViewerRole {
	case enums.UserRoleHR:
		if !strings.EqualFold(strings.TrimSpace(input.ViewerEmail), input.Asset.HREmail) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "asset not found")
		}
		return nil
	case enums.UserRoleEmployee:
		if input.Asset.AvailableQuantity > 0 {
			return nil
		}
		for _, company := range input.Companies {
			if normalizeCompany(company) == normalizeCompany(input.Asset.CompanyName) {
				return nil
			}
		}
		return pkgerrors.New(pkgerrors.CodeNotFound, "asset not found")
	}
	return pkgerrors.New(pkgerrors.CodeForbidden, "unknown viewer role")
}

func normalizeCompany(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}
