package assets

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/assetflow-backend/pkg/db/models"
	"github.com/angelmondragon/assetflow-backend/pkg/enums"
)

// AssetDTO is the transport shape of an inventory line.
type AssetDTO struct {
	ID                uuid.UUID       `json:"id"`
	ProductName       string          `json:"productName"`
	ProductType       enums.AssetType `json:"productType"`
	ProductQuantity   int             `json:"productQuantity"`
	AvailableQuantity int             `json:"availableQuantity"`
	HREmail           string          `json:"hrEmail"`
	CompanyName       string          `json:"companyName"`
	CreatedAt         time.Time       `json:"createdAt"`
	UpdatedAt         time.Time       `json:"updatedAt"`
}

// CreateAssetInput is the body of POST /assets.
type CreateAssetInput struct {
	ProductName     string `json:"productName" validate:"required,max=200"`
	ProductType     string `json:"productType" validate:"required,oneof=Returnable Non-returnable"`
	ProductQuantity int    `json:"productQuantity" validate:"gte=0"`
}

// UpdateAssetInput is the body of PUT /assets/{id}. Nil fields keep their value.
type UpdateAssetInput struct {
	ProductName     *string `json:"productName,omitempty" validate:"omitempty,min=1,max=200"`
	ProductType     *string `json:"productType,omitempty" validate:"omitempty,oneof=Returnable Non-returnable"`
	ProductQuantity *int    `json:"productQuantity,omitempty"`
}

// ListFilters narrows asset listings.
type ListFilters struct {
	Search  string
	Type    *enums.AssetType
	Stock   *enums.StockFilter
	Company string
}

func FromModel(a *models.Asset) AssetDTO {
	return AssetDTO{
		ID:                a.ID,
		ProductName:       a.ProductName,
		ProductType:       a.ProductType,
		ProductQuantity:   a.ProductQuantity,
		AvailableQuantity: a.AvailableQuantity,
		HREmail:           a.HREmail,
		CompanyName:       a.CompanyName,
		CreatedAt:         a.CreatedAt,
		UpdatedAt:         a.UpdatedAt,
	}
}

func fromModels(rows []models.Asset) []AssetDTO {
	out := make([]AssetDTO, 0, len(rows))
	for i := range rows {
		out = append(out, FromModel(&rows[i]))
	}
	return out
}
