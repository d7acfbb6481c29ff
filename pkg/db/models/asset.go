package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/assetflow-backend/pkg/enums"
)

// Asset is an inventory line owned by one hr account.
type Asset struct {
	ID                uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	ProductName       string          `gorm:"column:product_name;not null"`
	ProductType       enums.AssetType `gorm:"column:product_type;not null"`
	ProductQuantity   int             `gorm:"column:product_quantity;not null;check:chk_assets_product_quantity,product_quantity >= 0"`
	AvailableQuantity int             `gorm:"column:available_quantity;not null;check:chk_assets_available_range,available_quantity >= 0 AND available_quantity <= product_quantity"`
	HREmail           string          `gorm:"column:hr_email;not null;index:idx_assets_hr_email"`
	CompanyName       string          `gorm:"column:company_name;not null;index:idx_assets_company_name"`
	CreatedAt         time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (a *Asset) BeforeCreate(*gorm.DB) error {
	ensureID(&a.ID)
	return nil
}
