package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/assetflow-backend/pkg/enums"
)

// AssetRequest is an employee's ask for one unit of an asset.
// Asset name and type are copied at creation so listings can search them.
type AssetRequest struct {
	ID             uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	AssetID        uuid.UUID           `gorm:"column:asset_id;type:uuid;not null"`
	AssetName      string              `gorm:"column:asset_name;not null"`
	AssetType      enums.AssetType     `gorm:"column:asset_type;not null"`
	RequesterEmail string              `gorm:"column:requester_email;not null"`
	RequesterName  string              `gorm:"column:requester_name;not null"`
	HREmail        string              `gorm:"column:hr_email;not null"`
	CompanyName    string              `gorm:"column:company_name;not null"`
	Note           *string             `gorm:"column:note"`
	Status         enums.RequestStatus `gorm:"column:status;not null"`
	DecidedAt      *time.Time          `gorm:"column:decided_at"`
	DecidedBy      *string             `gorm:"column:decided_by"`
	CreatedAt      time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

func (AssetRequest) TableName() string {
	return "asset_requests"
}

func (r *AssetRequest) BeforeCreate(*gorm.DB) error {
	ensureID(&r.ID)
	return nil
}
