package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/assetflow-backend/pkg/enums"
)

// Assignment links one unit of an asset to an employee.
type Assignment struct {
	ID            uuid.UUID              `gorm:"column:id;type:uuid;primaryKey"`
	AssetID       uuid.UUID              `gorm:"column:asset_id;type:uuid;not null"`
	AssetName     string                 `gorm:"column:asset_name;not null"`
	AssetType     enums.AssetType        `gorm:"column:asset_type;not null"`
	EmployeeEmail string                 `gorm:"column:employee_email;not null"`
	EmployeeName  string                 `gorm:"column:employee_name;not null"`
	HREmail       string                 `gorm:"column:hr_email;not null"`
	CompanyName   string                 `gorm:"column:company_name;not null"`
	RequestID     *uuid.UUID             `gorm:"column:request_id;type:uuid"`
	Source        enums.AssignmentSource `gorm:"column:source;not null"`
	Note          *string                `gorm:"column:note"`
	Status        enums.AssignmentStatus `gorm:"column:status;not null"`
	AssignedAt    time.Time              `gorm:"column:assigned_at;not null"`
	ReturnedAt    *time.Time             `gorm:"column:returned_at"`
	CreatedAt     time.Time              `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time              `gorm:"column:updated_at;autoUpdateTime"`
}

func (a *Assignment) BeforeCreate(*gorm.DB) error {
	ensureID(&a.ID)
	return nil
}
