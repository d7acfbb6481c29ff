package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/assetflow-backend/pkg/enums"
)

// Affiliation records that an employee belongs to an hr account's company.
type Affiliation struct {
	ID            uuid.UUID               `gorm:"column:id;type:uuid;primaryKey"`
	EmployeeEmail string                  `gorm:"column:employee_email;not null;uniqueIndex:uq_affiliations_employee_company"`
	EmployeeName  string                  `gorm:"column:employee_name;not null"`
	HREmail       string                  `gorm:"column:hr_email;not null"`
	CompanyName   string                  `gorm:"column:company_name;not null;uniqueIndex:uq_affiliations_employee_company"`
	CompanyLogo   *string                 `gorm:"column:company_logo"`
	Status        enums.AffiliationStatus `gorm:"column:status;not null"`
	AffiliatedAt  time.Time               `gorm:"column:affiliated_at;not null"`
	RemovedAt     *time.Time              `gorm:"column:removed_at"`
	CreatedAt     time.Time               `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time               `gorm:"column:updated_at;autoUpdateTime"`
}

func (a *Affiliation) BeforeCreate(*gorm.DB) error {
	ensureID(&a.ID)
	return nil
}
