package affiliations

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/assetflow-backend/pkg/db/models"
	"github.com/angelmondragon/assetflow-backend/pkg/enums"
)

// AffiliationDTO is the transport shape of an employee and company pairing.
type AffiliationDTO struct {
	ID            uuid.UUID               `json:"id"`
	EmployeeEmail string                  `json:"employeeEmail"`
	EmployeeName  string                  `json:"employeeName"`
	HREmail       string                  `json:"hrEmail"`
	CompanyName   string                  `json:"companyName"`
	CompanyLogo   *string                 `json:"companyLogo,omitempty"`
	Status        enums.AffiliationStatus `json:"status"`
	AffiliatedAt  time.Time               `json:"affiliatedAt"`
	RemovedAt     *time.Time              `json:"removedAt,omitempty"`
}

// RemoveInput is the body of PATCH /affiliations.
type RemoveInput struct {
	EmployeeEmail string `json:"employeeEmail" validate:"required,email"`
	Status        string `json:"status" validate:"required,oneof=inactive"`
}

// RemovalResult reports what a removal touched.
type RemovalResult struct {
	Affiliation      AffiliationDTO `json:"affiliation"`
	ReturnedCount    int            `json:"returnedCount"`
	CurrentEmployees int            `json:"currentEmployees"`
}

// Employee identifies the employee side of a pairing.
type Employee struct {
	Email string
	Name  string
}

type ListFilters struct {
	Status *enums.AffiliationStatus
}

func FromModel(a *models.Affiliation) AffiliationDTO {
	return AffiliationDTO{
		ID:            a.ID,
		EmployeeEmail: a.EmployeeEmail,
		EmployeeName:  a.EmployeeName,
		HREmail:       a.HREmail,
		CompanyName:   a.CompanyName,
		CompanyLogo:   a.CompanyLogo,
		Status:        a.Status,
		AffiliatedAt:  a.AffiliatedAt,
		RemovedAt:     a.RemovedAt,
	}
}
