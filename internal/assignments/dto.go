package assignments

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/assetflow-backend/pkg/db/models"
	"github.com/angelmondragon/assetflow-backend/pkg/enums"
)

type AssignmentDTO struct {
	ID            uuid.UUID              `json:"id"`
	AssetID       uuid.UUID              `json:"assetId"`
	AssetName     string                 `json:"assetName"`
	AssetType     enums.AssetType        `json:"assetType"`
	EmployeeEmail string                 `json:"employeeEmail"`
	EmployeeName  string                 `json:"employeeName"`
	HREmail       string                 `json:"hrEmail"`
	CompanyName   string                 `json:"companyName"`
	RequestID     *uuid.UUID             `json:"requestId,omitempty"`
	Source        enums.AssignmentSource `json:"source"`
	Note          *string                `json:"note,omitempty"`
	Status        enums.AssignmentStatus `json:"status"`
	AssignedAt    time.Time              `json:"assignedAt"`
	ReturnedAt    *time.Time             `json:"returnedAt,omitempty"`
}

// DirectAssignInput is the body of POST /assign-asset.
type DirectAssignInput struct {
	AssetID       string  `json:"assetId" validate:"required,uuid"`
	EmployeeEmail string  `json:"employeeEmail" validate:"required,email"`
	Note          *string `json:"note,omitempty" validate:"omitempty,max=500"`
}

// ListFilters narrows assignment listings. EmployeeEmail only applies to
// company listings.
type ListFilters struct {
	Status        *enums.AssignmentStatus
	Type          *enums.AssetType
	Search        string
	EmployeeEmail string
}

// FromRequest describes an approved request turning into an assignment.
type FromRequest struct {
	Request      *models.AssetRequest
	EmployeeName string
}

func FromModel(a *models.Assignment) AssignmentDTO {
	return AssignmentDTO{
		ID:            a.ID,
		AssetID:       a.AssetID,
		AssetName:     a.AssetName,
		AssetType:     a.AssetType,
		EmployeeEmail: a.EmployeeEmail,
		EmployeeName:  a.EmployeeName,
		HREmail:       a.HREmail,
		CompanyName:   a.CompanyName,
		RequestID:     a.RequestID,
		Source:        a.Source,
		Note:          a.Note,
		Status:        a.Status,
		AssignedAt:    a.AssignedAt,
		ReturnedAt:    a.ReturnedAt,
	}
}
