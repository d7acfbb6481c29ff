package requests

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/assetflow-backend/pkg/db/models"
	"github.com/angelmondragon/assetflow-backend/pkg/enums"
)

type RequestDTO struct {
	ID             uuid.UUID           `json:"id"`
	AssetID        uuid.UUID           `json:"assetId"`
	AssetName      string              `json:"assetName"`
	AssetType      enums.AssetType     `json:"assetType"`
	RequesterEmail string              `json:"requesterEmail"`
	RequesterName  string              `json:"requesterName"`
	HREmail        string              `json:"hrEmail"`
	CompanyName    string              `json:"companyName"`
	Note           *string             `json:"note,omitempty"`
	Status         enums.RequestStatus `json:"status"`
	RequestedAt    time.Time           `json:"requestedAt"`
	DecidedAt      *time.Time          `json:"decidedAt,omitempty"`
	DecidedBy      *string             `json:"decidedBy,omitempty"`
}

// CreateRequestInput is the body of POST /requests.
type CreateRequestInput struct {
	AssetID string  `json:"assetId" validate:"required,uuid"`
	Note    *string `json:"note,omitempty" validate:"omitempty,max=500"`
}

// DecideInput is the body of PATCH /requests.
type DecideInput struct {
	RequestID string `json:"requestId" validate:"required,uuid"`
	Status    string `json:"status" validate:"required,oneof=approved rejected"`
}

// DecisionResult is returned by PATCH /requests. AssignmentID is set on approval.
type DecisionResult struct {
	Request      RequestDTO `json:"request"`
	AssignmentID *uuid.UUID `json:"assignmentId,omitempty"`
}

type ListFilters struct {
	Status *enums.RequestStatus
	Search string
}

func FromModel(r *models.AssetRequest) RequestDTO {
	return RequestDTO{
		ID:             r.ID,
		AssetID:        r.AssetID,
		AssetName:      r.AssetName,
		AssetType:      r.AssetType,
		RequesterEmail: r.RequesterEmail,
		RequesterName:  r.RequesterName,
		HREmail:        r.HREmail,
		CompanyName:    r.CompanyName,
		Note:           r.Note,
		Status:         r.Status,
		RequestedAt:    r.CreatedAt,
		DecidedAt:      r.DecidedAt,
		DecidedBy:      r.DecidedBy,
	}
}
