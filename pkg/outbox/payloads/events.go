package payloads

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/assetflow-backend/pkg/enums"
)

// RequestCreatedEvent is emitted when an employee files an asset request.
type RequestCreatedEvent struct {
	RequestID      uuid.UUID       `json:"request_id"`
	AssetID        uuid.UUID       `json:"asset_id"`
	AssetName      string          `json:"asset_name"`
	AssetType      enums.AssetType `json:"asset_type"`
	RequesterEmail string          `json:"requester_email"`
	HREmail        string          `json:"hr_email"`
	CompanyName    string          `json:"company_name"`
	RequestedAt    time.Time       `json:"requested_at"`
}

// RequestDecidedEvent covers both approvals and rejections.
type RequestDecidedEvent struct {
	RequestID      uuid.UUID           `json:"request_id"`
	AssetID        uuid.UUID           `json:"asset_id"`
	RequesterEmail string              `json:"requester_email"`
	HREmail        string              `json:"hr_email"`
	CompanyName    string              `json:"company_name"`
	Status         enums.RequestStatus `json:"status"`
	AssignmentID   *uuid.UUID          `json:"assignment_id,omitempty"`
	DecidedAt      time.Time           `json:"decided_at"`
}

// AssetAssignedEvent is emitted for approvals and direct assignments alike.
type AssetAssignedEvent struct {
	AssignmentID      uuid.UUID              `json:"assignment_id"`
	AssetID           uuid.UUID              `json:"asset_id"`
	AssetName         string                 `json:"asset_name"`
	EmployeeEmail     string                 `json:"employee_email"`
	HREmail           string                 `json:"hr_email"`
	CompanyName       string                 `json:"company_name"`
	Source            enums.AssignmentSource `json:"source"`
	RequestID         *uuid.UUID             `json:"request_id,omitempty"`
	AvailableQuantity int                    `json:"available_quantity"`
	AssignedAt        time.Time              `json:"assigned_at"`
}

// AssetReturnedEvent is emitted once per returned assignment.
type AssetReturnedEvent struct {
	AssignmentID  uuid.UUID        `json:"assignment_id"`
	AssetID       uuid.UUID        `json:"asset_id"`
	EmployeeEmail string           `json:"employee_email"`
	HREmail       string           `json:"hr_email"`
	CompanyName   string           `json:"company_name"`
	Mode          enums.ReturnMode `json:"mode"`
	Restocked     bool             `json:"restocked"`
	ReturnedAt    time.Time        `json:"returned_at"`
}

// AffiliationEvent covers activation and removal.
type AffiliationEvent struct {
	AffiliationID    uuid.UUID               `json:"affiliation_id"`
	EmployeeEmail    string                  `json:"employee_email"`
	HREmail          string                  `json:"hr_email"`
	CompanyName      string                  `json:"company_name"`
	Status           enums.AffiliationStatus `json:"status"`
	CurrentEmployees int                     `json:"current_employees"`
	ReturnedCount    int                     `json:"returned_count,omitempty"`
	OccurredAt       time.Time               `json:"occurred_at"`
}

// PaymentConfirmedEvent is emitted after the package limit has been raised.
type PaymentConfirmedEvent struct {
	PaymentID       uuid.UUID `json:"payment_id"`
	HREmail         string    `json:"hr_email"`
	PackageName     string    `json:"package_name"`
	EmployeeLimit   int       `json:"employee_limit"`
	PackageLimit    int       `json:"package_limit"`
	AmountCents     int64     `json:"amount_cents"`
	Currency        string    `json:"currency"`
	SessionID       string    `json:"session_id"`
	PaymentIntentID string    `json:"payment_intent_id,omitempty"`
	PaidAt          time.Time `json:"paid_at"`
}
