package payments

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/assetflow-backend/internal/packages"
	"github.com/angelmondragon/assetflow-backend/pkg/db/models"
	"github.com/angelmondragon/assetflow-backend/pkg/enums"
)

type PaymentDTO struct {
	ID              uuid.UUID           `json:"id"`
	HREmail         string              `json:"hrEmail"`
	PackageName     string              `json:"packageName"`
	EmployeeLimit   int                 `json:"employeeLimit"`
	Amount          string              `json:"amount"`
	AmountCents     int64               `json:"amountCents"`
	Currency        string              `json:"currency"`
	SessionID       string              `json:"sessionId"`
	PaymentIntentID *string             `json:"paymentIntentId,omitempty"`
	Status          enums.PaymentStatus `json:"status"`
	PaidAt          time.Time           `json:"paidAt"`
}

// CheckoutInput is the body of POST /create-checkout-session.
type CheckoutInput struct {
	PackageName string `json:"packageName" validate:"required"`
}

type CheckoutResult struct {
	SessionID string `json:"sessionId"`
	URL       string `json:"url"`
}

// ConfirmInput is the body of POST /confirm-payment.
type ConfirmInput struct {
	SessionID string `json:"sessionId" validate:"required"`
}

type ConfirmResult struct {
	Payment      PaymentDTO `json:"payment"`
	PackageLimit int        `json:"packageLimit"`
	Subscription string     `json:"subscription"`
}

func FromModel(p *models.Payment) PaymentDTO {
	return PaymentDTO{
		ID:              p.ID,
		HREmail:         p.HREmail,
		PackageName:     p.PackageName,
		EmployeeLimit:   p.EmployeeLimit,
		Amount:          packages.FormatCents(p.AmountCents),
		AmountCents:     p.AmountCents,
		Currency:        p.Currency,
		SessionID:       p.SessionID,
		PaymentIntentID: p.PaymentIntentID,
		Status:          p.Status,
		PaidAt:          p.PaidAt,
	}
}
