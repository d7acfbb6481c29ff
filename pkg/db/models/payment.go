package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/assetflow-backend/pkg/enums"
)

// Payment is an immutable ledger row for a confirmed package purchase.
type Payment struct {
	ID              uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	HREmail         string              `gorm:"column:hr_email;not null;index:idx_payments_hr_email"`
	PackageName     string              `gorm:"column:package_name;not null"`
	EmployeeLimit   int                 `gorm:"column:employee_limit;not null"`
	AmountCents     int64               `gorm:"column:amount_cents;not null"`
	Currency        string              `gorm:"column:currency;not null"`
	SessionID       string              `gorm:"column:session_id;not null;uniqueIndex:uq_payments_session_id"`
	PaymentIntentID *string             `gorm:"column:payment_intent_id"`
	Status          enums.PaymentStatus `gorm:"column:status;not null"`
	PaidAt          time.Time           `gorm:"column:paid_at;not null"`
	CreatedAt       time.Time           `gorm:"column:created_at;autoCreateTime"`
}

func (p *Payment) BeforeCreate(*gorm.DB) error {
	ensureID(&p.ID)
	return nil
}
