package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Package is a catalog tier seeded by migration.
type Package struct {
	ID            uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	Name          string    `gorm:"column:name;not null;uniqueIndex:uq_packages_name"`
	EmployeeLimit int       `gorm:"column:employee_limit;not null"`
	PriceCents    int64     `gorm:"column:price_cents;not null"`
	Description   string    `gorm:"column:description;not null"`
	CreatedAt     time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (p *Package) BeforeCreate(*gorm.DB) error {
	ensureID(&p.ID)
	return nil
}
