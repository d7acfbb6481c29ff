package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/assetflow-backend/pkg/enums"
)

// User is both the identity and, for hr accounts, the company record.
type User struct {
	ID               uuid.UUID      `gorm:"column:id;type:uuid;primaryKey"`
	Email            string         `gorm:"column:email;type:text;not null;uniqueIndex:uq_users_email"`
	Name             string         `gorm:"column:name;not null"`
	Role             enums.UserRole `gorm:"column:role;not null"`
	CompanyName      *string        `gorm:"column:company_name"`
	CompanyLogo      *string        `gorm:"column:company_logo"`
	PhotoURL         *string        `gorm:"column:photo_url"`
	DateOfBirth      *time.Time     `gorm:"column:date_of_birth;type:date"`
	PackageLimit     int            `gorm:"column:package_limit;not null;default:0;check:chk_users_package_limit,package_limit >= 0"`
	CurrentEmployees int            `gorm:"column:current_employees;not null;default:0;check:chk_users_current_employees,current_employees >= 0"`
	Subscription     string         `gorm:"column:subscription;not null"`
	CreatedAt        time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}

func (u *User) BeforeCreate(*gorm.DB) error {
	ensureID(&u.ID)
	return nil
}

func (u *User) IsHR() bool {
	return u != nil && u.Role == enums.UserRoleHR
}

// Company returns the company name or an empty string.
func (u *User) Company() string {
	if u == nil || u.CompanyName == nil {
		return ""
	}
	return *u.CompanyName
}
