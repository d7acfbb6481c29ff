package users

import (
	"context"

	"gorm.io/gorm"

	"github.com/angelmondragon/assetflow-backend/pkg/db/models"
	"github.com/angelmondragon/assetflow-backend/pkg/enums"
)

// Repository exposes user persistence, including the seat counters hr
// accounts carry for affiliation bookkeeping.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a users repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

func (r *Repository) Create(ctx context.Context, user *models.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

// FindByEmail retrieves the user matching the lower-cased email.
func (r *Repository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *Repository) UpdateProfile(ctx context.Context, email string, updates map[string]any) error {
	if len(updates) == 0 {
		return nil
	}
	result := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("email = ?", email).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ReserveSeat increments current_employees unless the hr account is at its
// package limit. A limit of 0 means unlimited. It reports whether a seat was taken.
func (r *Repository) ReserveSeat(ctx context.Context, hrEmail string) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("email = ? AND role = ?", hrEmail, enums.UserRoleHR).
		Where("package_limit = 0 OR current_employees < package_limit").
		UpdateColumn("current_employees", gorm.Expr("current_employees + 1"))
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// ReleaseSeat decrements current_employees, never below zero.
func (r *Repository) ReleaseSeat(ctx context.Context, hrEmail string) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("email = ? AND current_employees > 0", hrEmail).
		UpdateColumn("current_employees", gorm.Expr("current_employees - 1"))
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// ApplyPackage raises the hr account's limit after a confirmed purchase.
func (r *Repository) ApplyPackage(ctx context.Context, hrEmail string, packageLimit int, subscription string) error {
	result := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("email = ? AND role = ?", hrEmail, enums.UserRoleHR).
		Updates(map[string]any{
			"package_limit": packageLimit,
			"subscription":  subscription,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ReconcileSeatCounts sets current_employees on every hr account to the number
// of its active affiliations and returns how many accounts were corrected.
func (r *Repository) ReconcileSeatCounts(ctx context.Context) (int64, error) {
	active := r.db.Model(&models.Affiliation{}).
		Select("COUNT(*)").
		Where("affiliations.hr_email = users.email AND affiliations.status = ?", enums.AffiliationStatusActive)

	result := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("role = ?", enums.UserRoleHR).
		Where("current_employees <> (?)", active).
		UpdateColumn("current_employees", active)
	return result.RowsAffected, result.Error
}
