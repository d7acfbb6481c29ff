package payments

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/angelmondragon/assetflow-backend/pkg/db/models"
	"github.com/angelmondragon/assetflow-backend/pkg/pagination"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

func (r *Repository) Create(ctx context.Context, payment *models.Payment) error {
	return r.db.WithContext(ctx).Create(payment).Error
}

func (r *Repository) FindBySession(ctx context.Context, sessionID string) (*models.Payment, error) {
	var payment models.Payment
	if err := r.db.WithContext(ctx).First(&payment, "session_id = ?", sessionID).Error; err != nil {
		return nil, err
	}
	return &payment, nil
}

// ExistsForHR reports whether the hr account has any payment on record.
func (r *Repository) ExistsForHR(ctx context.Context, hrEmail string) (bool, error) {
	var payment models.Payment
	err := r.db.WithContext(ctx).Select("id").Where("hr_email = ?", hrEmail).First(&payment).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// ListForHR returns the hr account's payments, newest first.
func (r *Repository) ListForHR(ctx context.Context, hrEmail string, params pagination.Params) ([]models.Payment, string, error) {
	page, err := pagination.Scope("payments", params)
	if err != nil {
		return nil, "", err
	}
	var rows []models.Payment
	if err := r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Where("payments.hr_email = ?", hrEmail).
		Scopes(page).
		Find(&rows).Error; err != nil {
		return nil, "", err
	}
	rows, next := pagination.Trim(rows, params.Limit, func(p models.Payment) pagination.Cursor {
		return pagination.Cursor{CreatedAt: p.CreatedAt, ID: p.ID}
	})
	return rows, next, nil
}
