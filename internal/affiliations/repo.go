package affiliations

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/assetflow-backend/pkg/db/models"
	"github.com/angelmondragon/assetflow-backend/pkg/enums"
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

func (r *Repository) Create(ctx context.Context, affiliation *models.Affiliation) error {
	return r.db.WithContext(ctx).Create(affiliation).Error
}

// FindByPair loads the affiliation regardless of status.
func (r *Repository) FindByPair(ctx context.Context, employeeEmail, companyName string) (*models.Affiliation, error) {
	var affiliation models.Affiliation
	err := r.db.WithContext(ctx).
		Where("employee_email = ? AND company_name = ?", employeeEmail, companyName).
		First(&affiliation).Error
	if err != nil {
		return nil, err
	}
	return &affiliation, nil
}

// Reactivate flips an inactive pairing back to active.
func (r *Repository) Reactivate(ctx context.Context, affiliation *models.Affiliation, at time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Affiliation{}).
		Where("id = ? AND status = ?", affiliation.ID, enums.AffiliationStatusInactive).
		Updates(map[string]any{
			"status":        enums.AffiliationStatusActive,
			"affiliated_at": at,
			"removed_at":    nil,
			"employee_name": affiliation.EmployeeName,
			"company_logo":  affiliation.CompanyLogo,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// Deactivate flips an active pairing to inactive.
func (r *Repository) Deactivate(ctx context.Context, affiliation *models.Affiliation, at time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Affiliation{}).
		Where("id = ? AND status = ?", affiliation.ID, enums.AffiliationStatusActive).
		Updates(map[string]any{
			"status":     enums.AffiliationStatusInactive,
			"removed_at": at,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// ActiveCompanies lists the companies an employee currently belongs to.
func (r *Repository) ActiveCompanies(ctx context.Context, employeeEmail string) ([]string, error) {
	companies := []string{}
	err := r.db.WithContext(ctx).
		Model(&models.Affiliation{}).
		Where("employee_email = ? AND status = ?", employeeEmail, enums.AffiliationStatusActive).
		Order("company_name ASC").
		Pluck("company_name", &companies).Error
	return companies, err
}

// ListScope picks the side of the pairing a listing is anchored on.
type ListScope struct {
	HREmail       string
	EmployeeEmail string
}

func (r *Repository) List(ctx context.Context, scope ListScope, filters ListFilters, params pagination.Params) ([]models.Affiliation, string, error) {
	page, err := pagination.Scope("affiliations", params)
	if err != nil {
		return nil, "", err
	}
	query := r.db.WithContext(ctx).Model(&models.Affiliation{})
	if scope.HREmail != "" {
		query = query.Where("affiliations.hr_email = ?", scope.HREmail)
	}
	if scope.EmployeeEmail != "" {
		query = query.Where("affiliations.employee_email = ?", scope.EmployeeEmail)
	}
	if filters.Status != nil {
		query = query.Where("affiliations.status = ?", *filters.Status)
	}

	var rows []models.Affiliation
	if err := query.Scopes(page).Find(&rows).Error; err != nil {
		return nil, "", err
	}
	rows, next := pagination.Trim(rows, params.Limit, func(a models.Affiliation) pagination.Cursor {
		return pagination.Cursor{CreatedAt: a.CreatedAt, ID: a.ID}
	})
	return rows, next, nil
}
