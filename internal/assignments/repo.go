package assignments

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
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

func (r *Repository) Create(ctx context.Context, assignment *models.Assignment) error {
	return r.db.WithContext(ctx).Create(assignment).Error
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Assignment, error) {
	var assignment models.Assignment
	if err := r.db.WithContext(ctx).First(&assignment, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &assignment, nil
}

// MarkReturned moves an assigned row to returned. It reports false when the
// row was no longer assigned.
func (r *Repository) MarkReturned(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Assignment{}).
		Where("id = ? AND status = ?", id, enums.AssignmentStatusAssigned).
		Updates(map[string]any{
			"status":      enums.AssignmentStatusReturned,
			"returned_at": at,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// ActiveForEmployee lists what an employee still holds from one company.
func (r *Repository) ActiveForEmployee(ctx context.Context, employeeEmail, companyName string) ([]models.Assignment, error) {
	var rows []models.Assignment
	err := r.db.WithContext(ctx).
		Where("employee_email = ? AND company_name = ? AND status = ?", employeeEmail, companyName, enums.AssignmentStatusAssigned).
		Order("assigned_at ASC").
		Find(&rows).Error
	return rows, err
}

// ListScope anchors a listing on the employee or on the company.
type ListScope struct {
	EmployeeEmail string
	CompanyName   string
}

func (r *Repository) List(ctx context.Context, scope ListScope, filters ListFilters, params pagination.Params) ([]models.Assignment, string, error) {
	page, err := pagination.Scope("assignments", params)
	if err != nil {
		return nil, "", err
	}
	query := r.db.WithContext(ctx).Model(&models.Assignment{})
	if scope.EmployeeEmail != "" {
		query = query.Where("assignments.employee_email = ?", scope.EmployeeEmail)
	}
	if scope.CompanyName != "" {
		query = query.Where("assignments.company_name = ?", scope.CompanyName)
	}
	if filters.Status != nil {
		query = query.Where("assignments.status = ?", *filters.Status)
	}
	if filters.Type != nil {
		query = query.Where("assignments.asset_type = ?", *filters.Type)
	}
	if filters.EmployeeEmail != "" {
		query = query.Where("assignments.employee_email = ?", filters.EmployeeEmail)
	}
	if term := strings.TrimSpace(filters.Search); term != "" {
		query = query.Where("LOWER(assignments.asset_name) LIKE ?", "%"+strings.ToLower(term)+"%")
	}

	var rows []models.Assignment
	if err := query.Scopes(page).Find(&rows).Error; err != nil {
		return nil, "", err
	}
	rows, next := pagination.Trim(rows, params.Limit, func(a models.Assignment) pagination.Cursor {
		return pagination.Cursor{CreatedAt: a.CreatedAt, ID: a.ID}
	})
	return rows, next, nil
}
