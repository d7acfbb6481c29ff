package assets

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

// Repository persists assets and the rows that reference them.
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

func (r *Repository) Create(ctx context.Context, asset *models.Asset) error {
	return r.db.WithContext(ctx).Create(asset).Error
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Asset, error) {
	var asset models.Asset
	if err := r.db.WithContext(ctx).First(&asset, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &asset, nil
}

// UpdateIfUnchanged applies updates only while the quantities still match
// what the caller read. It reports whether the row was written.
func (r *Repository) UpdateIfUnchanged(ctx context.Context, current *models.Asset, updates map[string]any) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Asset{}).
		Where("id = ? AND product_quantity = ? AND available_quantity = ?",
			current.ID, current.ProductQuantity, current.AvailableQuantity).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&models.Asset{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *Repository) CountActiveAssignments(ctx context.Context, assetID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Assignment{}).
		Where("asset_id = ? AND status = ?", assetID, enums.AssignmentStatusAssigned).
		Count(&count).Error
	return count, err
}

func (r *Repository) PendingRequests(ctx context.Context, assetID uuid.UUID) ([]models.AssetRequest, error) {
	var rows []models.AssetRequest
	err := r.db.WithContext(ctx).
		Where("asset_id = ? AND status = ?", assetID, enums.RequestStatusPending).
		Order("created_at ASC").
		Find(&rows).Error
	return rows, err
}

// RejectPendingRequests closes every pending request for the asset.
func (r *Repository) RejectPendingRequests(ctx context.Context, assetID uuid.UUID, decidedBy string, at time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.AssetRequest{}).
		Where("asset_id = ? AND status = ?", assetID, enums.RequestStatusPending).
		Updates(map[string]any{
			"status":     enums.RequestStatusRejected,
			"decided_at": at,
			"decided_by": decidedBy,
		})
	return result.RowsAffected, result.Error
}

// ListScope restricts a listing to what a caller may see.
// A nil Companies slice means no company restriction.
type ListScope struct {
	HREmail       string
	Companies     []string
	OnlyAvailable bool
}

func (r *Repository) List(ctx context.Context, scope ListScope, filters ListFilters, params pagination.Params) ([]models.Asset, string, error) {
	if scope.Companies != nil && len(scope.Companies) == 0 {
		return nil, "", nil
	}
	page, err := pagination.Scope("assets", params)
	if err != nil {
		return nil, "", err
	}

	query := r.db.WithContext(ctx).Model(&models.Asset{})
	if scope.HREmail != "" {
		query = query.Where("assets.hr_email = ?", scope.HREmail)
	}
	if scope.Companies != nil {
		query = query.Where("assets.company_name IN ?", scope.Companies)
	}
	if scope.OnlyAvailable {
		query = query.Where("assets.available_quantity > 0")
	}
	if search := strings.ToLower(strings.TrimSpace(filters.Search)); search != "" {
		query = query.Where("LOWER(assets.product_name) LIKE ?", "%"+search+"%")
	}
	if filters.Type != nil {
		query = query.Where("assets.product_type = ?", *filters.Type)
	}
	if filters.Stock != nil {
		switch *filters.Stock {
		case enums.StockAvailable:
			query = query.Where("assets.available_quantity > 0")
		case enums.StockOut:
			query = query.Where("assets.available_quantity = 0")
		}
	}
	if company := strings.TrimSpace(filters.Company); company != "" {
		query = query.Where("assets.company_name = ?", company)
	}

	var rows []models.Asset
	if err := query.Scopes(page).Find(&rows).Error; err != nil {
		return nil, "", err
	}
	rows, next := pagination.Trim(rows, params.Limit, func(a models.Asset) pagination.Cursor {
		return pagination.Cursor{CreatedAt: a.CreatedAt, ID: a.ID}
	})
	return rows, next, nil
}
