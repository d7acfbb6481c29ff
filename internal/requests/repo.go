package requests

import (
	"context"
	"errors"
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

func (r *Repository) Create(ctx context.Context, req *models.AssetRequest) error {
	return r.db.WithContext(ctx).Create(req).Error
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.AssetRequest, error) {
	var req models.AssetRequest
	if err := r.db.WithContext(ctx).First(&req, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &req, nil
}

// HasPending reports whether the employee already waits on the asset.
func (r *Repository) HasPending(ctx context.Context, assetID uuid.UUID, requesterEmail string) (bool, error) {
	var req models.AssetRequest
	err := r.db.WithContext(ctx).
		Select("id").
		Where("asset_id = ? AND requester_email = ? AND status = ?", assetID, requesterEmail, enums.RequestStatusPending).
		First(&req).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// MarkDecided closes a pending request. It reports false when the request had
// already left pending.
func (r *Repository) MarkDecided(ctx context.Context, id uuid.UUID, status enums.RequestStatus, decidedBy string, at time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.AssetRequest{}).
		Where("id = ? AND status = ?", id, enums.RequestStatusPending).
		Updates(map[string]any{
			"status":     status,
			"decided_at": at,
			"decided_by": decidedBy,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// ListScope anchors a listing on the hr account or on the requester.
type ListScope struct {
	HREmail        string
	RequesterEmail string
}

func (r *Repository) List(ctx context.Context, scope ListScope, filters ListFilters, params pagination.Params) ([]models.AssetRequest, string, error) {
	page, err := pagination.Scope("asset_requests", params)
	if err != nil {
		return nil, "", err
	}
	query := r.db.WithContext(ctx).Model(&models.AssetRequest{})
	if scope.HREmail != "" {
		query = query.Where("asset_requests.hr_email = ?", scope.HREmail)
	}
	if scope.RequesterEmail != "" {
		query = query.Where("asset_requests.requester_email = ?", scope.RequesterEmail)
	}
	if filters.Status != nil {
		query = query.Where("asset_requests.status = ?", *filters.Status)
	}
	if term := strings.TrimSpace(filters.Search); term != "" {
		like := "%" + strings.ToLower(term) + "%"
		query = query.Where(
			"(LOWER(asset_requests.requester_email) LIKE ? OR LOWER(asset_requests.requester_name) LIKE ? OR LOWER(asset_requests.asset_name) LIKE ?)",
			like, like, like,
		)
	}

	var rows []models.AssetRequest
	if err := query.Scopes(page).Find(&rows).Error; err != nil {
		return nil, "", err
	}
	rows, next := pagination.Trim(rows, params.Limit, func(req models.AssetRequest) pagination.Cursor {
		return pagination.Cursor{CreatedAt: req.CreatedAt, ID: req.ID}
	})
	return rows, next, nil
}
