package packages

import (
	"context"

	"gorm.io/gorm"

	"github.com/angelmondragon/assetflow-backend/pkg/db/models"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// List returns the catalog, smallest tier first.
func (r *Repository) List(ctx context.Context) ([]models.Package, error) {
	var rows []models.Package
	err := r.db.WithContext(ctx).
		Order("employee_limit ASC").
		Order("name ASC").
		Find(&rows).Error
	return rows, err
}

func (r *Repository) FindByName(ctx context.Context, name string) (*models.Package, error) {
	var pkg models.Package
	if err := r.db.WithContext(ctx).First(&pkg, "name = ?", name).Error; err != nil {
		return nil, err
	}
	return &pkg, nil
}
