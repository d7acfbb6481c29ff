package assets

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/assetflow-backend/pkg/db/models"
)

// Inventory moves single units in and out of stock inside the caller's transaction.
type Inventory struct{}

func NewInventory() *Inventory {
	return &Inventory{}
}

// Reserve takes one unit of the asset. ok is false when nothing was available.
// remaining is the available quantity after the decrement.
func (Inventory) Reserve(ctx context.Context, tx *gorm.DB, assetID uuid.UUID) (remaining int, ok bool, err error) {
	if tx == nil {
		return 0, false, errors.New("transaction required")
	}
	result := tx.WithContext(ctx).
		Model(&models.Asset{}).
		Where("id = ? AND available_quantity > 0", assetID).
		UpdateColumn("available_quantity", gorm.Expr("available_quantity - 1"))
	if result.Error != nil {
		return 0, false, result.Error
	}
	if result.RowsAffected == 0 {
		return 0, false, nil
	}
	var asset models.Asset
	if err := tx.WithContext(ctx).Select("available_quantity").First(&asset, "id = ?", assetID).Error; err != nil {
		return 0, false, err
	}
	return asset.AvailableQuantity, true, nil
}

// Release puts one unit back unless the asset is already fully stocked, in
// which case restocked is false and nothing changes.
func (Inventory) Release(ctx context.Context, tx *gorm.DB, assetID uuid.UUID) (restocked bool, err error) {
	if tx == nil {
		return false, errors.New("transaction required")
	}
	result := tx.WithContext(ctx).
		Model(&models.Asset{}).
		Where("id = ? AND available_quantity < product_quantity", assetID).
		UpdateColumn("available_quantity", gorm.Expr("available_quantity + 1"))
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}
