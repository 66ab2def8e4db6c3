package catalog

import (
	"context"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
	"gorm.io/gorm"
)

// Repository reads skus. It never writes stock or sales; the inventory ledger owns those columns.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a catalog repository bound to the provided DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) FindByID(ctx context.Context, id int64) (*models.SKU, error) {
	var sku models.SKU
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&sku).Error; err != nil {
		return nil, err
	}
	return &sku, nil
}

func (r *Repository) FindByIDs(ctx context.Context, ids []int64) ([]models.SKU, error) {
	if len(ids) == 0 {
		return []models.SKU{}, nil
	}
	var skus []models.SKU
	err := r.db.WithContext(ctx).
		Where("id IN ?", ids).
		Order("id ASC").
		Find(&skus).Error
	if err != nil {
		return nil, err
	}
	return skus, nil
}

// ListLaunchedByCategory pages through the launched skus of a category.
// orderBy must already be a whitelisted column expression.
func (r *Repository) ListLaunchedByCategory(ctx context.Context, categoryID int64, orderBy string, params pagination.Params) ([]models.SKU, int64, error) {
	query := r.db.WithContext(ctx).
		Model(&models.SKU{}).
		Where("category_id = ? AND is_launched = ?", categoryID, true)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page := params.Normalize()
	var skus []models.SKU
	err := query.
		Order(orderBy).
		Order("id ASC").
		Limit(page.PageSize).
		Offset(page.Offset()).
		Find(&skus).Error
	if err != nil {
		return nil, 0, err
	}
	return skus, total, nil
}
