package address

import (
	"context"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"gorm.io/gorm"
)

// Repository persists addresses and the owner's default pointer.
type Repository struct {
	db *gorm.DB
}

// NewRepository binds the repository to a DB handle.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository scoped to the transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// FindByID returns the address regardless of owner or deleted state.
func (r *Repository) FindByID(ctx context.Context, id int64) (*models.Address, error) {
	var addr models.Address
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&addr).Error; err != nil {
		return nil, err
	}
	return &addr, nil
}

func (r *Repository) CountLive(ctx context.Context, userID int64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Address{}).
		Where("user_id = ? AND is_deleted = ?", userID, false).
		Count(&count).Error
	return count, err
}

func (r *Repository) ListLive(ctx context.Context, userID int64) ([]models.Address, error) {
	var addrs []models.Address
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND is_deleted = ?", userID, false).
		Order("updated_at DESC").
		Order("id DESC").
		Find(&addrs).Error
	return addrs, err
}

func (r *Repository) Create(ctx context.Context, addr *models.Address) error {
	return r.db.WithContext(ctx).Create(addr).Error
}

func (r *Repository) Update(ctx context.Context, id int64, updates map[string]any) error {
	return r.db.WithContext(ctx).Model(&models.Address{}).Where("id = ?", id).Updates(updates).Error
}

// SoftDelete marks the address deleted and clears any default pointing at it.
func (r *Repository) SoftDelete(ctx context.Context, userID, id int64) error {
	if err := r.Update(ctx, id, map[string]any{"is_deleted": true}); err != nil {
		return err
	}
	return r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ? AND default_address_id = ?", userID, id).
		Update("default_address_id", nil).Error
}

func (r *Repository) DefaultID(ctx context.Context, userID int64) (*int64, error) {
	var user models.User
	err := r.db.WithContext(ctx).Select("id", "default_address_id").Where("id = ?", userID).First(&user).Error
	if err != nil {
		return nil, err
	}
	return user.DefaultAddressID, nil
}

func (r *Repository) SetDefault(ctx context.Context, userID, addressID int64) error {
	result := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", userID).
		Update("default_address_id", addressID)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
