package orders

import (
	"context"
	"time"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Repository defines persistence operations for order tables.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateOrder(ctx context.Context, order *models.Order) (*models.Order, error)
	CreateLines(ctx context.Context, lines []models.OrderLine) error
	UpdateTotals(ctx context.Context, orderID string, totalCount int, totalAmount decimal.Decimal) error
	FindForUser(ctx context.Context, orderID string, userID int64) (*models.Order, error)
	ListForUser(ctx context.Context, userID int64, params pagination.Params) ([]models.Order, int64, error)
	FindByStatusBefore(ctx context.Context, status enums.OrderStatus, cutoff time.Time, limit int) ([]models.Order, error)
	TransitionStatus(ctx context.Context, orderID string, from, to enums.OrderStatus) (bool, error)
}
