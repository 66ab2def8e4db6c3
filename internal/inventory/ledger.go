package inventory

import (
	"context"
	stdErrors "errors"
	"fmt"

	pkgdb "github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrInsufficientStock is wrapped by every OUT_OF_STOCK error the ledger returns.
var ErrInsufficientStock = stdErrors.New("insufficient stock")

// Reservation is the outcome of a successful decrement.
type Reservation struct {
	SKUID     int64
	Quantity  int
	UnitPrice decimal.Decimal
	NewStock  int
	NewSales  int
}

// Ledger is the only writer of skus.stock and skus.sales.
type Ledger struct {
	db *gorm.DB
}

// NewLedger builds a ledger reading through the provided DB.
func NewLedger(db *gorm.DB) *Ledger {
	return &Ledger{db: db}
}

// WithLock loads the sku row with SELECT ... FOR UPDATE inside tx and runs fn
// while the lock is held. The lock is released when tx ends.
func (l *Ledger) WithLock(ctx context.Context, tx *gorm.DB, skuID int64, fn func(sku *models.SKU) error) error {
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "row lock requires a transaction")
	}
	var sku models.SKU
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", skuID).
		First(&sku).Error
	if err != nil {
		if stdErrors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeValidation, "sku not found").WithDetails(map[string]any{"sku_id": skuID})
		}
		return classify(err, skuID)
	}
	return fn(&sku)
}

// LockAndDecrement reserves qty units of a sku: stock goes down and sales go
// up by qty as one locked unit. Callers own tx and must roll it back on error.
func (l *Ledger) LockAndDecrement(ctx context.Context, tx *gorm.DB, skuID int64, qty int) (Reservation, error) {
	if qty <= 0 {
		return Reservation{}, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive").
			WithDetails(map[string]any{"sku_id": skuID, "quantity": qty})
	}

	var res Reservation
	err := l.WithLock(ctx, tx, skuID, func(sku *models.SKU) error {
		if qty > sku.Stock {
			return outOfStock(skuID)
		}

		// The stock guard keeps engines without row locks honest: a concurrent
		// writer that slipped in shows up as zero affected rows.
		result := tx.WithContext(ctx).
			Model(&models.SKU{}).
			Where("id = ? AND stock >= ?", skuID, qty).
			Updates(map[string]any{
				"stock": gorm.Expr("stock - ?", qty),
				"sales": gorm.Expr("sales + ?", qty),
			})
		if result.Error != nil {
			return classify(result.Error, skuID)
		}
		if result.RowsAffected == 0 {
			return outOfStock(skuID)
		}

		res = Reservation{
			SKUID:     skuID,
			Quantity:  qty,
			UnitPrice: sku.Price,
			NewStock:  sku.Stock - qty,
			NewSales:  sku.Sales + qty,
		}
		return nil
	})
	if err != nil {
		return Reservation{}, err
	}
	return res, nil
}

// Restock returns qty units of a canceled order line: stock goes up and sales
// go down by qty under the same row lock the decrement takes.
func (l *Ledger) Restock(ctx context.Context, tx *gorm.DB, skuID int64, qty int) error {
	if qty <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive").
			WithDetails(map[string]any{"sku_id": skuID, "quantity": qty})
	}
	return l.WithLock(ctx, tx, skuID, func(sku *models.SKU) error {
		if qty > sku.Sales {
			return pkgerrors.New(pkgerrors.CodeConflict, "restock exceeds recorded sales").
				WithDetails(map[string]any{"sku_id": skuID})
		}
		result := tx.WithContext(ctx).
			Model(&models.SKU{}).
			Where("id = ? AND sales >= ?", skuID, qty).
			Updates(map[string]any{
				"stock": gorm.Expr("stock + ?", qty),
				"sales": gorm.Expr("sales - ?", qty),
			})
		if result.Error != nil {
			return classify(result.Error, skuID)
		}
		if result.RowsAffected == 0 {
			return pkgerrors.New(pkgerrors.CodeConflict, "restock exceeds recorded sales").
				WithDetails(map[string]any{"sku_id": skuID})
		}
		return nil
	})
}

// Stock reads the current stock without locking.
func (l *Ledger) Stock(ctx context.Context, skuID int64) (int, error) {
	var sku models.SKU
	err := l.db.WithContext(ctx).Select("id", "stock").Where("id = ?", skuID).First(&sku).Error
	if err != nil {
		if stdErrors.Is(err, gorm.ErrRecordNotFound) {
			return 0, pkgerrors.New(pkgerrors.CodeNotFound, "sku not found").WithDetails(map[string]any{"sku_id": skuID})
		}
		return 0, fmt.Errorf("read stock for sku %d: %w", skuID, err)
	}
	return sku.Stock, nil
}

func outOfStock(skuID int64) error {
	return pkgerrors.Wrap(pkgerrors.CodeOutOfStock, ErrInsufficientStock, fmt.Sprintf("insufficient stock for sku %d", skuID)).
		WithDetails(map[string]any{"sku_id": skuID})
}

// classify maps lock waits that ran out of time to a retryable dependency
// error and leaves everything else for the coordinator to inspect.
func classify(err error, skuID int64) error {
	if pkgdb.IsLockTimeout(err) {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, fmt.Sprintf("timed out waiting for sku %d", skuID)).
			WithDetails(map[string]any{"sku_id": skuID})
	}
	return fmt.Errorf("sku %d: %w", skuID, err)
}
