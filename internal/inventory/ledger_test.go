package inventory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	pkgdb "github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/dbtest"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func seedSKU(t *testing.T, db *gorm.DB, id int64, stock, sales int, price string) {
	t.Helper()
	sku := models.SKU{ID: id, Name: "sku", CategoryID: 1, Price: decimal.RequireFromString(price), Stock: stock, Sales: sales}
	require.NoError(t, db.Create(&sku).Error)
}

func loadSKU(t *testing.T, db *gorm.DB, id int64) models.SKU {
	t.Helper()
	var sku models.SKU
	require.NoError(t, db.First(&sku, "id = ?", id).Error)
	return sku
}

func TestLockAndDecrement(t *testing.T) {
	db := dbtest.OpenSQLite(t)
	seedSKU(t, db, 42, 5, 7, "9.99")
	ledger := NewLedger(db)

	var res Reservation
	err := db.Transaction(func(tx *gorm.DB) error {
		var err error
		res, err = ledger.LockAndDecrement(context.Background(), tx, 42, 2)
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, int64(42), res.SKUID)
	assert.Equal(t, 2, res.Quantity)
	assert.Equal(t, 3, res.NewStock)
	assert.Equal(t, 9, res.NewSales)
	assert.True(t, res.UnitPrice.Equal(decimal.RequireFromString("9.99")))

	sku := loadSKU(t, db, 42)
	assert.Equal(t, 3, sku.Stock)
	assert.Equal(t, 9, sku.Sales)

	stock, err := ledger.Stock(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, 3, stock)
}

func TestLockAndDecrementInsufficientStock(t *testing.T) {
	db := dbtest.OpenSQLite(t)
	seedSKU(t, db, 7, 4, 0, "1.00")
	ledger := NewLedger(db)

	err := db.Transaction(func(tx *gorm.DB) error {
		_, err := ledger.LockAndDecrement(context.Background(), tx, 7, 10)
		return err
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInsufficientStock))
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeOutOfStock, typed.Code())
	assert.Equal(t, map[string]any{"sku_id": int64(7)}, typed.Details())

	sku := loadSKU(t, db, 7)
	assert.Equal(t, 4, sku.Stock)
	assert.Equal(t, 0, sku.Sales)
}

func TestLockAndDecrementValidation(t *testing.T) {
	db := dbtest.OpenSQLite(t)
	ledger := NewLedger(db)

	err := db.Transaction(func(tx *gorm.DB) error {
		_, err := ledger.LockAndDecrement(context.Background(), tx, 99, 1)
		return err
	})
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())

	err = db.Transaction(func(tx *gorm.DB) error {
		_, err := ledger.LockAndDecrement(context.Background(), tx, 99, 0)
		return err
	})
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())

	_, err = ledger.LockAndDecrement(context.Background(), nil, 99, 1)
	assert.Equal(t, pkgerrors.CodeInternal, pkgerrors.As(err).Code())

	_, err = ledger.Stock(context.Background(), 99)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())
}

func TestLockAndDecrementConcurrentBuyers(t *testing.T) {
	runConcurrentBuyers(t, dbtest.OpenSQLite(t))
}

func TestLockAndDecrementConcurrentBuyersPostgres(t *testing.T) {
	runConcurrentBuyers(t, dbtest.OpenPostgres(t))
}

func runConcurrentBuyers(t *testing.T, db *gorm.DB) {
	t.Helper()
	seedSKU(t, db, 1, 3, 0, "2.50")
	ledger := NewLedger(db)

	const buyers = 8
	var (
		wg         sync.WaitGroup
		mu         sync.Mutex
		succeeded  int
		outOfStock int
	)
	for range buyers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := db.Transaction(func(tx *gorm.DB) error {
				_, err := ledger.LockAndDecrement(context.Background(), tx, 1, 1)
				return err
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, ErrInsufficientStock):
				outOfStock++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 3, succeeded)
	assert.Equal(t, buyers-3, outOfStock)
	sku := loadSKU(t, db, 1)
	assert.Equal(t, 0, sku.Stock)
	assert.Equal(t, 3, sku.Sales)
}

func TestLockTimeoutIsDependencyError(t *testing.T) {
	ctx := context.Background()
	db := dbtest.OpenPostgres(t)
	seedSKU(t, db, 1, 5, 0, "1.00")
	ledger := NewLedger(db)
	client := pkgdb.NewFromGorm(db, 100*time.Millisecond)

	locked := make(chan struct{})
	release := make(chan struct{})
	holder := make(chan error, 1)
	go func() {
		holder <- client.WithTx(ctx, func(tx *gorm.DB) error {
			return ledger.WithLock(ctx, tx, 1, func(*models.SKU) error {
				close(locked)
				<-release
				return nil
			})
		})
	}()
	<-locked

	err := client.WithTx(ctx, func(tx *gorm.DB) error {
		_, err := ledger.LockAndDecrement(ctx, tx, 1, 1)
		return err
	})
	close(release)
	require.NoError(t, <-holder)

	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeDependency, typed.Code())
	assert.True(t, pkgdb.IsLockTimeout(err))
	assert.Equal(t, map[string]any{"sku_id": int64(1)}, typed.Details())
	assert.Equal(t, 5, loadSKU(t, db, 1).Stock)
}

func TestWithLockExposesLockedRow(t *testing.T) {
	db := dbtest.OpenSQLite(t)
	seedSKU(t, db, 5, 10, 1, "3.00")
	ledger := NewLedger(db)

	err := db.Transaction(func(tx *gorm.DB) error {
		return ledger.WithLock(context.Background(), tx, 5, func(sku *models.SKU) error {
			assert.Equal(t, 10, sku.Stock)
			return errors.New("abort")
		})
	})
	require.EqualError(t, err, "abort")
	assert.Equal(t, 10, loadSKU(t, db, 5).Stock)
}

func TestRestockReturnsUnits(t *testing.T) {
	db := dbtest.OpenSQLite(t)
	seedSKU(t, db, 11, 3, 4, "2.50")
	ledger := NewLedger(db)

	err := db.Transaction(func(tx *gorm.DB) error {
		return ledger.Restock(context.Background(), tx, 11, 4)
	})
	require.NoError(t, err)
	sku := loadSKU(t, db, 11)
	assert.Equal(t, 7, sku.Stock)
	assert.Equal(t, 0, sku.Sales)
}

func TestRestockRefusesMoreThanSold(t *testing.T) {
	db := dbtest.OpenSQLite(t)
	seedSKU(t, db, 12, 3, 1, "2.50")
	ledger := NewLedger(db)

	err := db.Transaction(func(tx *gorm.DB) error {
		return ledger.Restock(context.Background(), tx, 12, 2)
	})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeConflict, pkgerrors.As(err).Code())
	sku := loadSKU(t, db, 12)
	assert.Equal(t, 3, sku.Stock)
	assert.Equal(t, 1, sku.Sales)
}
