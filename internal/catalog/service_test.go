package catalog

import (
	"context"
	"testing"

	"github.com/angelmondragon/storefront-backend/pkg/db/dbtest"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedSKUs(t *testing.T, repo *Repository, skus ...models.SKU) {
	t.Helper()
	for i := range skus {
		require.NoError(t, repo.db.Create(&skus[i]).Error)
	}
}

func newCatalog(t *testing.T) (Service, *Repository) {
	t.Helper()
	repo := NewRepository(dbtest.OpenSQLite(t))
	svc, err := NewService(repo)
	require.NoError(t, err)
	return svc, repo
}

func TestGetSKU(t *testing.T) {
	svc, repo := newCatalog(t)
	seedSKUs(t, repo, models.SKU{ID: 42, Name: "Phone", CategoryID: 1, Price: decimal.RequireFromString("9.99"), Stock: 5})

	sku, err := svc.GetSKU(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, "Phone", sku.Name)
	assert.True(t, sku.Price.Equal(decimal.RequireFromString("9.99")))
	assert.Equal(t, 5, sku.Stock)

	_, err = svc.GetSKU(context.Background(), 404)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())

	_, err = svc.GetSKU(context.Background(), 0)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}

func TestListByIDsSkipsMissing(t *testing.T) {
	svc, repo := newCatalog(t)
	seedSKUs(t, repo,
		models.SKU{ID: 3, Name: "c", CategoryID: 1, Price: decimal.NewFromInt(3)},
		models.SKU{ID: 1, Name: "a", CategoryID: 1, Price: decimal.NewFromInt(1)},
	)

	skus, err := svc.ListByIDs(context.Background(), []int64{3, 2, 1})
	require.NoError(t, err)
	require.Len(t, skus, 2)
	assert.Equal(t, int64(1), skus[0].ID)
	assert.Equal(t, int64(3), skus[1].ID)

	empty, err := svc.ListByIDs(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestListByCategoryOrdersAndPages(t *testing.T) {
	svc, repo := newCatalog(t)
	seedSKUs(t, repo,
		models.SKU{ID: 1, Name: "cheap", CategoryID: 9, Price: decimal.NewFromInt(5), Sales: 10, IsLaunched: true},
		models.SKU{ID: 2, Name: "mid", CategoryID: 9, Price: decimal.NewFromInt(50), Sales: 30, IsLaunched: true},
		models.SKU{ID: 3, Name: "pricey", CategoryID: 9, Price: decimal.NewFromInt(500), Sales: 20, IsLaunched: true},
		models.SKU{ID: 4, Name: "other", CategoryID: 8, Price: decimal.NewFromInt(1), IsLaunched: true},
	)
	// GORM skips zero-valued bools with a default tag, so unlaunch explicitly.
	seedSKUs(t, repo, models.SKU{ID: 5, Name: "hidden", CategoryID: 9, Price: decimal.NewFromInt(1)})
	require.NoError(t, repo.db.Model(&models.SKU{}).Where("id = ?", 5).Update("is_launched", false).Error)

	page, err := svc.ListByCategory(context.Background(), 9, "-sales", pagination.Params{Page: 1, PageSize: 2})
	require.NoError(t, err)
	assert.EqualValues(t, 3, page.Count)
	require.Len(t, page.Results, 2)
	assert.Equal(t, "mid", page.Results[0].Name)
	assert.Equal(t, "pricey", page.Results[1].Name)

	page, err = svc.ListByCategory(context.Background(), 9, "-sales", pagination.Params{Page: 2, PageSize: 2})
	require.NoError(t, err)
	require.Len(t, page.Results, 1)
	assert.Equal(t, "cheap", page.Results[0].Name)

	page, err = svc.ListByCategory(context.Background(), 9, "price", pagination.Params{})
	require.NoError(t, err)
	require.Len(t, page.Results, 3)
	assert.Equal(t, "cheap", page.Results[0].Name)
}

func TestListByCategoryRejectsUnknownOrdering(t *testing.T) {
	svc, _ := newCatalog(t)
	_, err := svc.ListByCategory(context.Background(), 1, "name; DROP TABLE skus", pagination.Params{})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}

func TestParseOrdering(t *testing.T) {
	cases := map[string]string{
		"":             "created_at ASC",
		"create_time":  "created_at ASC",
		"-create_time": "created_at DESC",
		"price":        "price ASC",
		"-sales":       "sales DESC",
	}
	for in, want := range cases {
		got, err := parseOrdering(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
}
