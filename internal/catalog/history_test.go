package catalog

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	pkgredis "github.com/angelmondragon/storefront-backend/pkg/redis"
	goredis "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newHistory(t *testing.T, skuIDs ...int64) (History, *pkgredis.Client, *Repository) {
	t.Helper()
	svc, repo := newCatalog(t)
	for _, id := range skuIDs {
		seedSKUs(t, repo, models.SKU{ID: id, Name: "sku", CategoryID: 1, Price: decimal.NewFromInt(id), IsLaunched: true})
	}

	mr := miniredis.RunT(t)
	raw := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = raw.Close() })
	store := pkgredis.NewFromClient(raw)

	h, err := NewHistory(store, svc)
	require.NoError(t, err)
	return h, store, repo
}

func recentIDs(t *testing.T, h History, userID int64) []int64 {
	t.Helper()
	skus, err := h.Recent(context.Background(), userID)
	require.NoError(t, err)
	ids := make([]int64, 0, len(skus))
	for _, sku := range skus {
		ids = append(ids, sku.ID)
	}
	return ids
}

func TestHistoryKeepsNewestFirstWithoutDuplicates(t *testing.T) {
	ctx := context.Background()
	h, _, _ := newHistory(t, 1, 2, 3)

	for _, id := range []int64{1, 2, 3, 1} {
		require.NoError(t, h.Record(ctx, 7, id))
	}
	assert.Equal(t, []int64{1, 3, 2}, recentIDs(t, h, 7))
	assert.Empty(t, recentIDs(t, h, 8), "history is per user")
}

func TestHistoryTrimsToLimit(t *testing.T) {
	ctx := context.Background()
	h, store, _ := newHistory(t, 1, 2, 3, 4, 5, 6, 7)

	for id := int64(1); id <= 7; id++ {
		require.NoError(t, h.Record(ctx, 7, id))
	}
	assert.Equal(t, []int64{7, 6, 5, 4, 3}, recentIDs(t, h, 7))

	stored, err := store.LRange(ctx, store.BrowseHistoryKey(7), 0, -1)
	require.NoError(t, err)
	assert.Len(t, stored, HistoryLimit)
}

func TestHistoryRejectsUnknownSKU(t *testing.T) {
	h, store, _ := newHistory(t, 1)

	err := h.Record(context.Background(), 7, 404)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())

	stored, err := store.LRange(context.Background(), store.BrowseHistoryKey(7), 0, -1)
	require.NoError(t, err)
	assert.Empty(t, stored)
}

func TestHistorySkipsSKUsGoneFromCatalog(t *testing.T) {
	ctx := context.Background()
	h, _, repo := newHistory(t, 1, 2)

	require.NoError(t, h.Record(ctx, 7, 1))
	require.NoError(t, h.Record(ctx, 7, 2))
	require.NoError(t, repo.db.Delete(&models.SKU{}, 2).Error)

	assert.Equal(t, []int64{1}, recentIDs(t, h, 7))
}

func TestHistoryRequiresUser(t *testing.T) {
	h, _, _ := newHistory(t, 1)

	err := h.Record(context.Background(), 0, 1)
	assert.Equal(t, pkgerrors.CodeUnauthorized, pkgerrors.As(err).Code())
	_, err = h.Recent(context.Background(), 0)
	assert.Equal(t, pkgerrors.CodeUnauthorized, pkgerrors.As(err).Code())

	_, err = NewHistory(nil, nil)
	assert.Error(t, err)
}
