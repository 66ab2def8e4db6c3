package cart

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubCatalog struct {
	skus map[int64]models.SKU
}

func (s *stubCatalog) GetSKU(_ context.Context, id int64) (*models.SKU, error) {
	sku, ok := s.skus[id]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "sku not found")
	}
	return &sku, nil
}

func (s *stubCatalog) ListByIDs(_ context.Context, ids []int64) ([]models.SKU, error) {
	out := make([]models.SKU, 0, len(ids))
	for _, id := range ids {
		if sku, ok := s.skus[id]; ok {
			out = append(out, sku)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func newStubCatalog() *stubCatalog {
	return &stubCatalog{skus: map[int64]models.SKU{
		1: {ID: 1, Name: "A", Price: decimal.RequireFromString("1.50"), Stock: 10},
		2: {ID: 2, Name: "B", Price: decimal.RequireFromString("2.00"), Stock: 10},
		3: {ID: 3, Name: "C", Price: decimal.RequireFromString("3.25"), Stock: 10},
		9: {ID: 9, Name: "Scarce", Price: decimal.NewFromInt(9), Stock: 2},
	}}
}

type cartFixture struct {
	svc   Service
	codec *CookieCodec
	store func(userID int64) *RedisStore
}

func newCartFixture(t *testing.T) cartFixture {
	t.Helper()
	backend, _ := newRedisBackend(t)
	codec, err := NewCookieCodec("cookie-secret", time.Hour)
	require.NoError(t, err)
	svc, err := NewService(backend, codec, newStubCatalog(), logger.Nop())
	require.NoError(t, err)
	return cartFixture{
		svc:   svc,
		codec: codec,
		store: func(userID int64) *RedisStore { return NewRedisStore(backend, userID) },
	}
}

func TestNewServiceValidatesDeps(t *testing.T) {
	backend, _ := newRedisBackend(t)
	codec, err := NewCookieCodec("s", time.Hour)
	require.NoError(t, err)

	_, err = NewService(nil, codec, newStubCatalog(), logger.Nop())
	assert.Error(t, err)
	_, err = NewService(backend, nil, newStubCatalog(), logger.Nop())
	assert.Error(t, err)
	_, err = NewService(backend, codec, nil, logger.Nop())
	assert.Error(t, err)
	_, err = NewService(backend, codec, newStubCatalog(), nil)
	assert.Error(t, err)
}

func TestAnonymousCartRoundTripsThroughCookie(t *testing.T) {
	ctx := context.Background()
	f := newCartFixture(t)

	view, err := f.svc.Add(ctx, Identity{}, LineInput{SKUID: 1, Quantity: 2, Selected: true})
	require.NoError(t, err)
	require.NotEmpty(t, view.Cookie)

	view, err = f.svc.Add(ctx, Identity{Cookie: view.Cookie}, LineInput{SKUID: 3, Quantity: 1})
	require.NoError(t, err)

	require.Len(t, view.Items, 2)
	assert.Equal(t, "A", view.Items[0].Name)
	assert.Equal(t, 2, view.Items[0].Count)
	assert.True(t, view.Items[0].Selected)
	assert.False(t, view.Items[1].Selected)
	assert.Equal(t, Lines{
		1: {SKUID: 1, Quantity: 2, Selected: true},
		3: {SKUID: 3, Quantity: 1},
	}, f.codec.Decode(view.Cookie))
}

func TestCorruptCookieReadsAsEmptyCart(t *testing.T) {
	f := newCartFixture(t)
	view, err := f.svc.Get(context.Background(), Identity{Cookie: "garbage"})
	require.NoError(t, err)
	assert.Empty(t, view.Items)
	assert.Empty(t, f.codec.Decode(view.Cookie))
}

func TestAddValidatesSKUAndStock(t *testing.T) {
	ctx := context.Background()
	f := newCartFixture(t)
	user := Identity{UserID: 7}

	_, err := f.svc.Add(ctx, user, LineInput{SKUID: 404, Quantity: 1})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())

	_, err = f.svc.Add(ctx, user, LineInput{SKUID: 1, Quantity: 0})
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())

	_, err = f.svc.Add(ctx, user, LineInput{SKUID: 9, Quantity: 2})
	require.NoError(t, err)
	_, err = f.svc.Add(ctx, user, LineInput{SKUID: 9, Quantity: 1})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())

	lines, err := f.store(7).Lines(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, lines[9].Quantity)
}

// gatedCatalog holds every GetSKU caller until all of them have read the
// sku, so concurrent adds all see the same stock.
type gatedCatalog struct {
	*stubCatalog
	arrived sync.WaitGroup
}

func (g *gatedCatalog) GetSKU(ctx context.Context, id int64) (*models.SKU, error) {
	g.arrived.Done()
	g.arrived.Wait()
	return g.stubCatalog.GetSKU(ctx, id)
}

func TestConcurrentAddsNeverExceedStock(t *testing.T) {
	ctx := context.Background()
	backend, _ := newRedisBackend(t)
	codec, err := NewCookieCodec("cookie-secret", time.Hour)
	require.NoError(t, err)

	const callers = 2
	catalog := &gatedCatalog{stubCatalog: newStubCatalog()}
	catalog.arrived.Add(callers)
	svc, err := NewService(backend, codec, catalog, logger.Nop())
	require.NoError(t, err)

	errs := make([]error, callers)
	var wg sync.WaitGroup
	for i := range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = svc.Add(ctx, Identity{UserID: 1}, LineInput{SKUID: 9, Quantity: 2, Selected: true})
		}()
	}
	wg.Wait()

	failed := 0
	for _, err := range errs {
		if err != nil {
			failed++
			assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
		}
	}
	assert.Equal(t, 1, failed)

	lines, err := NewRedisStore(backend, 1).Lines(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, lines[9].Quantity)
}

func TestUpdateAndRemoveAuthenticated(t *testing.T) {
	ctx := context.Background()
	f := newCartFixture(t)
	user := Identity{UserID: 7}

	_, err := f.svc.Add(ctx, user, LineInput{SKUID: 2, Quantity: 1, Selected: true})
	require.NoError(t, err)

	view, err := f.svc.Update(ctx, user, LineInput{SKUID: 2, Quantity: 4, Selected: false})
	require.NoError(t, err)
	require.Len(t, view.Items, 1)
	assert.Equal(t, 4, view.Items[0].Count)
	assert.False(t, view.Items[0].Selected)
	assert.Empty(t, view.Cookie)

	_, err = f.svc.Update(ctx, user, LineInput{SKUID: 2, Quantity: 11})
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())

	_, err = f.svc.Update(ctx, user, LineInput{SKUID: 2, Quantity: -1})
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())

	view, err = f.svc.Update(ctx, user, LineInput{SKUID: 2, Quantity: 0})
	require.NoError(t, err)
	assert.Empty(t, view.Items)

	_, err = f.svc.Remove(ctx, user, 2)
	require.NoError(t, err)
}

func TestSelectAllAndSelectedLines(t *testing.T) {
	ctx := context.Background()
	f := newCartFixture(t)
	user := Identity{UserID: 8}

	_, err := f.svc.Add(ctx, user, LineInput{SKUID: 3, Quantity: 1})
	require.NoError(t, err)
	_, err = f.svc.Add(ctx, user, LineInput{SKUID: 1, Quantity: 2})
	require.NoError(t, err)

	_, err = f.svc.SelectAll(ctx, user, true)
	require.NoError(t, err)

	lines, err := f.svc.SelectedLines(ctx, 8)
	require.NoError(t, err)
	assert.Equal(t, []Line{{SKUID: 1, Quantity: 2, Selected: true}, {SKUID: 3, Quantity: 1, Selected: true}}, lines)

	require.NoError(t, f.svc.Consume(ctx, 8, []int64{1}))
	lines, err = f.svc.SelectedLines(ctx, 8)
	require.NoError(t, err)
	assert.Len(t, lines, 1)

	_, err = f.svc.SelectedLines(ctx, 0)
	assert.Equal(t, pkgerrors.CodeUnauthorized, pkgerrors.As(err).Code())
}

func TestMergeOnLoginOverwritesWithCookie(t *testing.T) {
	ctx := context.Background()
	f := newCartFixture(t)
	const a, b, c = int64(1), int64(2), int64(3)

	store := f.store(11)
	require.NoError(t, store.Set(ctx, a, 1, true))
	require.NoError(t, store.Set(ctx, c, 2, true))

	cookie, err := f.codec.Encode(Lines{
		a: {SKUID: a, Quantity: 3, Selected: true},
		b: {SKUID: b, Quantity: 1, Selected: false},
	})
	require.NoError(t, err)

	expire, err := f.svc.MergeOnLogin(ctx, 11, cookie)
	require.NoError(t, err)
	assert.True(t, expire)

	lines, err := store.Lines(ctx)
	require.NoError(t, err)
	assert.Equal(t, Lines{
		a: {SKUID: a, Quantity: 3, Selected: true},
		b: {SKUID: b, Quantity: 1, Selected: false},
		c: {SKUID: c, Quantity: 2, Selected: true},
	}, lines)
}

func TestMergeOnLoginDeselectsFromCookie(t *testing.T) {
	ctx := context.Background()
	f := newCartFixture(t)
	store := f.store(12)
	require.NoError(t, store.Set(ctx, 1, 5, true))

	cookie, err := f.codec.Encode(Lines{1: {SKUID: 1, Quantity: 2}})
	require.NoError(t, err)
	_, err = f.svc.MergeOnLogin(ctx, 12, cookie)
	require.NoError(t, err)

	lines, err := store.Lines(ctx)
	require.NoError(t, err)
	assert.Equal(t, Lines{1: {SKUID: 1, Quantity: 2}}, lines)
}

func TestMergeOnLoginWithoutCookie(t *testing.T) {
	ctx := context.Background()
	f := newCartFixture(t)
	store := f.store(13)
	require.NoError(t, store.Set(ctx, 2, 1, true))

	expire, err := f.svc.MergeOnLogin(ctx, 13, "")
	require.NoError(t, err)
	assert.False(t, expire)

	expire, err = f.svc.MergeOnLogin(ctx, 13, "tampered.cookie.value")
	require.NoError(t, err)
	assert.True(t, expire)

	lines, err := store.Lines(ctx)
	require.NoError(t, err)
	assert.Equal(t, Lines{2: {SKUID: 2, Quantity: 1, Selected: true}}, lines)
}
