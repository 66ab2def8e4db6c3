package cart

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	pkgredis "github.com/angelmondragon/storefront-backend/pkg/redis"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisBackend(t *testing.T) (*pkgredis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	raw := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = raw.Close() })
	return pkgredis.NewFromClient(raw), mr
}

func TestRedisStoreAddAccumulates(t *testing.T) {
	ctx := context.Background()
	backend, _ := newRedisBackend(t)
	store := NewRedisStore(backend, 1)

	require.NoError(t, store.Add(ctx, 10, 2, true))
	require.NoError(t, store.Add(ctx, 10, 3, false))

	lines, err := store.Lines(ctx)
	require.NoError(t, err)
	assert.Equal(t, Lines{10: {SKUID: 10, Quantity: 5, Selected: true}}, lines)
}

func TestAddWithinStopsAtLimit(t *testing.T) {
	ctx := context.Background()
	backend, mr := newRedisBackend(t)
	codec, err := NewCookieCodec("cookie-secret", time.Hour)
	require.NoError(t, err)

	stores := map[string]Store{
		"redis":  NewRedisStore(backend, 1),
		"cookie": NewCookieStore(codec, Lines{}),
	}
	for name, store := range stores {
		t.Run(name, func(t *testing.T) {
			added, err := store.AddWithin(ctx, 10, 2, 3, true)
			require.NoError(t, err)
			assert.True(t, added)

			added, err = store.AddWithin(ctx, 10, 2, 3, false)
			require.NoError(t, err)
			assert.False(t, added)

			lines, err := store.Lines(ctx)
			require.NoError(t, err)
			assert.Equal(t, Lines{10: {SKUID: 10, Quantity: 2, Selected: true}}, lines)
		})
	}

	added, err := NewRedisStore(backend, 1).AddWithin(ctx, 11, 5, 3, true)
	require.NoError(t, err)
	assert.False(t, added)
	members, err := backend.SMembers(ctx, backend.CartSelectedKey(1))
	require.NoError(t, err)
	assert.NotContains(t, members, "11", "a refused add must not select the line")
	assert.Empty(t, mr.HGet(backend.CartKey(1), "11"))
}

func TestRedisStoreSetAndRemove(t *testing.T) {
	ctx := context.Background()
	backend, mr := newRedisBackend(t)
	store := NewRedisStore(backend, 1)

	require.NoError(t, store.Add(ctx, 10, 2, true))
	require.NoError(t, store.Set(ctx, 10, 7, false))

	lines, err := store.Lines(ctx)
	require.NoError(t, err)
	assert.Equal(t, Lines{10: {SKUID: 10, Quantity: 7}}, lines)

	require.NoError(t, store.Set(ctx, 10, 0, true))
	lines, err = store.Lines(ctx)
	require.NoError(t, err)
	assert.Empty(t, lines)

	require.NoError(t, store.Remove(ctx, 10))
	require.NoError(t, store.Remove(ctx, 99))
	assert.False(t, mr.Exists(backend.CartKey(1)))
}

func TestRedisStoreSelectAll(t *testing.T) {
	ctx := context.Background()
	backend, _ := newRedisBackend(t)
	store := NewRedisStore(backend, 2)

	require.NoError(t, store.Add(ctx, 3, 1, false))
	require.NoError(t, store.Add(ctx, 1, 1, false))

	require.NoError(t, store.SelectAll(ctx, true))
	selected, err := store.SelectedLines(ctx)
	require.NoError(t, err)
	assert.Equal(t, []Line{{SKUID: 1, Quantity: 1, Selected: true}, {SKUID: 3, Quantity: 1, Selected: true}}, selected)

	require.NoError(t, store.SelectAll(ctx, false))
	selected, err = store.SelectedLines(ctx)
	require.NoError(t, err)
	assert.Empty(t, selected)
}

func TestRedisStoreSelectAllOnEmptyCart(t *testing.T) {
	backend, mr := newRedisBackend(t)
	require.NoError(t, NewRedisStore(backend, 3).SelectAll(context.Background(), true))
	assert.False(t, mr.Exists(backend.CartSelectedKey(3)))
}

func TestRedisStorePrunesInvalidFields(t *testing.T) {
	ctx := context.Background()
	backend, mr := newRedisBackend(t)
	key := backend.CartKey(4)
	mr.HSet(key, "5", "2")
	mr.HSet(key, "6", "0")
	mr.HSet(key, "oops", "1")
	_, err := mr.SAdd(backend.CartSelectedKey(4), "5", "6")
	require.NoError(t, err)

	lines, err := NewRedisStore(backend, 4).Lines(ctx)
	require.NoError(t, err)
	assert.Equal(t, Lines{5: {SKUID: 5, Quantity: 2, Selected: true}}, lines)

	fields, err := mr.HKeys(key)
	require.NoError(t, err)
	assert.Equal(t, []string{"5"}, fields)
	members, err := mr.Members(backend.CartSelectedKey(4))
	require.NoError(t, err)
	assert.Equal(t, []string{"5"}, members)
}

func TestRedisStoreConsume(t *testing.T) {
	ctx := context.Background()
	backend, _ := newRedisBackend(t)
	store := NewRedisStore(backend, 5)
	require.NoError(t, store.Add(ctx, 1, 1, true))
	require.NoError(t, store.Add(ctx, 2, 1, true))
	require.NoError(t, store.Add(ctx, 3, 1, false))

	require.NoError(t, store.Consume(ctx, []int64{1, 2}))
	require.NoError(t, store.Consume(ctx, nil))

	lines, err := store.Lines(ctx)
	require.NoError(t, err)
	assert.Equal(t, Lines{3: {SKUID: 3, Quantity: 1}}, lines)
}

func TestCookieStoreMutations(t *testing.T) {
	ctx := context.Background()
	store := NewCookieStore(nil, Lines{})

	require.NoError(t, store.Add(ctx, 4, 1, false))
	require.NoError(t, store.Add(ctx, 4, 2, true))
	require.NoError(t, store.Add(ctx, 8, 1, false))
	require.NoError(t, store.Set(ctx, 8, 3, true))
	require.NoError(t, store.SelectAll(ctx, false))
	require.NoError(t, store.Remove(ctx, 99))

	lines, err := store.Lines(ctx)
	require.NoError(t, err)
	assert.Equal(t, Lines{4: {SKUID: 4, Quantity: 3}, 8: {SKUID: 8, Quantity: 3}}, lines)

	require.NoError(t, store.Set(ctx, 4, 0, false))
	lines, err = store.Lines(ctx)
	require.NoError(t, err)
	assert.Len(t, lines, 1)
}
