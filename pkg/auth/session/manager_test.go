package session

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	redislib "github.com/redis/go-redis/v9"
)

type mockStore struct {
	mu   sync.Mutex
	data map[string]string
	ttls map[string]time.Duration
}

func newMockStore() *mockStore {
	return &mockStore{data: make(map[string]string), ttls: make(map[string]time.Duration)}
}

func (m *mockStore) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = fmt.Sprint(value)
	m.ttls[key] = ttl
	return nil
}

func (m *mockStore) Get(ctx context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	val, ok := m.data[key]
	if !ok {
		return "", redislib.Nil
	}
	return val, nil
}

func (m *mockStore) RevokedTokenKey(jti string) string {
	return fmt.Sprintf("revoked:%s", jti)
}

func TestManagerRevokeAndCheck(t *testing.T) {
	now := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	store := newMockStore()
	manager := newManager(store, store, func() time.Time { return now })
	ctx := context.Background()

	revoked, err := manager.IsRevoked(ctx, "jti-1")
	if err != nil || revoked {
		t.Fatalf("fresh token reported revoked=%v err=%v", revoked, err)
	}

	if err := manager.Revoke(ctx, "jti-1", now.Add(30*time.Minute)); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if ttl := store.ttls["revoked:jti-1"]; ttl != 30*time.Minute {
		t.Fatalf("expected ttl to track token expiry, got %s", ttl)
	}

	revoked, err = manager.IsRevoked(ctx, "jti-1")
	if err != nil || !revoked {
		t.Fatalf("expected revoked token, got revoked=%v err=%v", revoked, err)
	}
}

func TestManagerSkipsExpiredTokens(t *testing.T) {
	now := time.Now()
	store := newMockStore()
	manager := newManager(store, store, func() time.Time { return now })

	if err := manager.Revoke(context.Background(), "old", now.Add(-time.Second)); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if len(store.data) != 0 {
		t.Fatalf("expired token should not be stored, got %v", store.data)
	}
}

func TestManagerRequiresTokenID(t *testing.T) {
	manager := newManager(newMockStore(), newMockStore(), time.Now)
	if err := manager.Revoke(context.Background(), " ", time.Now().Add(time.Hour)); err == nil {
		t.Fatal("expected error for blank token id")
	}
	if _, err := manager.IsRevoked(context.Background(), ""); err == nil {
		t.Fatal("expected error for blank token id")
	}
}
