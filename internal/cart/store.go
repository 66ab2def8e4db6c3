package cart

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"github.com/redis/go-redis/v9"
)

// Store is one identity's cart. Add accumulates quantity, Set replaces it.
// A true selected flag on Add marks the line selected; false leaves an
// existing line's selection alone. AddWithin is Add refused when the line
// would exceed limit.
type Store interface {
	Lines(ctx context.Context) (Lines, error)
	Add(ctx context.Context, skuID int64, qty int, selected bool) error
	AddWithin(ctx context.Context, skuID int64, qty, limit int, selected bool) (bool, error)
	Set(ctx context.Context, skuID int64, qty int, selected bool) error
	Remove(ctx context.Context, skuID int64) error
	SelectAll(ctx context.Context, selected bool) error
}

// CookieStore holds an anonymous cart decoded from its cookie. Every mutation
// rewrites the whole mapping; Encode produces the replacement cookie.
type CookieStore struct {
	lines Lines
	codec *CookieCodec
}

// NewCookieStore wraps already decoded lines.
func NewCookieStore(codec *CookieCodec, lines Lines) *CookieStore {
	copied := make(Lines, len(lines))
	for id, line := range lines {
		copied[id] = line
	}
	return &CookieStore{lines: copied, codec: codec}
}

func (s *CookieStore) Lines(context.Context) (Lines, error) {
	out := make(Lines, len(s.lines))
	for id, line := range s.lines {
		out[id] = line
	}
	return out, nil
}

func (s *CookieStore) Add(_ context.Context, skuID int64, qty int, selected bool) error {
	line, ok := s.lines[skuID]
	if !ok {
		line = Line{SKUID: skuID}
	}
	line.Quantity += qty
	if selected {
		line.Selected = true
	}
	if line.Quantity <= 0 {
		delete(s.lines, skuID)
		return nil
	}
	s.lines[skuID] = line
	return nil
}

func (s *CookieStore) AddWithin(ctx context.Context, skuID int64, qty, limit int, selected bool) (bool, error) {
	if s.lines[skuID].Quantity+qty > limit {
		return false, nil
	}
	return true, s.Add(ctx, skuID, qty, selected)
}

func (s *CookieStore) Set(_ context.Context, skuID int64, qty int, selected bool) error {
	if qty <= 0 {
		delete(s.lines, skuID)
		return nil
	}
	s.lines[skuID] = Line{SKUID: skuID, Quantity: qty, Selected: selected}
	return nil
}

func (s *CookieStore) Remove(_ context.Context, skuID int64) error {
	delete(s.lines, skuID)
	return nil
}

func (s *CookieStore) SelectAll(_ context.Context, selected bool) error {
	for id, line := range s.lines {
		line.Selected = selected
		s.lines[id] = line
	}
	return nil
}

// Encode returns the cookie value for the current lines.
func (s *CookieStore) Encode() (string, error) {
	return s.codec.Encode(s.lines)
}

// RedisBackend is the subset of the redis client the authenticated cart needs.
type RedisBackend interface {
	CartKey(userID int64) string
	CartSelectedKey(userID int64) string
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	HKeys(ctx context.Context, key string) ([]string, error)
	SMembers(ctx context.Context, key string) ([]string, error)
	HIncrByCapped(ctx context.Context, key, field string, delta, ceiling int64) (int64, bool, error)
	TxPipelined(ctx context.Context, fn func(redis.Pipeliner) error) error
}

// RedisStore is an authenticated cart: a hash of sku id to quantity plus a
// set of selected sku ids. Writes use atomic hash and set commands so a
// user's concurrent requests never lose updates.
type RedisStore struct {
	backend     RedisBackend
	cartKey     string
	selectedKey string
}

// NewRedisStore binds the store to one user's keys.
func NewRedisStore(backend RedisBackend, userID int64) *RedisStore {
	return &RedisStore{
		backend:     backend,
		cartKey:     backend.CartKey(userID),
		selectedKey: backend.CartSelectedKey(userID),
	}
}

func (s *RedisStore) Lines(ctx context.Context) (Lines, error) {
	fields, err := s.backend.HGetAll(ctx, s.cartKey)
	if err != nil {
		return nil, fmt.Errorf("read cart hash: %w", err)
	}
	members, err := s.backend.SMembers(ctx, s.selectedKey)
	if err != nil {
		return nil, fmt.Errorf("read cart selection: %w", err)
	}
	selected := make(map[string]struct{}, len(members))
	for _, member := range members {
		selected[member] = struct{}{}
	}

	lines := make(Lines, len(fields))
	var stale []string
	for field, raw := range fields {
		skuID, idErr := strconv.ParseInt(field, 10, 64)
		qty, qtyErr := strconv.Atoi(raw)
		if idErr != nil || qtyErr != nil || skuID <= 0 || qty <= 0 {
			stale = append(stale, field)
			continue
		}
		_, isSelected := selected[field]
		lines[skuID] = Line{SKUID: skuID, Quantity: qty, Selected: isSelected}
	}

	if len(stale) > 0 {
		if err := s.prune(ctx, stale); err != nil {
			return nil, err
		}
	}
	return lines, nil
}

func (s *RedisStore) Add(ctx context.Context, skuID int64, qty int, selected bool) error {
	field := skuField(skuID)
	return s.backend.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HIncrBy(ctx, s.cartKey, field, int64(qty))
		if selected {
			pipe.SAdd(ctx, s.selectedKey, field)
		}
		return nil
	})
}

// AddWithin checks and increments in one script, so concurrent adds for the
// same line cannot together pass limit.
func (s *RedisStore) AddWithin(ctx context.Context, skuID int64, qty, limit int, selected bool) (bool, error) {
	field := skuField(skuID)
	_, applied, err := s.backend.HIncrByCapped(ctx, s.cartKey, field, int64(qty), int64(limit))
	if err != nil {
		return false, fmt.Errorf("add cart line: %w", err)
	}
	if !applied || !selected {
		return applied, nil
	}
	return true, s.backend.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.SAdd(ctx, s.selectedKey, field)
		return nil
	})
}

func (s *RedisStore) Set(ctx context.Context, skuID int64, qty int, selected bool) error {
	if qty <= 0 {
		return s.Remove(ctx, skuID)
	}
	field := skuField(skuID)
	return s.backend.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, s.cartKey, field, qty)
		if selected {
			pipe.SAdd(ctx, s.selectedKey, field)
		} else {
			pipe.SRem(ctx, s.selectedKey, field)
		}
		return nil
	})
}

// Remove is idempotent: HDEL and SREM of an absent member are no-ops.
func (s *RedisStore) Remove(ctx context.Context, skuID int64) error {
	return s.Consume(ctx, []int64{skuID})
}

func (s *RedisStore) SelectAll(ctx context.Context, selected bool) error {
	if !selected {
		return s.backend.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, s.selectedKey)
			return nil
		})
	}
	fields, err := s.backend.HKeys(ctx, s.cartKey)
	if err != nil {
		return fmt.Errorf("read cart keys: %w", err)
	}
	if len(fields) == 0 {
		return nil
	}
	members := make([]any, 0, len(fields))
	for _, field := range fields {
		members = append(members, field)
	}
	return s.backend.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.SAdd(ctx, s.selectedKey, members...)
		return nil
	})
}

// SelectedLines returns the selected lines ordered by ascending sku id.
func (s *RedisStore) SelectedLines(ctx context.Context) ([]Line, error) {
	lines, err := s.Lines(ctx)
	if err != nil {
		return nil, err
	}
	return lines.Selected(), nil
}

// Consume drops the given skus from both the hash and the selected set.
func (s *RedisStore) Consume(ctx context.Context, skuIDs []int64) error {
	if len(skuIDs) == 0 {
		return nil
	}
	fields := make([]string, 0, len(skuIDs))
	members := make([]any, 0, len(skuIDs))
	for _, id := range skuIDs {
		field := skuField(id)
		fields = append(fields, field)
		members = append(members, field)
	}
	return s.backend.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HDel(ctx, s.cartKey, fields...)
		pipe.SRem(ctx, s.selectedKey, members...)
		return nil
	})
}

// Merge writes lines over the stored cart: quantities are overwritten, and
// each line's selection is asserted in both directions.
func (s *RedisStore) Merge(ctx context.Context, lines Lines) error {
	if len(lines) == 0 {
		return nil
	}
	ordered := lines.Sorted()
	return s.backend.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, line := range ordered {
			field := skuField(line.SKUID)
			pipe.HSet(ctx, s.cartKey, field, line.Quantity)
			if line.Selected {
				pipe.SAdd(ctx, s.selectedKey, field)
			} else {
				pipe.SRem(ctx, s.selectedKey, field)
			}
		}
		return nil
	})
}

func (s *RedisStore) prune(ctx context.Context, fields []string) error {
	sort.Strings(fields)
	members := make([]any, 0, len(fields))
	for _, field := range fields {
		members = append(members, field)
	}
	return s.backend.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HDel(ctx, s.cartKey, fields...)
		pipe.SRem(ctx, s.selectedKey, members...)
		return nil
	})
}

func skuField(skuID int64) string {
	return strconv.FormatInt(skuID, 10)
}
