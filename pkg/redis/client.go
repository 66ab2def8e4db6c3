// Package redis wraps go-redis with the handful of commands and key
// conventions the storefront relies on.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

// compareAndDelete removes KEYS[1] only while it still holds ARGV[1].
var compareAndDelete = redis.NewScript(`if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

// hincrbyCapped adds ARGV[2] to field ARGV[1] of hash KEYS[1] unless the sum
// would pass ARGV[3]. Missing, non-numeric or non-positive values count as 0.
// Returns the new value, or -1 when the cap refused the increment.
var hincrbyCapped = redis.NewScript(`local current = tonumber(redis.call("HGET", KEYS[1], ARGV[1]) or "0") or 0
if current < 0 then
	current = 0
end
local total = current + tonumber(ARGV[2])
if total > tonumber(ARGV[3]) then
	return -1
end
redis.call("HSET", KEYS[1], ARGV[1], total)
return total`)

var errNotInitialized = errors.New("redis client not initialized")

// Client is a thin, nil-safe facade over a go-redis connection.
type Client struct {
	store redis.Cmdable
	close func() error
}

// Pinger is the readiness check surface.
type Pinger interface {
	Ping(context.Context) error
}

// IdempotencyStore is what the idempotency middleware needs.
type IdempotencyStore interface {
	Get(context.Context, string) (string, error)
	Set(context.Context, string, any, time.Duration) error
	SetNX(context.Context, string, any, time.Duration) (bool, error)
	IdempotencyKey(scope, id string) string
	Del(context.Context, ...string) error
}

// New dials redis from cfg and verifies the connection with a PING.
func New(ctx context.Context, cfg config.RedisConfig, logg *logger.Logger) (*Client, error) {
	opts, err := optionsFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	raw := redis.NewClient(opts)
	if err := raw.Ping(ctx).Err(); err != nil {
		_ = raw.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	logg.Info(logg.WithField(ctx, "redis_db", opts.DB), "redis connection established")
	return NewFromClient(raw), nil
}

// NewFromClient wraps an existing go-redis client (miniredis in tests).
func NewFromClient(raw *redis.Client) *Client {
	return &Client{store: raw, close: raw.Close}
}

// optionsFromConfig prefers the URL; explicit pool and timeout settings fill
// whatever the URL leaves unset.
func optionsFromConfig(cfg config.RedisConfig) (*redis.Options, error) {
	var opts *redis.Options
	switch {
	case cfg.URL != "":
		parsed, err := redis.ParseURL(cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("parsing redis url: %w", err)
		}
		opts = parsed
	case cfg.Address != "":
		opts = &redis.Options{Addr: cfg.Address, Password: cfg.Password}
	default:
		return nil, errors.New("redis url or address is required")
	}

	fill := func(dst *int, v int) {
		if *dst == 0 {
			*dst = v
		}
	}
	fillDur := func(dst *time.Duration, v time.Duration) {
		if *dst == 0 {
			*dst = v
		}
	}
	fill(&opts.DB, cfg.DB)
	fill(&opts.PoolSize, cfg.PoolSize)
	fill(&opts.MinIdleConns, cfg.MinIdleConns)
	fillDur(&opts.DialTimeout, cfg.DialTimeout)
	fillDur(&opts.ReadTimeout, cfg.ReadTimeout)
	fillDur(&opts.WriteTimeout, cfg.WriteTimeout)
	return opts, nil
}

func (c *Client) cmd() (redis.Cmdable, error) {
	if c == nil || c.store == nil {
		return nil, errNotInitialized
	}
	return c.store, nil
}

func (c *Client) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	r, err := c.cmd()
	if err != nil {
		return err
	}
	return r.Set(ctx, key, value, ttl).Err()
}

// Get returns redis.Nil when key is absent.
func (c *Client) Get(ctx context.Context, key string) (string, error) {
	r, err := c.cmd()
	if err != nil {
		return "", err
	}
	return r.Get(ctx, key).Result()
}

func (c *Client) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	r, err := c.cmd()
	if err != nil {
		return false, err
	}
	return r.SetNX(ctx, key, value, ttl).Result()
}

// CompareAndDelete deletes key when its value equals expected and reports
// whether it did.
func (c *Client) CompareAndDelete(ctx context.Context, key, expected string) (bool, error) {
	r, err := c.cmd()
	if err != nil {
		return false, err
	}
	deleted, err := compareAndDelete.Run(ctx, r, []string{key}, expected).Int64()
	return deleted == 1, err
}

func (c *Client) Exists(ctx context.Context, key string) (bool, error) {
	r, err := c.cmd()
	if err != nil {
		return false, err
	}
	n, err := r.Exists(ctx, key).Result()
	return n > 0, err
}

func (c *Client) Incr(ctx context.Context, key string) (int64, error) {
	r, err := c.cmd()
	if err != nil {
		return 0, err
	}
	return r.Incr(ctx, key).Result()
}

// IncrWithTTL increments key and starts its TTL on the first increment, so
// the window is anchored at the first hit.
func (c *Client) IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	count, err := c.Incr(ctx, key)
	if err != nil || ttl <= 0 || count != 1 {
		return count, err
	}
	return count, c.store.Expire(ctx, key, ttl).Err()
}

// FixedWindowAllow counts one hit against scope and reports whether the
// count is still within limit for the current window.
func (c *Client) FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error) {
	count, err := c.IncrWithTTL(ctx, c.RateLimitKey(scope), window)
	if err != nil {
		return false, 0, err
	}
	return count <= limit, count, nil
}

func (c *Client) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	r, err := c.cmd()
	if err != nil {
		return nil, err
	}
	return r.HGetAll(ctx, key).Result()
}

func (c *Client) HKeys(ctx context.Context, key string) ([]string, error) {
	r, err := c.cmd()
	if err != nil {
		return nil, err
	}
	return r.HKeys(ctx, key).Result()
}

// HIncrByCapped atomically adds delta to a hash field while the result stays
// at or below ceiling. It reports the new value and whether the add applied.
func (c *Client) HIncrByCapped(ctx context.Context, key, field string, delta, ceiling int64) (int64, bool, error) {
	r, err := c.cmd()
	if err != nil {
		return 0, false, err
	}
	total, err := hincrbyCapped.Run(ctx, r, []string{key}, field, delta, ceiling).Int64()
	if err != nil {
		return 0, false, err
	}
	if total < 0 {
		return 0, false, nil
	}
	return total, true, nil
}

func (c *Client) SMembers(ctx context.Context, key string) ([]string, error) {
	r, err := c.cmd()
	if err != nil {
		return nil, err
	}
	return r.SMembers(ctx, key).Result()
}

func (c *Client) LRange(ctx context.Context, key string, start, stop int64) ([]string, error) {
	r, err := c.cmd()
	if err != nil {
		return nil, err
	}
	return r.LRange(ctx, key, start, stop).Result()
}

// TxPipelined queues the commands issued by fn and runs them in one MULTI/EXEC.
func (c *Client) TxPipelined(ctx context.Context, fn func(redis.Pipeliner) error) error {
	r, err := c.cmd()
	if err != nil {
		return err
	}
	_, err = r.TxPipelined(ctx, fn)
	return err
}

func (c *Client) Del(ctx context.Context, keys ...string) error {
	r, err := c.cmd()
	if err != nil {
		return err
	}
	return r.Del(ctx, keys...).Err()
}

func (c *Client) Ping(ctx context.Context) error {
	r, err := c.cmd()
	if err != nil {
		return err
	}
	return r.Ping(ctx).Err()
}

func (c *Client) Close() error {
	if c == nil || c.close == nil {
		return nil
	}
	return c.close()
}
