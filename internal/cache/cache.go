package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	ErrCacheNotFound     = errors.New("cache entry not found")
	ErrCacheNotAvailable = errors.New("cache not available")
)

// CacheConfig defines TTL and key prefix per data class.
type CacheConfig struct {
	TTL    time.Duration
	Prefix string
}

var (
	// Short-lived entries for hot lookups (assignments mid-quiz).
	FastCacheConfig = CacheConfig{TTL: 2 * time.Minute, Prefix: "fast:"}

	// Module content changes rarely outside authoring sessions.
	ModuleCacheConfig = CacheConfig{TTL: 10 * time.Minute, Prefix: "module:"}

	// User rows change on admin edits only.
	UserCacheConfig = CacheConfig{TTL: 10 * time.Minute, Prefix: "user:"}

	// Dashboard aggregates are expensive to recompute.
	StatsCacheConfig = CacheConfig{TTL: 5 * time.Minute, Prefix: "stats:"}
)

// CacheHelper wraps a Redis client with JSON marshalling and a key prefix.
// A nil client degrades every operation to a no-op / miss.
type CacheHelper struct {
	client *redis.Client
	prefix string
}

func NewCacheHelper(client *redis.Client, prefix string) *CacheHelper {
	return &CacheHelper{client: client, prefix: prefix}
}

func (c *CacheHelper) key(key string) string {
	return c.prefix + key
}

func (c *CacheHelper) Get(ctx context.Context, key string, dest interface{}) error {
	if c.client == nil {
		return ErrCacheNotAvailable
	}

	data, err := c.client.Get(ctx, c.key(key)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrCacheNotFound
		}
		return fmt.Errorf("cache get error: %w", err)
	}

	if err := json.Unmarshal([]byte(data), dest); err != nil {
		return fmt.Errorf("cache unmarshal error: %w", err)
	}
	return nil
}

func (c *CacheHelper) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if c.client == nil {
		return nil
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache marshal error: %w", err)
	}
	return c.client.Set(ctx, c.key(key), data, ttl).Err()
}

func (c *CacheHelper) Delete(ctx context.Context, keys ...string) error {
	if c.client == nil || len(keys) == 0 {
		return nil
	}

	cacheKeys := make([]string, len(keys))
	for i, key := range keys {
		cacheKeys[i] = c.key(key)
	}
	return c.client.Del(ctx, cacheKeys...).Err()
}

func (c *CacheHelper) Exists(ctx context.Context, key string) (bool, error) {
	if c.client == nil {
		return false, ErrCacheNotAvailable
	}

	count, err := c.client.Exists(ctx, c.key(key)).Result()
	if err != nil {
		return false, fmt.Errorf("cache exists error: %w", err)
	}
	return count > 0, nil
}

// InvalidatePattern removes all keys matching the pattern. Uses SCAN so a
// large keyspace never blocks Redis the way KEYS would.
func (c *CacheHelper) InvalidatePattern(ctx context.Context, pattern string) error {
	if c.client == nil {
		return nil
	}

	fullPattern := c.key(pattern)
	var cursor uint64
	for {
		keys, next, err := c.client.Scan(ctx, cursor, fullPattern, 100).Result()
		if err != nil {
			return fmt.Errorf("cache scan error: %w", err)
		}
		if len(keys) > 0 {
			if err := c.client.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("cache delete error: %w", err)
			}
		}
		cursor = next
		if cursor == 0 {
			return nil
		}
	}
}

// CacheOrExecute implements the cache-aside pattern: return the cached value
// when present, otherwise fetch, populate dest and write back.
func (c *CacheHelper) CacheOrExecute(ctx context.Context, key string, dest interface{}, ttl time.Duration, fetch func() (interface{}, error)) error {
	err := c.Get(ctx, key, dest)
	if err == nil {
		return nil
	}
	if !errors.Is(err, ErrCacheNotFound) && !errors.Is(err, ErrCacheNotAvailable) {
		slog.WarnContext(ctx, "cache get failed, falling back to fetch", "error", err, "key", key)
	}

	value, err := fetch()
	if err != nil {
		return err
	}

	// The fetched value is assigned directly, never serialized into dest.
	// A JSON round-trip here would silently drop fields the serializer
	// hides (json:"-"), corrupting the miss path.
	if err := assign(dest, value); err != nil {
		return err
	}

	if setErr := c.Set(ctx, key, value, ttl); setErr != nil {
		slog.WarnContext(ctx, "cache set failed", "error", setErr, "key", key)
	}
	return nil
}

// assign copies a fetched value into the caller's destination pointer,
// dereferencing the value when fetch returned a pointer to the element type.
func assign(dest, value interface{}) error {
	dv := reflect.ValueOf(dest)
	if dv.Kind() != reflect.Pointer || dv.IsNil() {
		return fmt.Errorf("cache destination must be a non-nil pointer, got %T", dest)
	}
	dv = dv.Elem()

	vv := reflect.ValueOf(value)
	if vv.IsValid() && vv.Type().AssignableTo(dv.Type()) {
		dv.Set(vv)
		return nil
	}
	if vv.Kind() == reflect.Pointer && !vv.IsNil() && vv.Elem().Type().AssignableTo(dv.Type()) {
		dv.Set(vv.Elem())
		return nil
	}
	return fmt.Errorf("cache fetch returned %T, destination is %T", value, dest)
}

// CacheManager groups the per-domain helpers used by the repositories.
type CacheManager struct {
	client *redis.Client

	Fast   *CacheHelper
	Module *CacheHelper
	User   *CacheHelper
	Stats  *CacheHelper
}

func NewCacheManager(client *redis.Client) *CacheManager {
	return &CacheManager{
		client: client,
		Fast:   NewCacheHelper(client, FastCacheConfig.Prefix),
		Module: NewCacheHelper(client, ModuleCacheConfig.Prefix),
		User:   NewCacheHelper(client, UserCacheConfig.Prefix),
		Stats:  NewCacheHelper(client, StatsCacheConfig.Prefix),
	}
}

func (cm *CacheManager) HealthCheck(ctx context.Context) error {
	if cm.client == nil {
		return nil
	}
	return cm.client.Ping(ctx).Err()
}

// ClearAll flushes every cached entry. Only dashboards and lookups live in
// the cache, so this is safe at any time.
func (cm *CacheManager) ClearAll(ctx context.Context) error {
	if cm.client == nil {
		return nil
	}
	return cm.client.FlushDB(ctx).Err()
}
