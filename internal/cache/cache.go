package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/noah-isme/backend-pricing/internal/obs"
)

// Cache wraps Redis helpers for JSON payloads with a shared TTL.
//
// Rule families are cached under versioned keys; Invalidate bumps the
// family's version so stale entries are orphaned immediately instead of
// waiting out their TTL.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// New constructs a cache helper. A nil client yields a no-op cache, which
// keeps tests and degraded startup paths simple.
func New(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

// GetJSON unmarshals a cached JSON payload into dst. It reports whether the
// key existed.
func (c *Cache) GetJSON(ctx context.Context, key string, dst any) (bool, error) {
	if c == nil || c.client == nil || key == "" {
		return false, nil
	}
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return false, nil
		}
		return false, err
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return false, err
	}
	return true, nil
}

// SetJSON serialises v as JSON and stores it with the configured TTL.
func (c *Cache) SetJSON(ctx context.Context, key string, v any) error {
	if c == nil || c.client == nil || key == "" {
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, data, c.ttl).Err()
}

// Key returns the current versioned key for a rule family.
func (c *Cache) Key(ctx context.Context, family string) string {
	if c == nil || c.client == nil {
		return ""
	}
	// A missing version key reads as 0 so the first Incr (0 -> 1) still
	// rotates the key.
	ver, err := c.client.Get(ctx, versionKey(family)).Int64()
	if err != nil {
		ver = 0
	}
	return fmt.Sprintf("rules:%s:v%d", family, ver)
}

// Invalidate bumps the family's version counter. Existing cached entries
// become unreachable and expire on their own TTL.
func (c *Cache) Invalidate(ctx context.Context, families ...string) error {
	if c == nil || c.client == nil {
		return nil
	}
	for _, f := range families {
		if err := c.client.Incr(ctx, versionKey(f)).Err(); err != nil {
			return err
		}
	}
	return nil
}

func versionKey(family string) string {
	return "rules:" + family + ":ver"
}

// Remember returns the cached value for the family or, on a miss, loads it,
// caches it and returns it. Cache errors never fail the request; the loader
// result wins.
func Remember[T any](ctx context.Context, c *Cache, family string, load func(context.Context) (T, error)) (T, error) {
	key := c.Key(ctx, family)
	var cached T
	if ok, err := c.GetJSON(ctx, key, &cached); err == nil && ok {
		countLookup(family, "hit")
		return cached, nil
	}
	countLookup(family, "miss")
	v, err := load(ctx)
	if err != nil {
		return v, err
	}
	_ = c.SetJSON(ctx, key, v)
	return v, nil
}

func countLookup(family, result string) {
	if obs.RuleCacheLookups != nil {
		obs.RuleCacheLookups.WithLabelValues(family, result).Inc()
	}
}
