package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-electronic/internal/obs"
)

const (
	keyCategories     = "catalog:categories"
	keyCategoryPrefix = "catalog:categories:"
)

func categoryKey(id string) string { return keyCategoryPrefix + id }

// Cache wraps Redis helpers for JSON payloads. A nil Cache or one without a
// client is a no-op.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache constructs a cache helper.
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Cache{client: client, ttl: ttl}
}

func (c *Cache) enabled() bool { return c != nil && c.client != nil }

// GetJSON unmarshals a cached JSON payload into dst. It reports whether the key existed.
func (c *Cache) GetJSON(ctx context.Context, key string, dst any) (bool, error) {
	if !c.enabled() || key == "" {
		return false, nil
	}
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			obs.RecordCatalogCache(ctx, "miss")
			return false, nil
		}
		obs.RecordCatalogCache(ctx, "error")
		return false, err
	}
	if err := json.Unmarshal(data, dst); err != nil {
		obs.RecordCatalogCache(ctx, "error")
		return false, err
	}
	obs.RecordCatalogCache(ctx, "hit")
	return true, nil
}

// SetJSON serialises v as JSON and stores it with the configured TTL.
func (c *Cache) SetJSON(ctx context.Context, key string, v any) error {
	if !c.enabled() || key == "" {
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, data, c.ttl).Err()
}

// Invalidate drops keys.
func (c *Cache) Invalidate(ctx context.Context, keys ...string) error {
	if !c.enabled() || len(keys) == 0 {
		return nil
	}
	return c.client.Del(ctx, keys...).Err()
}

// cached serves key from c, falling back to load and filling the cache.
// Cache failures are logged and never fail the request.
func cached[T any](ctx context.Context, c *Cache, logger zerolog.Logger, key string, load func() (T, error)) (T, error) {
	var v T
	if ok, err := c.GetJSON(ctx, key, &v); err != nil {
		logger.Warn().Err(err).Str("key", key).Msg("catalog cache read failed")
	} else if ok {
		return v, nil
	}
	v, err := load()
	if err != nil {
		return v, err
	}
	if err := c.SetJSON(ctx, key, v); err != nil {
		logger.Warn().Err(err).Str("key", key).Msg("catalog cache write failed")
	}
	return v, nil
}
