package reports

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache is a small read-through JSON cache for dashboard payloads. A nil
// client disables caching entirely and every fetch falls through to the
// loader.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

func NewCache(client *redis.Client, ttl time.Duration, logger *slog.Logger) *Cache {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &Cache{client: client, ttl: ttl, logger: logger}
}

// FetchJSON returns the cached value for key, or runs loader and stores the
// result. Cache failures are logged and never surfaced; the loader's result
// wins.
func (c *Cache) FetchJSON(ctx context.Context, key string, dest any, loader func(ctx context.Context) (any, error)) error {
	if c == nil || c.client == nil {
		value, err := loader(ctx)
		if err != nil {
			return err
		}
		return remarshal(value, dest)
	}

	payload, err := c.client.Get(ctx, key).Bytes()
	if err == nil {
		if err := json.Unmarshal(payload, dest); err == nil {
			return nil
		}
		// Corrupt entry, drop it and reload.
		_ = c.client.Del(ctx, key).Err()
	} else if err != redis.Nil {
		c.log(ctx, "cache read failed", key, err)
	}

	value, err := loader(ctx)
	if err != nil {
		return err
	}
	if encoded, err := json.Marshal(value); err == nil {
		if err := c.client.Set(ctx, key, encoded, c.ttl).Err(); err != nil {
			c.log(ctx, "cache write failed", key, err)
		}
	}
	return remarshal(value, dest)
}

// Invalidate drops cached keys, for use after writes that change the data.
func (c *Cache) Invalidate(ctx context.Context, keys ...string) {
	if c == nil || c.client == nil || len(keys) == 0 {
		return
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		c.log(ctx, "cache invalidate failed", keys[0], err)
	}
}

func (c *Cache) log(ctx context.Context, msg, key string, err error) {
	if c.logger == nil {
		return
	}
	c.logger.WarnContext(ctx, msg, slog.String("key", key), slog.Any("error", err))
}

func remarshal(value, dest any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, dest)
}
