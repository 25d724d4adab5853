// AngelaMos | 2026
// cache.go

package strategy

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/planvix/planvix-api/internal/config"
)

// redisCmdable is the slice of the redis client the cache needs.
// Narrow so tests can substitute a scripted client.
type redisCmdable interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// Cache stores generated documents keyed by request fingerprint.
// Every failure is absorbed: a broken cache degrades to a miss on
// reads and a no-op on writes, never a request failure.
type Cache struct {
	client redisCmdable
	prefix string
	ttl    time.Duration
	logger *slog.Logger
}

func NewCache(client redisCmdable, cfg config.CacheConfig, logger *slog.Logger) *Cache {
	return &Cache{
		client: client,
		prefix: cfg.KeyPrefix,
		ttl:    cfg.TTL,
		logger: logger,
	}
}

func (c *Cache) Get(ctx context.Context, fingerprint string) (*Document, bool) {
	raw, err := c.client.Get(ctx, c.prefix+fingerprint).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("cache read failed", "error", err)
		}
		return nil, false
	}

	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		// Corrupt entry: drop it so the slot heals on the next put.
		c.logger.Warn("cache entry corrupt, evicting", "error", err)
		c.client.Del(ctx, c.prefix+fingerprint)
		return nil, false
	}

	return &doc, true
}

func (c *Cache) Put(ctx context.Context, fingerprint string, doc *Document) {
	raw, err := json.Marshal(doc)
	if err != nil {
		c.logger.Warn("cache encode failed", "error", err)
		return
	}

	if err := c.client.Set(ctx, c.prefix+fingerprint, raw, c.ttl).Err(); err != nil {
		c.logger.Warn("cache write failed", "error", err)
	}
}
