package config

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache keeps resolved configuration rows in Redis. The rows are read-mostly;
// a short TTL bounds staleness after an operator edits the configuration.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache constructs Cache.
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Cache{client: client, ttl: ttl}
}

func cacheKey(posID int64) string {
	return fmt.Sprintf("acct:config:%d", posID)
}

// Get returns the cached config for the POS, if present.
func (c *Cache) Get(ctx context.Context, posID int64) (Config, bool) {
	if c == nil || c.client == nil {
		return Config{}, false
	}
	raw, err := c.client.Get(ctx, cacheKey(posID)).Bytes()
	if err != nil {
		return Config{}, false
	}
	var cfg Config
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return Config{}, false
	}
	return cfg, true
}

// Set stores the config for the POS.
func (c *Cache) Set(ctx context.Context, cfg Config) {
	if c == nil || c.client == nil {
		return
	}
	raw, err := json.Marshal(cfg)
	if err != nil {
		return
	}
	_ = c.client.Set(ctx, cacheKey(cfg.POSID), raw, c.ttl).Err()
}

// Invalidate drops the cached row for the POS.
func (c *Cache) Invalidate(ctx context.Context, posID int64) {
	if c == nil || c.client == nil {
		return
	}
	_ = c.client.Del(ctx, cacheKey(posID)).Err()
}
