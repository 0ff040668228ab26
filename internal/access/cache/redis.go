// Package cache stores resolved permission sets in Redis for a short TTL so
// that role and grant edits take effect within a bounded delay.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Resolved is the cached outcome of resolving a user against the catalog.
type Resolved struct {
	Active      bool        `json:"active"`
	Roles       []string    `json:"roles"`
	Permissions []string    `json:"permissions"`
	DeskIDs     []uuid.UUID `json:"deskIds"`
	ResolvedAt  time.Time   `json:"resolvedAt"`
}

// RedisCache keeps Resolved entries under "access:perm:<userID>".
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

// NewRedisCache connects to redisURL and verifies the connection.
func NewRedisCache(ctx context.Context, redisURL string, ttl time.Duration) (*RedisCache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return NewRedisCacheWithClient(client, ttl), nil
}

// NewRedisCacheWithClient creates a cache from an existing Redis client.
func NewRedisCacheWithClient(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl, prefix: "access:perm:"}
}

func (c *RedisCache) key(userID uuid.UUID) string {
	return c.prefix + userID.String()
}

// Get returns the cached entry. A miss is (Resolved{}, false, nil).
func (c *RedisCache) Get(ctx context.Context, userID uuid.UUID) (Resolved, bool, error) {
	raw, err := c.client.Get(ctx, c.key(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Resolved{}, false, nil
	}
	if err != nil {
		return Resolved{}, false, fmt.Errorf("read permission cache: %w", err)
	}

	var entry Resolved
	if err := json.Unmarshal(raw, &entry); err != nil {
		return Resolved{}, false, fmt.Errorf("decode permission cache: %w", err)
	}
	return entry, true, nil
}

// Set stores an entry for the configured TTL.
func (c *RedisCache) Set(ctx context.Context, userID uuid.UUID, entry Resolved) error {
	raw, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode permission cache: %w", err)
	}
	if err := c.client.Set(ctx, c.key(userID), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("write permission cache: %w", err)
	}
	return nil
}

// Delete drops the entry for a user.
func (c *RedisCache) Delete(ctx context.Context, userID uuid.UUID) error {
	if err := c.client.Del(ctx, c.key(userID)).Err(); err != nil {
		return fmt.Errorf("invalidate permission cache: %w", err)
	}
	return nil
}

// Close closes the underlying client.
func (c *RedisCache) Close() error {
	return c.client.Close()
}
