package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultKeyPrefix namespaces cache keys in a shared Redis
const DefaultKeyPrefix = "resume:parsed:"

// RedisCache is a Cache backed by Redis string keys holding JSON entries
type RedisCache struct {
	client    redis.Cmdable
	keyPrefix string
	ttl       time.Duration
}

// NewRedisCache wraps a connected client. An empty prefix uses DefaultKeyPrefix;
// ttl <= 0 stores entries without expiry.
func NewRedisCache(client redis.Cmdable, keyPrefix string, ttl time.Duration) (*RedisCache, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client cannot be nil")
	}
	if keyPrefix == "" {
		keyPrefix = DefaultKeyPrefix
	}
	return &RedisCache{client: client, keyPrefix: keyPrefix, ttl: ttl}, nil
}

// Connect parses a redis:// URL, pings the server and returns a RedisCache
func Connect(ctx context.Context, url string, ttl time.Duration) (*RedisCache, *redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid redis URL: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	c, err := NewRedisCache(client, "", ttl)
	if err != nil {
		_ = client.Close()
		return nil, nil, err
	}
	return c, client, nil
}

// Key returns the Redis key for a content hash
func (c *RedisCache) Key(contentHash string) string {
	return c.keyPrefix + contentHash
}

// Get implements Cache
func (c *RedisCache) Get(ctx context.Context, contentHash string) (*Entry, bool, error) {
	raw, err := c.client.Get(ctx, c.Key(contentHash)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read cache entry %s: %w", contentHash, err)
	}

	var entry Entry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return nil, false, fmt.Errorf("corrupt cache entry %s: %w", contentHash, err)
	}
	if entry.Resume == nil {
		return nil, false, nil
	}
	return &entry, true, nil
}

// Set implements Cache
func (c *RedisCache) Set(ctx context.Context, contentHash string, entry Entry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal cache entry: %w", err)
	}
	if err := c.client.Set(ctx, c.Key(contentHash), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write cache entry %s: %w", contentHash, err)
	}
	return nil
}
