package images

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// URLTTL keeps cached download links well inside the upstream validity
// window (Telegram links last about an hour).
const URLTTL = 45 * time.Minute

// Cache stores resolved download URLs keyed by file ID.
type Cache interface {
	Get(ctx context.Context, fileID string) (string, bool)
	Set(ctx context.Context, fileID, url string)
}

type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{client: client, ttl: URLTTL}
}

func (c *RedisCache) Get(ctx context.Context, fileID string) (string, bool) {
	v, err := c.client.Get(ctx, "imgurl:"+fileID).Result()
	if err != nil {
		return "", false
	}
	return v, true
}

func (c *RedisCache) Set(ctx context.Context, fileID, url string) {
	_ = c.client.Set(ctx, "imgurl:"+fileID, url, c.ttl).Err()
}

// MemoryCache backs deployments without Redis.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]memEntry
	ttl     time.Duration
}

type memEntry struct {
	url     string
	expires time.Time
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: map[string]memEntry{}, ttl: URLTTL}
}

func (c *MemoryCache) Get(_ context.Context, fileID string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[fileID]
	if !ok || time.Now().After(e.expires) {
		delete(c.entries, fileID)
		return "", false
	}
	return e.url, true
}

func (c *MemoryCache) Set(_ context.Context, fileID, url string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[fileID] = memEntry{url: url, expires: time.Now().Add(c.ttl)}
}
