package ai

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	"github.com/reviewinsight/server/internal/pkg/redis"
)

// Cache stores raw replies keyed by CacheKey.
type Cache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
}

// CacheKey identifies a reply by task, model and the exact user turn.
func CacheKey(task, model, user string) string {
	h := sha256.New()
	h.Write([]byte(task))
	h.Write([]byte{'|'})
	h.Write([]byte(model))
	h.Write([]byte{'|'})
	h.Write([]byte(user))
	return hex.EncodeToString(h.Sum(nil))
}

type memoryEntry struct {
	value     string
	expiresAt time.Time
}

// MemoryCache is an in-process TTL map. Expired entries are dropped by Sweep.
type MemoryCache struct {
	mu    sync.RWMutex
	ttl   time.Duration
	items map[string]memoryEntry
	now   func() time.Time
}

func NewMemoryCache(ttl time.Duration) *MemoryCache {
	return &MemoryCache{ttl: ttl, items: make(map[string]memoryEntry), now: time.Now}
}

func (c *MemoryCache) Get(_ context.Context, key string) (string, bool, error) {
	c.mu.RLock()
	entry, ok := c.items[key]
	c.mu.RUnlock()
	if !ok || !c.now().Before(entry.expiresAt) {
		return "", false, nil
	}
	return entry.value, true, nil
}

func (c *MemoryCache) Set(_ context.Context, key, value string) error {
	c.mu.Lock()
	c.items[key] = memoryEntry{value: value, expiresAt: c.now().Add(c.ttl)}
	c.mu.Unlock()
	return nil
}

// Sweep removes expired entries and returns how many were dropped.
func (c *MemoryCache) Sweep(context.Context) (int, error) {
	now := c.now()
	c.mu.Lock()
	defer c.mu.Unlock()
	removed := 0
	for key, entry := range c.items {
		if !now.Before(entry.expiresAt) {
			delete(c.items, key)
			removed++
		}
	}
	return removed, nil
}

// Len reports the number of stored entries, expired ones included.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// RedisCache keeps replies in Redis with a TTL.
type RedisCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func NewRedisCache(client *redis.Client, prefix string, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, prefix: prefix + "llm:", ttl: ttl}
}

func (c *RedisCache) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := c.client.Get(ctx, c.prefix+key)
	if err != nil {
		return "", false, err
	}
	if val == "" {
		return "", false, nil
	}
	return val, true, nil
}

func (c *RedisCache) Set(ctx context.Context, key, value string) error {
	return c.client.Set(ctx, c.prefix+key, value, c.ttl)
}
