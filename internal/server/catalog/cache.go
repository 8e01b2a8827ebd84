package catalog

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache stores existence verdicts keyed by artwork id.
type Cache interface {
	// Get returns the cached verdict and whether one was found.
	Get(ctx context.Context, id string) (exists bool, found bool, err error)
	Set(ctx context.Context, id string, exists bool, ttl time.Duration) error
}

type memoryEntry struct {
	exists    bool
	expiresAt time.Time
}

// memorySweepInterval bounds how often Set scans for expired entries.
const memorySweepInterval = time.Minute

// MemoryCache is an in-process Cache. Expired entries are dropped on read
// and swept by Set at most once per memorySweepInterval.
type MemoryCache struct {
	mu        sync.Mutex
	items     map[string]memoryEntry
	now       func() time.Time
	lastSweep time.Time
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{items: make(map[string]memoryEntry), now: time.Now}
}

func (c *MemoryCache) Get(_ context.Context, id string) (bool, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.items[id]
	if !ok {
		return false, false, nil
	}
	if !c.now().Before(e.expiresAt) {
		delete(c.items, id)
		return false, false, nil
	}
	return e.exists, true, nil
}

func (c *MemoryCache) Set(_ context.Context, id string, exists bool, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if now.Sub(c.lastSweep) >= memorySweepInterval {
		for k, e := range c.items {
			if !now.Before(e.expiresAt) {
				delete(c.items, k)
			}
		}
		c.lastSweep = now
	}

	c.items[id] = memoryEntry{exists: exists, expiresAt: now.Add(ttl)}
	return nil
}

// RedisCache keeps verdicts in Redis as "1" or "0" under prefix+id.
type RedisCache struct {
	rc     *redis.Client
	prefix string
}

func NewRedisCache(rc *redis.Client, prefix string) *RedisCache {
	return &RedisCache{rc: rc, prefix: prefix}
}

func (c *RedisCache) key(id string) string {
	return c.prefix + id
}

func (c *RedisCache) Get(ctx context.Context, id string) (bool, bool, error) {
	val, err := c.rc.Get(ctx, c.key(id)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, false, nil
		}
		return false, false, err
	}
	return val == "1", true, nil
}

func (c *RedisCache) Set(ctx context.Context, id string, exists bool, ttl time.Duration) error {
	val := "0"
	if exists {
		val = "1"
	}
	return c.rc.Set(ctx, c.key(id), val, ttl).Err()
}
