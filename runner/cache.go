package runner

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache stores a node's cache-keyed outputs across runs, memoizing tool
// invocations with identical inputs/config.
type Cache interface {
	// Get returns a cached output map, or ok=false on a miss.
	Get(ctx context.Context, key string) (map[string]any, bool, error)
	// Set stores output under key.
	Set(ctx context.Context, key string, output map[string]any) error
	// Lock blocks until the caller holds the at-most-one-in-flight-build lock
	// for key, returning an unlock function to call when the build completes
	// (success or failure) so waiters can re-check the cache.
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

// MemoryCache is an in-process Cache backed by a guarded map, with a
// per-key mutex so concurrent requests for the same uncached key build at
// most once; later callers block on Lock and then re-check Get.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]map[string]any
	locks   map[string]*sync.Mutex
	locksMu sync.Mutex
}

// NewMemoryCache returns an empty in-memory cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		entries: make(map[string]map[string]any),
		locks:   make(map[string]*sync.Mutex),
	}
}

// Get returns the cached output for key, if present.
func (c *MemoryCache) Get(_ context.Context, key string) (map[string]any, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out, ok := c.entries[key]
	return out, ok, nil
}

// Set stores output under key.
func (c *MemoryCache) Set(_ context.Context, key string, output map[string]any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = output
	return nil
}

// Lock acquires the per-key build lock, blocking until held.
func (c *MemoryCache) Lock(ctx context.Context, key string) (func(), error) {
	c.locksMu.Lock()
	lk, ok := c.locks[key]
	if !ok {
		lk = &sync.Mutex{}
		c.locks[key] = lk
	}
	c.locksMu.Unlock()

	done := make(chan struct{})
	go func() {
		lk.Lock()
		close(done)
	}()
	select {
	case <-done:
		return lk.Unlock, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// RedisCache is a distributed Cache backed by a shared Redis instance,
// suitable for multi-process workspaces. Cache-key locks use Redis's SETNX
// semantics via a short-TTL marker key, since an in-process mutex cannot
// coordinate across processes.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
	lockTTL time.Duration
}

// NewRedisCache wraps client, caching entries for ttl (0 means no expiry)
// and holding each build lock for at most 30s.
func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	lockTTL := 30 * time.Second
	return &RedisCache{client: client, ttl: ttl, lockTTL: lockTTL}
}

// Get returns the cached output for key, if present.
func (c *RedisCache) Get(ctx context.Context, key string) (map[string]any, bool, error) {
	raw, err := c.client.Get(ctx, cacheDataKey(key)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, false, err
	}
	return out, true, nil
}

// Set stores output under key.
func (c *RedisCache) Set(ctx context.Context, key string, output map[string]any) error {
	raw, err := json.Marshal(output)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, cacheDataKey(key), raw, c.ttl).Err()
}

// Lock polls for the distributed build lock using SETNX, backing off briefly
// between attempts. The returned unlock deletes the marker key.
func (c *RedisCache) Lock(ctx context.Context, key string) (func(), error) {
	lockKey := cacheLockKey(key)
	for {
		ok, err := c.client.SetNX(ctx, lockKey, 1, c.lockTTL).Result()
		if err != nil {
			return nil, err
		}
		if ok {
			return func() { c.client.Del(context.Background(), lockKey) }, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(50 * time.Millisecond):
		}
	}
}

func cacheDataKey(key string) string {
	return "workflowcore:cache:" + key
}

func cacheLockKey(key string) string {
	return "workflowcore:cachelock:" + key
}
