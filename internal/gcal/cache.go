package gcal

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const cacheKeyPrefix = "freebusy:"

// CacheStore holds free/busy responses between requests. Implementations
// must support targeted invalidation: removing every entry whose key
// mentions a calendar ID, used right after a booking or cancellation
// mutates that calendar. Invalidation is idempotent.
type CacheStore interface {
	Get(ctx context.Context, key string) (map[string][]BusyBlock, bool, error)
	Set(ctx context.Context, key string, value map[string][]BusyBlock, ttl time.Duration) error
	InvalidateCalendar(ctx context.Context, calendarID string) (int, error)
}

// cacheKey builds a deterministic key from the query parameters. Calendar
// IDs are sorted so equivalent batches share an entry.
func cacheKey(calendarIDs []string, timeMin, timeMax string) string {
	ids := make([]string, len(calendarIDs))
	copy(ids, calendarIDs)
	sort.Strings(ids)
	return cacheKeyPrefix + strings.Join(ids, ",") + "|" + timeMin + "|" + timeMax
}

// RedisCache stores free/busy responses in Redis with a TTL.
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache creates a cache over an existing Redis client.
func NewRedisCache(client *redis.Client) *RedisCache {
	if client == nil {
		panic("gcal: redis client cannot be nil")
	}
	return &RedisCache{client: client}
}

func (c *RedisCache) Get(ctx context.Context, key string) (map[string][]BusyBlock, bool, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("gcal: cache get failed: %w", err)
	}
	var value map[string][]BusyBlock
	if err := json.Unmarshal(data, &value); err != nil {
		return nil, false, fmt.Errorf("gcal: cache entry decode failed: %w", err)
	}
	return value, true, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, value map[string][]BusyBlock, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("gcal: cache entry encode failed: %w", err)
	}
	if err := c.client.Set(ctx, key, data, ttl).Err(); err != nil {
		return fmt.Errorf("gcal: cache set failed: %w", err)
	}
	return nil
}

// InvalidateCalendar deletes every cached response whose key mentions the
// calendar ID and returns the number of entries removed.
func (c *RedisCache) InvalidateCalendar(ctx context.Context, calendarID string) (int, error) {
	if calendarID == "" {
		return 0, nil
	}
	var removed int
	iter := c.client.Scan(ctx, 0, cacheKeyPrefix+"*"+calendarID+"*", 0).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			return removed, fmt.Errorf("gcal: cache invalidation failed: %w", err)
		}
		removed++
	}
	if err := iter.Err(); err != nil {
		return removed, fmt.Errorf("gcal: cache scan failed: %w", err)
	}
	return removed, nil
}

// MemoryCache is a process-local CacheStore for single-instance
// deployments and tests.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

type memoryEntry struct {
	value     map[string][]BusyBlock
	expiresAt time.Time
}

// NewMemoryCache creates an empty in-memory cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

func (c *MemoryCache) Get(ctx context.Context, key string) (map[string][]BusyBlock, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[key]
	if !ok {
		return nil, false, nil
	}
	if c.now().After(entry.expiresAt) {
		delete(c.entries, key)
		return nil, false, nil
	}
	return entry.value, true, nil
}

func (c *MemoryCache) Set(ctx context.Context, key string, value map[string][]BusyBlock, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = memoryEntry{value: value, expiresAt: c.now().Add(ttl)}
	return nil
}

func (c *MemoryCache) InvalidateCalendar(ctx context.Context, calendarID string) (int, error) {
	if calendarID == "" {
		return 0, nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	var removed int
	for key := range c.entries {
		if strings.Contains(key, calendarID) {
			delete(c.entries, key)
			removed++
		}
	}
	return removed, nil
}
