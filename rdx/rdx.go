package rdx

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache wraps the Redis client used for product caching, webhook locks and
// the legacy cart shape.
type Cache struct {
	Conn *redis.Client
}

// New connects to Redis. Redis being down is tolerated: callers treat every
// cache error as a miss.
func New(addr string) *Cache {
	return &Cache{
		Conn: redis.NewClient(&redis.Options{Addr: addr}),
	}
}

// GetJSON loads key into dest, returning false on miss or decode failure.
func (c *Cache) GetJSON(ctx context.Context, key string, dest any) bool {
	raw, err := c.Conn.Get(ctx, key).Result()
	if err != nil {
		return false
	}
	if err := json.Unmarshal([]byte(raw), dest); err != nil {
		log.Printf("rdx: stale cache entry %s dropped: %v", key, err)
		c.Conn.Del(ctx, key)
		return false
	}
	return true
}

// SetJSON stores value under key with a TTL; failures are logged only.
func (c *Cache) SetJSON(ctx context.Context, key string, value any, ttl time.Duration) {
	data, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := c.Conn.Set(ctx, key, data, ttl).Err(); err != nil {
		log.Printf("rdx: set %s failed: %v", key, err)
	}
}

// Invalidate removes keys, swallowing errors.
func (c *Cache) Invalidate(ctx context.Context, keys ...string) {
	if len(keys) == 0 {
		return
	}
	if err := c.Conn.Del(ctx, keys...).Err(); err != nil {
		log.Printf("rdx: invalidate failed: %v", err)
	}
}

// AcquireLock takes a short-lived distributed lock. Used to keep concurrent
// webhook deliveries for one session from racing each other.
func (c *Cache) AcquireLock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return c.Conn.SetNX(ctx, "lock:"+key, "1", ttl).Result()
}

// ReleaseLock releases a lock taken with AcquireLock.
func (c *Cache) ReleaseLock(ctx context.Context, key string) {
	if err := c.Conn.Del(ctx, "lock:"+key).Err(); err != nil {
		log.Printf("rdx: release lock %s failed: %v", key, err)
	}
}
