package engine

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
)

// Transcript and metadata results are cached in two tiers: L1 in-memory + L2 Redis.
// L1 is lost on restart, L2 survives restarts.
var resultCache *tieredCache

var (
	cacheHits   atomic.Int64
	cacheMisses atomic.Int64
)

type tieredCache struct {
	l1              sync.Map      // key → *cacheEntry
	rdb             *redis.Client // nil if Redis unavailable
	ttl             time.Duration
	maxEntries      int
	cleanupInterval time.Duration
	stop            chan struct{}
}

type cacheEntry struct {
	data      []byte
	expiresAt time.Time
}

// InitCache sets up the 2-tier cache. Call after Init().
// redisURL can be empty to disable L2. Re-initializing stops the previous cleanup loop.
func InitCache(redisURL string, ttl time.Duration, maxEntries int, cleanupInterval time.Duration) {
	c := &tieredCache{ttl: ttl, maxEntries: maxEntries, cleanupInterval: cleanupInterval, stop: make(chan struct{})}

	if redisURL != "" {
		opts, err := redis.ParseURL(redisURL)
		if err != nil {
			slog.Warn("cache: invalid redis URL, L2 disabled", slog.Any("err", err))
		} else {
			rdb := redis.NewClient(opts)
			ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			defer cancel()
			if err := rdb.Ping(ctx).Err(); err != nil {
				slog.Warn("cache: redis unreachable, L2 disabled", slog.Any("err", err))
				_ = rdb.Close()
			} else {
				c.rdb = rdb
				slog.Info("cache: L2 redis connected", slog.String("addr", opts.Addr))
			}
		}
	}

	if resultCache != nil {
		close(resultCache.stop)
	}
	resultCache = c
	slog.Info("cache: initialized", slog.Duration("ttl", ttl), slog.Bool("redis", c.rdb != nil), slog.Int("max_entries", maxEntries))

	go c.cleanupLoop()
}

// CacheKey builds a deterministic cache key from parts.
func CacheKey(parts ...string) string {
	joined := strings.Join(parts, "|")
	hash := sha256.Sum256([]byte(joined))
	return fmt.Sprintf("sf:%x", hash[:12]) // 24-char hex
}

// CacheGet tries L1, then L2. On L2 hit, populates L1.
func CacheGet(ctx context.Context, key string) ([]byte, bool) {
	if resultCache == nil {
		cacheMisses.Add(1)
		return nil, false
	}

	if val, ok := resultCache.l1.Load(key); ok {
		entry := val.(*cacheEntry)
		if time.Now().Before(entry.expiresAt) {
			slog.Debug("cache: L1 hit", slog.String("key", key))
			cacheHits.Add(1)
			return entry.data, true
		}
		resultCache.l1.Delete(key)
	}

	if resultCache.rdb != nil {
		data, err := resultCache.rdb.Get(ctx, key).Bytes()
		if err == nil {
			slog.Debug("cache: L2 hit", slog.String("key", key))
			cacheHits.Add(1)
			resultCache.l1.Store(key, &cacheEntry{
				data:      data,
				expiresAt: time.Now().Add(resultCache.ttl),
			})
			return data, true
		}
	}

	cacheMisses.Add(1)
	return nil, false
}

// CacheSet stores data in both L1 and L2.
func CacheSet(ctx context.Context, key string, data []byte) {
	if resultCache == nil {
		return
	}

	resultCache.evictIfNeeded()

	resultCache.l1.Store(key, &cacheEntry{
		data:      data,
		expiresAt: time.Now().Add(resultCache.ttl),
	})

	if resultCache.rdb != nil {
		if err := resultCache.rdb.Set(ctx, key, data, resultCache.ttl).Err(); err != nil {
			slog.Debug("cache: L2 set failed", slog.Any("err", err))
		}
	}
}

// CacheStats returns current cache hit/miss counters.
func CacheStats() (hits, misses int64) {
	return cacheHits.Load(), cacheMisses.Load()
}

// CacheLoadJSON loads a cached value of type T.
// Returns zero value and false on miss or decode error.
func CacheLoadJSON[T any](ctx context.Context, key string) (T, bool) {
	var out T
	data, ok := CacheGet(ctx, key)
	if !ok {
		return out, false
	}
	if err := json.Unmarshal(data, &out); err != nil {
		var zero T
		return zero, false
	}
	return out, true
}

// CacheStoreJSON marshals v and stores it.
func CacheStoreJSON[T any](ctx context.Context, key string, v T) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	CacheSet(ctx, key, data)
}

// evictIfNeeded removes entries when L1 exceeds maxEntries.
// Removes expired entries first, then oldest entries if still over limit.
func (c *tieredCache) evictIfNeeded() {
	if c.maxEntries <= 0 {
		return
	}

	count := 0
	c.l1.Range(func(_, _ any) bool {
		count++
		return true
	})
	if count < c.maxEntries {
		return
	}

	now := time.Now()
	c.l1.Range(func(key, val any) bool {
		if entry, ok := val.(*cacheEntry); ok && now.After(entry.expiresAt) {
			c.l1.Delete(key)
			count--
		}
		return count >= c.maxEntries
	})

	for count >= c.maxEntries {
		var oldestKey any
		oldestAt := now.Add(c.ttl + time.Hour)
		c.l1.Range(func(key, val any) bool {
			// Earlier expiry = older entry, since expiry = createdAt + ttl.
			if entry, ok := val.(*cacheEntry); ok && entry.expiresAt.Before(oldestAt) {
				oldestKey = key
				oldestAt = entry.expiresAt
			}
			return true
		})
		if oldestKey == nil {
			break
		}
		c.l1.Delete(oldestKey)
		count--
	}
}

func (c *tieredCache) cleanupLoop() {
	interval := c.cleanupInterval
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			now := time.Now()
			c.l1.Range(func(key, val any) bool {
				if entry, ok := val.(*cacheEntry); ok && now.After(entry.expiresAt) {
					c.l1.Delete(key)
				}
				return true
			})
		}
	}
}
