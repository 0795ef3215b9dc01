package embedding

import (
	"container/list"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/hyperjump/kotae/pkg/utils"
	"go.uber.org/zap"
)

// Cache stores embeddings keyed by an opaque string.
type Cache interface {
	Get(ctx context.Context, key string) ([]float32, bool, error)
	Set(ctx context.Context, key string, value []float32) error
	Close() error
}

// MemoryCache is an in-process LRU cache.
type MemoryCache struct {
	capacity int
	cache    map[string]*list.Element
	lru      *list.List
	mu       sync.Mutex
}

type cacheEntry struct {
	key   string
	value []float32
}

// NewMemoryCache creates a new cache holding at most capacity embeddings.
func NewMemoryCache(capacity int) *MemoryCache {
	if capacity <= 0 {
		capacity = 1
	}
	return &MemoryCache{
		capacity: capacity,
		cache:    make(map[string]*list.Element),
		lru:      list.New(),
	}
}

// Get returns the cached embedding for key if present.
func (c *MemoryCache) Get(_ context.Context, key string) ([]float32, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.cache[key]; ok {
		c.lru.MoveToFront(elem)
		return elem.Value.(*cacheEntry).value, true, nil
	}
	return nil, false, nil
}

// Set stores the embedding for key, evicting the least recently used entry if at capacity.
func (c *MemoryCache) Set(_ context.Context, key string, value []float32) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.cache[key]; ok {
		c.lru.MoveToFront(elem)
		elem.Value.(*cacheEntry).value = value
		return nil
	}

	c.cache[key] = c.lru.PushFront(&cacheEntry{key: key, value: value})
	if c.lru.Len() > c.capacity {
		oldest := c.lru.Back()
		c.lru.Remove(oldest)
		delete(c.cache, oldest.Value.(*cacheEntry).key)
	}
	return nil
}

// Len returns the number of cached embeddings.
func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}

// Close is a no-op.
func (c *MemoryCache) Close() error { return nil }

// RedisCache stores embeddings in Redis as little-endian float32 blobs.
type RedisCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisCache connects to Redis and verifies the connection.
func NewRedisCache(ctx context.Context, addr, password string, db int, ttl time.Duration) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}
	return &RedisCache{client: client, prefix: "kotae:embedding:", ttl: ttl}, nil
}

// Get returns the cached embedding for key if present.
func (c *RedisCache) Get(ctx context.Context, key string) ([]float32, bool, error) {
	b, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get: %w", err)
	}
	vec, err := utils.BytesToFloat32s(b)
	if err != nil {
		return nil, false, err
	}
	return vec, true, nil
}

// Set stores the embedding for key with the configured TTL (zero keeps it forever).
func (c *RedisCache) Set(ctx context.Context, key string, value []float32) error {
	if err := c.client.Set(ctx, c.prefix+key, utils.Float32sToBytes(value), c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Close closes the Redis client.
func (c *RedisCache) Close() error {
	return c.client.Close()
}

// Cached wraps an Embedder with a Cache. Cache failures are logged and
// the call falls through to the provider.
type Cached struct {
	Embedder
	cache  Cache
	model  string
	logger *zap.Logger
}

// NewCached returns an embedder that consults cache before calling next.
// model namespaces the cache keys.
func NewCached(next Embedder, cache Cache, model string, logger *zap.Logger) *Cached {
	return &Cached{Embedder: next, cache: cache, model: model, logger: utils.OrNop(logger)}
}

// Embed returns the cached embedding for text or computes and stores it.
func (c *Cached) Embed(ctx context.Context, text string) ([]float32, error) {
	key := c.key(text)
	vec, ok, err := c.cache.Get(ctx, key)
	if err != nil {
		c.logger.Warn("embedding cache get failed", zap.Error(err))
	} else if ok {
		return vec, nil
	}

	vec, err = c.Embedder.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	if err := c.cache.Set(ctx, key, vec); err != nil {
		c.logger.Warn("embedding cache set failed", zap.Error(err))
	}
	return vec, nil
}

// Close closes the cache and the wrapped embedder.
func (c *Cached) Close() error {
	return errors.Join(c.cache.Close(), c.Embedder.Close())
}

func (c *Cached) key(text string) string {
	sum := sha256.Sum256([]byte(c.model + "\x00" + text))
	return hex.EncodeToString(sum[:])
}
