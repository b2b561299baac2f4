package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/amirphl/widget-sidebar/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
)

var cacheRequests = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "widget_sidebar",
		Name:      "cache_requests_total",
		Help:      "Cache lookups partitioned by cache name and result",
	},
	[]string{"cache", "result"},
)

// Cache is an unbounded id-keyed cache with an optional "fully loaded" state
// used for whole-vocabulary reads. Backend failures degrade to misses.
type Cache[V any] interface {
	Get(ctx context.Context, id uint) (*V, bool)
	Set(ctx context.Context, id uint, v *V)
	// Delete drops one entry without affecting the fully loaded state
	Delete(ctx context.Context, id uint)
	// All returns every cached value and whether the cache was fully loaded
	All(ctx context.Context) ([]*V, bool)
	// Fill replaces the content with values and marks the cache fully loaded
	Fill(ctx context.Context, values map[uint]*V)
	Clear(ctx context.Context)
}

func recordLookup(name string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	cacheRequests.WithLabelValues(name, result).Inc()
}

// MemoryCache keeps values in process memory
type MemoryCache[V any] struct {
	name   string
	mu     sync.RWMutex
	items  map[uint]*V
	loaded bool
}

// NewMemoryCache creates an empty in-process cache
func NewMemoryCache[V any](name string) *MemoryCache[V] {
	return &MemoryCache[V]{name: name, items: make(map[uint]*V)}
}

func (c *MemoryCache[V]) Get(_ context.Context, id uint) (*V, bool) {
	c.mu.RLock()
	v, ok := c.items[id]
	c.mu.RUnlock()
	recordLookup(c.name, ok)
	return v, ok
}

func (c *MemoryCache[V]) Set(_ context.Context, id uint, v *V) {
	c.mu.Lock()
	c.items[id] = v
	c.mu.Unlock()
}

func (c *MemoryCache[V]) Delete(_ context.Context, id uint) {
	c.mu.Lock()
	delete(c.items, id)
	c.mu.Unlock()
}

func (c *MemoryCache[V]) All(_ context.Context) ([]*V, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	recordLookup(c.name, c.loaded)
	if !c.loaded {
		return nil, false
	}
	out := make([]*V, 0, len(c.items))
	for _, v := range c.items {
		out = append(out, v)
	}
	return out, true
}

func (c *MemoryCache[V]) Fill(_ context.Context, values map[uint]*V) {
	items := make(map[uint]*V, len(values))
	for id, v := range values {
		items[id] = v
	}
	c.mu.Lock()
	c.items = items
	c.loaded = true
	c.mu.Unlock()
}

func (c *MemoryCache[V]) Clear(_ context.Context) {
	c.mu.Lock()
	c.items = make(map[uint]*V)
	c.loaded = false
	c.mu.Unlock()
}

// RedisCache stores values as JSON fields of one redis hash so several
// service instances share the vocabulary
type RedisCache[V any] struct {
	name      string
	rc        *redis.Client
	key       string
	loadedKey string
	log       *logger.Logger
}

// NewRedisCache creates a cache backed by the hash <prefix><name>
func NewRedisCache[V any](rc *redis.Client, prefix, name string, log *logger.Logger) *RedisCache[V] {
	key := prefix + name
	return &RedisCache[V]{
		name:      name,
		rc:        rc,
		key:       key,
		loadedKey: key + ":loaded",
		log:       log.With("cache", name),
	}
}

func (c *RedisCache[V]) Get(ctx context.Context, id uint) (*V, bool) {
	raw, err := c.rc.HGet(ctx, c.key, field(id)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.log.Warn("redis cache read failed", "error", err)
		}
		recordLookup(c.name, false)
		return nil, false
	}
	var v V
	if err := json.Unmarshal(raw, &v); err != nil {
		c.log.Warn("redis cache entry corrupt", "id", id, "error", err)
		recordLookup(c.name, false)
		return nil, false
	}
	recordLookup(c.name, true)
	return &v, true
}

func (c *RedisCache[V]) Set(ctx context.Context, id uint, v *V) {
	raw, err := json.Marshal(v)
	if err != nil {
		c.log.Warn("redis cache encode failed", "id", id, "error", err)
		return
	}
	if err := c.rc.HSet(ctx, c.key, field(id), raw).Err(); err != nil {
		c.log.Warn("redis cache write failed", "id", id, "error", err)
	}
}

func (c *RedisCache[V]) Delete(ctx context.Context, id uint) {
	if err := c.rc.HDel(ctx, c.key, field(id)).Err(); err != nil {
		c.log.Warn("redis cache delete failed", "id", id, "error", err)
	}
}

func (c *RedisCache[V]) All(ctx context.Context) ([]*V, bool) {
	loaded, err := c.rc.Exists(ctx, c.loadedKey).Result()
	if err != nil || loaded == 0 {
		if err != nil {
			c.log.Warn("redis cache read failed", "error", err)
		}
		recordLookup(c.name, false)
		return nil, false
	}
	fields, err := c.rc.HGetAll(ctx, c.key).Result()
	if err != nil {
		c.log.Warn("redis cache read failed", "error", err)
		recordLookup(c.name, false)
		return nil, false
	}
	out := make([]*V, 0, len(fields))
	for f, raw := range fields {
		var v V
		if err := json.Unmarshal([]byte(raw), &v); err != nil {
			c.log.Warn("redis cache entry corrupt", "field", f, "error", err)
			recordLookup(c.name, false)
			return nil, false
		}
		out = append(out, &v)
	}
	recordLookup(c.name, true)
	return out, true
}

func (c *RedisCache[V]) Fill(ctx context.Context, values map[uint]*V) {
	fields := make(map[string]any, len(values))
	for id, v := range values {
		raw, err := json.Marshal(v)
		if err != nil {
			c.log.Warn("redis cache encode failed", "id", id, "error", err)
			return
		}
		fields[field(id)] = raw
	}
	_, err := c.rc.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Del(ctx, c.key)
		if len(fields) > 0 {
			p.HSet(ctx, c.key, fields)
		}
		p.Set(ctx, c.loadedKey, "1", 0)
		return nil
	})
	if err != nil {
		c.log.Warn("redis cache fill failed", "error", err)
	}
}

func (c *RedisCache[V]) Clear(ctx context.Context) {
	if err := c.rc.Del(ctx, c.key, c.loadedKey).Err(); err != nil {
		c.log.Warn("redis cache clear failed", "error", err)
	}
}

func field(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}

// NewCache returns a redis backed cache when rc is set, otherwise a memory cache
func NewCache[V any](rc *redis.Client, prefix, name string, log *logger.Logger) Cache[V] {
	if rc != nil {
		return NewRedisCache[V](rc, prefix, name, log)
	}
	return NewMemoryCache[V](name)
}

// CacheName builds a cache name from a base and a qualifier, e.g. "tags:area"
func CacheName(base, qualifier string) string {
	return fmt.Sprintf("%s:%s", base, qualifier)
}
