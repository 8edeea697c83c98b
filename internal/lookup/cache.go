package lookup

import (
	"container/list"
	"context"
	"errors"
	"sync"
	"time"

	"hideseek/internal/logger"
	"hideseek/internal/metrics"

	"github.com/redis/go-redis/v9"
)

// Cache：按字符串键缓存序列化后的查询结果
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, val []byte)
}

// 文档注释：本地 LRU 缓存（带 TTL）
// 背景：同一局游戏内同一问题会被反复折叠，缓存查询结果避免重复访问数据源。
// 约束：容量与 TTL 由调用方给定；过期项在读取时惰性淘汰。
type LRU[V any] struct {
	mu   sync.Mutex
	cap  int
	ttl  time.Duration
	lst  *list.List
	dict map[string]*list.Element
	now  func() time.Time
}

type entry[V any] struct {
	k   string
	v   V
	exp time.Time
}

func NewLRU[V any](capacity int, ttl time.Duration) *LRU[V] {
	if capacity <= 0 {
		capacity = 1
	}
	return &LRU[V]{cap: capacity, ttl: ttl, lst: list.New(), dict: make(map[string]*list.Element), now: time.Now}
}

func (c *LRU[V]) Get(k string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var zero V
	e, ok := c.dict[k]
	if !ok {
		return zero, false
	}
	it := e.Value.(entry[V])
	if c.now().Before(it.exp) {
		c.lst.MoveToFront(e)
		return it.v, true
	}
	c.lst.Remove(e)
	delete(c.dict, k)
	return zero, false
}

func (c *LRU[V]) Set(k string, v V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	it := entry[V]{k: k, v: v, exp: c.now().Add(c.ttl)}
	if e, ok := c.dict[k]; ok {
		e.Value = it
		c.lst.MoveToFront(e)
		return
	}
	c.dict[k] = c.lst.PushFront(it)
	for c.lst.Len() > c.cap {
		back := c.lst.Back()
		delete(c.dict, back.Value.(entry[V]).k)
		c.lst.Remove(back)
	}
}

func (c *LRU[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lst.Len()
}

// MemoryCache：进程内缓存层
type MemoryCache struct {
	lru *LRU[[]byte]
}

func NewMemoryCache(capacity int, ttl time.Duration) *MemoryCache {
	return &MemoryCache{lru: NewLRU[[]byte](capacity, ttl)}
}

func (m *MemoryCache) Get(_ context.Context, key string) ([]byte, bool) {
	v, ok := m.lru.Get(key)
	if ok {
		metrics.LookupCacheHitsTotal.WithLabelValues("memory").Inc()
	} else {
		metrics.LookupCacheMissesTotal.WithLabelValues("memory").Inc()
	}
	return v, ok
}

func (m *MemoryCache) Set(_ context.Context, key string, val []byte) { m.lru.Set(key, val) }

// 文档注释：Redis 缓存层
// 背景：多实例部署时共享查询结果；Redis 不可用时只记录日志，不影响主流程。
// 约束：键统一加前缀；client 为 nil 时等价于始终未命中。
type RedisCache struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
}

func NewRedisCache(rdb *redis.Client, prefix string, ttl time.Duration) *RedisCache {
	return &RedisCache{rdb: rdb, prefix: prefix, ttl: ttl}
}

func (r *RedisCache) Get(ctx context.Context, key string) ([]byte, bool) {
	if r == nil || r.rdb == nil {
		return nil, false
	}
	b, err := r.rdb.Get(ctx, r.prefix+key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			logger.L().Warn("lookup_redis_get_error", "key", key, "err", err)
		}
		metrics.LookupCacheMissesTotal.WithLabelValues("redis").Inc()
		return nil, false
	}
	metrics.LookupCacheHitsTotal.WithLabelValues("redis").Inc()
	return b, true
}

func (r *RedisCache) Set(ctx context.Context, key string, val []byte) {
	if r == nil || r.rdb == nil {
		return
	}
	if err := r.rdb.Set(ctx, r.prefix+key, val, r.ttl).Err(); err != nil {
		logger.L().Warn("lookup_redis_set_error", "key", key, "err", err)
	}
}

// Chain：按顺序查询多层缓存，命中后回填更靠前的层
type Chain []Cache

func (c Chain) Get(ctx context.Context, key string) ([]byte, bool) {
	for i, layer := range c {
		if v, ok := layer.Get(ctx, key); ok {
			for j := 0; j < i; j++ {
				c[j].Set(ctx, key, v)
			}
			return v, true
		}
	}
	return nil, false
}

func (c Chain) Set(ctx context.Context, key string, val []byte) {
	for _, layer := range c {
		layer.Set(ctx, key, val)
	}
}
