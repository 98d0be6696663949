package igvf

import (
	"context"
	"encoding/json"
	"time"
)

// Store is the external key/value backend behind ServerCache. Implementations
// must be safe for concurrent use. A not-found lookup is reported through the
// boolean, not the error; errors mean the store itself misbehaved.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	HGet(ctx context.Context, key, field string) (string, bool, error)
	HSet(ctx context.Context, key, field, value string) error
	Expire(ctx context.Context, key string, ttl time.Duration) error
}

// ServerCache is a cache-aside layer over a Store. A failing or unreachable
// store never fails the caller; lookups degrade to misses and writes are
// dropped with a log line, so the data path keeps working without the cache.
type ServerCache struct {
	store   Store
	logger  Logger
	metrics *MetricsCollector
}

// CacheOption configures a ServerCache.
type CacheOption func(*ServerCache)

// WithCacheLogger sets the cache's logger.
func WithCacheLogger(logger Logger) CacheOption {
	return func(sc *ServerCache) {
		sc.logger = logger
	}
}

// WithCacheMetrics sets the cache's metrics collector.
func WithCacheMetrics(collector *MetricsCollector) CacheOption {
	return func(sc *ServerCache) {
		sc.metrics = collector
	}
}

// NewServerCache wraps a store in the cache-aside layer.
func NewServerCache(store Store, options ...CacheOption) *ServerCache {
	sc := &ServerCache{store: store}
	for _, option := range options {
		option(sc)
	}
	return sc
}

// Get returns the raw cached value for key, or empty and false on a miss.
// Store failures count as misses.
func (sc *ServerCache) Get(ctx context.Context, key string) (string, bool) {
	value, found, err := sc.store.Get(ctx, key)
	if err != nil {
		sc.storeUnavailable("get", key, err)
		return "", false
	}
	if !found {
		sc.metrics.RecordCacheMiss(key)
		return "", false
	}
	sc.metrics.RecordCacheHit(key)
	return value, true
}

// Set stores value under key for ttl. A store failure is logged and dropped.
func (sc *ServerCache) Set(ctx context.Context, key, value string, ttl time.Duration) {
	if err := sc.store.Set(ctx, key, value, ttl); err != nil {
		sc.storeUnavailable("set", key, err)
	}
}

// HGet returns the cached value for one field under a bucket key.
func (sc *ServerCache) HGet(ctx context.Context, key, field string) (string, bool) {
	value, found, err := sc.store.HGet(ctx, key, field)
	if err != nil {
		sc.storeUnavailable("hget", key, err)
		return "", false
	}
	if !found {
		sc.metrics.RecordCacheMiss(key)
		return "", false
	}
	sc.metrics.RecordCacheHit(key)
	return value, true
}

// HSet stores value for one field under a bucket key and refreshes the
// bucket's expiry. The TTL applies to the whole bucket, not the field.
func (sc *ServerCache) HSet(ctx context.Context, key, field, value string, ttl time.Duration) {
	if err := sc.store.HSet(ctx, key, field, value); err != nil {
		sc.storeUnavailable("hset", key, err)
		return
	}
	if err := sc.store.Expire(ctx, key, ttl); err != nil {
		sc.storeUnavailable("expire", key, err)
	}
}

func (sc *ServerCache) storeUnavailable(op, key string, err error) {
	sc.metrics.RecordCacheStoreError()
	if sc.logger != nil {
		sc.logger.Warn("cache store unavailable", "op", op, "key", key, "error", err.Error())
	}
}

// GetOrFetch returns the value cached under key, or runs producer and caches
// its JSON encoding for ttl. The producer's error passes through unchanged.
// A nil produced value is returned as-is but never cached, so transient
// absence upstream does not pin a negative entry. Concurrent callers with
// the same key may each run the producer; the last write wins.
func GetOrFetch[T any](ctx context.Context, sc *ServerCache, key string, ttl time.Duration, producer func(context.Context) (*T, error)) (*T, error) {
	if raw, ok := sc.Get(ctx, key); ok {
		var value T
		if err := json.Unmarshal([]byte(raw), &value); err == nil {
			return &value, nil
		}
		// Undecodable entries behave like misses and get overwritten below.
	}

	value, err := producer(ctx)
	if err != nil {
		return nil, err
	}
	if value == nil {
		return nil, nil
	}

	if raw, err := json.Marshal(value); err == nil {
		sc.Set(ctx, key, string(raw), ttl)
	} else if sc.logger != nil {
		sc.logger.Warn("unencodable cache value", "key", key, "error", err.Error())
	}
	return value, nil
}

// GetOrFetchField is GetOrFetch scoped to one field of a bucket key, for
// families of values that should expire together.
func GetOrFetchField[T any](ctx context.Context, sc *ServerCache, key, field string, ttl time.Duration, producer func(context.Context) (*T, error)) (*T, error) {
	if raw, ok := sc.HGet(ctx, key, field); ok {
		var value T
		if err := json.Unmarshal([]byte(raw), &value); err == nil {
			return &value, nil
		}
	}

	value, err := producer(ctx)
	if err != nil {
		return nil, err
	}
	if value == nil {
		return nil, nil
	}

	if raw, err := json.Marshal(value); err == nil {
		sc.HSet(ctx, key, field, string(raw), ttl)
	} else if sc.logger != nil {
		sc.logger.Warn("unencodable cache value", "key", key, "field", field, "error", err.Error())
	}
	return value, nil
}

// RetrieveCacheBackedData returns the object at path through the cache,
// fetching it with the client on a miss. A failed fetch yields nil data and
// a nil error; the failure already surfaced through the client's logging and
// metrics, and callers of this helper only care whether data is available.
func RetrieveCacheBackedData(ctx context.Context, client *Client, sc *ServerCache, key, path string, ttl time.Duration) (DataObject, error) {
	value, err := GetOrFetch(ctx, sc, key, ttl, func(ctx context.Context) (*DataObject, error) {
		return client.GetObject(ctx, path).Optional(), nil
	})
	if err != nil || value == nil {
		return nil, err
	}
	return *value, nil
}
