package igvf

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore adapts a redis client to the Store interface. This is the
// production backend for server-side caching; point it at Config.CacheURL.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore wraps an existing redis client.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// NewRedisStoreFromURL connects to the redis instance at the given URL,
// e.g. redis://localhost:6379/0.
func NewRedisStoreFromURL(rawURL string) (*RedisStore, error) {
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, err
	}
	return &RedisStore{client: redis.NewClient(opts)}, nil
}

func (rs *RedisStore) Get(ctx context.Context, key string) (string, bool, error) {
	value, err := rs.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

func (rs *RedisStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return rs.client.Set(ctx, key, value, ttl).Err()
}

func (rs *RedisStore) HGet(ctx context.Context, key, field string) (string, bool, error) {
	value, err := rs.client.HGet(ctx, key, field).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

func (rs *RedisStore) HSet(ctx context.Context, key, field, value string) error {
	return rs.client.HSet(ctx, key, field, value).Err()
}

func (rs *RedisStore) Expire(ctx context.Context, key string, ttl time.Duration) error {
	return rs.client.Expire(ctx, key, ttl).Err()
}
