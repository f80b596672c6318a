package rediscache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/keshon/radio-domme/internal/cache"
	"github.com/redis/go-redis/v9"
)

var _ cache.Cache = (*RedisCache)(nil)

// RedisCache is a Cache backed by a Redis server. Keys are namespaced
// with prefix.
type RedisCache struct {
	client *redis.Client
	prefix string
}

func CreateCache(opt *redis.Options, prefix string) *RedisCache {
	return &RedisCache{
		client: redis.NewClient(opt),
		prefix: prefix,
	}
}

func (rc *RedisCache) GetAndParse(ctx context.Context, key string, dst interface{}) error {
	res, err := rc.client.Get(ctx, rc.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return cache.ErrMiss
	}
	if err != nil {
		return err
	}

	if len(res) == 0 {
		return fmt.Errorf("redis key (%s)'s value len is 0", key)
	}
	return json.Unmarshal(res, dst)
}

func (rc *RedisCache) Set(ctx context.Context, key string, value interface{}) error {
	return rc.SetExp(ctx, key, value, 0)
}

func (rc *RedisCache) SetExp(ctx context.Context, key string, value interface{}, exp time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return rc.client.Set(ctx, rc.prefix+key, data, exp).Err()
}

func (rc *RedisCache) Ping(ctx context.Context) error {
	return rc.client.Ping(ctx).Err()
}

func (rc *RedisCache) Close() error {
	return rc.client.Close()
}
