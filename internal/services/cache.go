package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const (
	productListCacheKey   = "products:all"
	productCacheKeyPrefix = "products:"
)

func productCacheKey(id string) string {
	return productCacheKeyPrefix + id
}

// CatalogCache caches serialized catalog reads. Misses and failures are
// indistinguishable to callers: the database is always the source of truth.
type CatalogCache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte)
	Delete(ctx context.Context, keys ...string)
}

// NoopCache never stores anything
type NoopCache struct{}

func (NoopCache) Get(context.Context, string) ([]byte, bool) { return nil, false }
func (NoopCache) Set(context.Context, string, []byte)        {}
func (NoopCache) Delete(context.Context, ...string)          {}

// RedisCache is a CatalogCache backed by Redis
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
	logger logrus.FieldLogger
}

// NewRedisCache connects to the Redis server at redisURL
func NewRedisCache(ctx context.Context, redisURL string, ttl time.Duration, logger logrus.FieldLogger) (*RedisCache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, errors.Wrap(err, "invalid redis url")
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, errors.Wrap(err, "failed to connect to redis")
	}

	logger.WithField("addr", opts.Addr).Info("redis catalog cache connected")
	return &RedisCache{client: client, ttl: ttl, logger: logger}, nil
}

// Get implements CatalogCache
func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool) {
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.WithError(err).WithField("key", key).Warn("cache read failed")
		}
		return nil, false
	}
	return data, true
}

// Set implements CatalogCache
func (c *RedisCache) Set(ctx context.Context, key string, value []byte) {
	if err := c.client.Set(ctx, key, value, c.ttl).Err(); err != nil {
		c.logger.WithError(err).WithField("key", key).Warn("cache write failed")
	}
}

// Delete implements CatalogCache
func (c *RedisCache) Delete(ctx context.Context, keys ...string) {
	if len(keys) == 0 {
		return
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		c.logger.WithError(err).WithField("keys", keys).Warn("cache invalidation failed")
	}
}

// Close closes the Redis connection
func (c *RedisCache) Close() error {
	return c.client.Close()
}

// cacheJSON stores v under key, skipping values that fail to encode
func cacheJSON(ctx context.Context, cache CatalogCache, key string, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	cache.Set(ctx, key, data)
}

// cachedJSON decodes a cached value into v
func cachedJSON(ctx context.Context, cache CatalogCache, key string, v interface{}) bool {
	data, ok := cache.Get(ctx, key)
	if !ok {
		return false
	}
	return json.Unmarshal(data, v) == nil
}

// invalidateProducts drops the catalog list and the given products from the cache
func invalidateProducts(ctx context.Context, cache CatalogCache, productIDs ...string) {
	keys := []string{productListCacheKey}
	for _, id := range productIDs {
		keys = append(keys, productCacheKey(id))
	}
	cache.Delete(ctx, keys...)
}
