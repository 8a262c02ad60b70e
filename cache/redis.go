package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/vmihailenco/msgpack/v5"
)

type redisCache struct {
	client *redis.Client
	cfg    config
}

var _ Cache = (*redisCache)(nil)

// NewRedis returns a new Cache backed by Redis.
// The caller owns the redis.Client lifecycle: CloseContext is a no-op on the client.
func NewRedis(client *redis.Client, opts ...Option) Cache {
	return &redisCache{
		client: client,
		cfg:    applyOptions(opts),
	}
}

func (c *redisCache) queryCtx(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, c.cfg.queryTimeout)
}

func (c *redisCache) prefixKey(key string) string {
	if c.cfg.prefix == "" {
		return key
	}
	return c.cfg.prefix + ":" + key
}

func (c *redisCache) GetContext(ctx context.Context, key string) (bool, any, error) {
	qctx, cancel := c.queryCtx(ctx)
	defer cancel()
	data, err := c.client.Get(qctx, c.prefixKey(key)).Bytes()
	if err == redis.Nil {
		return false, nil, nil
	}
	if err != nil {
		return false, nil, err
	}
	return true, data, nil
}

func (c *redisCache) SetContext(ctx context.Context, key string, val any, expires time.Duration) error {
	if expires <= 0 {
		expires = c.cfg.defaultExpires
	}
	data, err := msgpack.Marshal(val)
	if err != nil {
		return err
	}
	qctx, cancel := c.queryCtx(ctx)
	defer cancel()
	return c.client.Set(qctx, c.prefixKey(key), data, expires).Err()
}

func (c *redisCache) ExpireContext(ctx context.Context, key string) (bool, error) {
	qctx, cancel := c.queryCtx(ctx)
	defer cancel()
	result, err := c.client.Del(qctx, c.prefixKey(key)).Result()
	if err != nil {
		return false, err
	}
	return result > 0, nil
}

func (c *redisCache) IncrContext(ctx context.Context, key string, delta int64) (int64, error) {
	qctx, cancel := c.queryCtx(ctx)
	defer cancel()
	return c.client.IncrBy(qctx, c.prefixKey(counterPrefix+key), delta).Result()
}

// CloseContext is a no-op: the caller owns the redis.Client lifecycle.
func (c *redisCache) CloseContext(_ context.Context) error {
	return nil
}
