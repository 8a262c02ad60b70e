package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/vmihailenco/msgpack/v5"
	"golang.org/x/sync/singleflight"
)

// Cache is the response cache shared by paging engines. Values are opaque to the
// cache; counters live in their own namespace and never expire.
type Cache interface {
	// GetContext retrieves a value from the cache. The context controls
	// cancellation and timeout for I/O-backed implementations.
	GetContext(ctx context.Context, key string) (bool, any, error)

	// SetContext stores a value in the cache with a TTL. If expires <= 0,
	// the cache's configured default TTL is used.
	SetContext(ctx context.Context, key string, val any, expires time.Duration) error

	// ExpireContext removes a key from the cache.
	ExpireContext(ctx context.Context, key string) (bool, error)

	// IncrContext atomically adds delta to the counter stored at key and
	// returns the new value. A missing counter starts at zero, so a delta of
	// zero reads the counter.
	IncrContext(ctx context.Context, key string, delta int64) (int64, error)

	// CloseContext shuts down the cache.
	CloseContext(ctx context.Context) error
}

type value struct {
	object  any
	expires time.Time
}

// GetContext retrieves a typed value from the cache using the provided context.
// For in-memory caches, it performs a direct type assertion.
// For serialized caches (Redis, SQLite), it deserializes from []byte using msgpack.
func GetContext[T any](ctx context.Context, c Cache, key string) (bool, T, error) {
	found, val, err := c.GetContext(ctx, key)
	if !found || err != nil {
		var zero T
		return false, zero, err
	}
	if typed, ok := val.(T); ok {
		return true, typed, nil
	}
	if data, ok := val.([]byte); ok {
		var result T
		if err := msgpack.Unmarshal(data, &result); err != nil {
			var zero T
			return false, zero, fmt.Errorf("cache: failed to unmarshal value: %w", err)
		}
		return true, result, nil
	}
	var zero T
	return false, zero, fmt.Errorf("cache: cannot convert value of type %T to %T", val, zero)
}

// DefaultExpires is the default TTL used by Exec when CacheConfig.Expires is zero.
const DefaultExpires = 5 * time.Minute

// DefaultQueryTimeout is the per-operation timeout for cache backends that
// perform I/O (SQLite, Redis).
const DefaultQueryTimeout = 5 * time.Second

// counterPrefix namespaces counters away from cached values so a counter
// key can never collide with a value written by SetContext.
const counterPrefix = "ctr:"

type config struct {
	defaultExpires time.Duration
	queryTimeout   time.Duration
	expiryCheck    time.Duration
	prefix         string
}

// Option configures a Cache implementation.
type Option func(*config)

func defaultConfig() config {
	return config{
		defaultExpires: DefaultExpires,
		queryTimeout:   DefaultQueryTimeout,
		expiryCheck:    time.Minute,
	}
}

func applyOptions(opts []Option) config {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// WithExpires sets the default TTL for cached values. This is used when
// SetContext is called with expires <= 0. Defaults to DefaultExpires.
func WithExpires(d time.Duration) Option {
	return func(c *config) { c.defaultExpires = d }
}

// WithQueryTimeout sets the per-operation timeout for I/O-backed caches
// (SQLite, Redis). Defaults to DefaultQueryTimeout.
func WithQueryTimeout(d time.Duration) Option {
	return func(c *config) { c.queryTimeout = d }
}

// WithExpiryCheck sets the interval for background expired entry cleanup.
// Applies to InMemory and SQLite backends. Defaults to 1 minute.
func WithExpiryCheck(d time.Duration) Option {
	return func(c *config) { c.expiryCheck = d }
}

// WithPrefix sets the key prefix for namespacing cache keys.
// Applies to the Redis backend. Defaults to empty (no prefix).
func WithPrefix(p string) Option {
	return func(c *config) { c.prefix = p }
}

// CacheConfig configures the Exec helper.
type CacheConfig struct {
	// Expires is the TTL for cached values. Defaults to the cache's default if zero.
	Expires time.Duration
	// Key is the cache key. Required.
	Key string
}

// Invoker is a function that produces a value of type T.
// The bool return indicates whether a value was found. Return false to signal
// "not found" without caching a zero value.
type Invoker[T any] func(ctx context.Context) (T, bool, error)

var inflight singleflight.Group

type execResult[T any] struct {
	val   T
	found bool
}

// flightKey scopes in-flight deduplication to one cache instance.
func flightKey(c Cache, key string) string {
	return fmt.Sprintf("%p|%s", c, key)
}

// Exec is a cache-aside helper. It checks the cache for config.Key first.
// On a miss, concurrent callers asking the same cache for the same key share
// a single invocation of invoke. The shared invocation is detached from the
// cancellation of the caller that started it; a caller whose ctx ends while
// waiting returns ctx.Err() and the invocation completes for the others.
// A found result is stored and returned; a not-found result is returned
// without being cached. Read and invoke errors are propagated, a failed store
// is swallowed since the caller got its value.
func Exec[T any](ctx context.Context, config CacheConfig, c Cache, invoke Invoker[T]) (bool, T, error) {
	found, val, err := GetContext[T](ctx, c, config.Key)
	if err != nil {
		var zero T
		return false, zero, err
	}
	if found {
		return true, val, nil
	}

	ch := inflight.DoChan(flightKey(c, config.Key), func() (any, error) {
		fctx := context.WithoutCancel(ctx)
		result, ok, err := invoke(fctx)
		if err != nil {
			return nil, err
		}
		if ok {
			_ = c.SetContext(fctx, config.Key, result, config.Expires)
		}
		return execResult[T]{result, ok}, nil
	})
	var res singleflight.Result
	select {
	case <-ctx.Done():
		var zero T
		return false, zero, ctx.Err()
	case res = <-ch:
	}
	if res.Err != nil {
		var zero T
		return false, zero, res.Err
	}
	r, ok := res.Val.(execResult[T])
	if !ok {
		// another caller shared the key with a different value type
		var zero T
		return false, zero, fmt.Errorf("cache: key %q shared by incompatible callers", config.Key)
	}
	if !r.found {
		var zero T
		return false, zero, nil
	}
	return true, r.val, nil
}
