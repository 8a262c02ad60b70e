package cache

import (
	"context"
	"time"
)

type compositeCache struct {
	caches []Cache
}

var _ Cache = (*compositeCache)(nil)

// NewComposite returns a Cache that chains multiple caches together.
// GetContext checks caches in order and returns the first hit.
// SetContext and ExpireContext apply to all caches.
// Counters live in the last cache only, the tier shared by every process.
// At least one cache must be provided; panics if empty.
func NewComposite(caches ...Cache) Cache {
	if len(caches) == 0 {
		panic("cache: NewComposite requires at least one cache")
	}
	return &compositeCache{caches: caches}
}

func (c *compositeCache) GetContext(ctx context.Context, key string) (bool, any, error) {
	for _, cache := range c.caches {
		found, val, err := cache.GetContext(ctx, key)
		if err != nil {
			return false, nil, err
		}
		if found {
			return true, val, nil
		}
	}
	return false, nil, nil
}

func (c *compositeCache) SetContext(ctx context.Context, key string, val any, expires time.Duration) error {
	var firstErr error
	for _, cache := range c.caches {
		if err := cache.SetContext(ctx, key, val, expires); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (c *compositeCache) ExpireContext(ctx context.Context, key string) (bool, error) {
	anyFound := false
	for _, cache := range c.caches {
		found, err := cache.ExpireContext(ctx, key)
		if err != nil {
			return anyFound, err
		}
		if found {
			anyFound = true
		}
	}
	return anyFound, nil
}

func (c *compositeCache) IncrContext(ctx context.Context, key string, delta int64) (int64, error) {
	return c.caches[len(c.caches)-1].IncrContext(ctx, key, delta)
}

func (c *compositeCache) CloseContext(ctx context.Context) error {
	var firstErr error
	for _, cache := range c.caches {
		if err := cache.CloseContext(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
