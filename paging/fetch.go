package paging

import (
	"context"
	"fmt"
	"strconv"

	"github.com/agentuity/go-paging/cache"
	"github.com/cespare/xxhash/v2"
	"github.com/cockroachdb/errors"
)

// GenerationKeyer is implemented by sources whose cached windows must be
// retired together with another address, such as a derived view of a source
// or an alternate ordering of the same collection.
type GenerationKeyer interface {
	GenerationKey() (string, error)
}

// sourceGenerationKey returns the counter key that versions src's cached
// windows.
func sourceGenerationKey[R any](src Source[R]) (string, error) {
	if g, ok := src.(GenerationKeyer); ok {
		return g.GenerationKey()
	}
	base, err := src.CacheKeyBase()
	if err != nil {
		return "", err
	}
	return base + ":generation", nil
}

func (p *Paging[R, T]) generationKey() string {
	if key, err := sourceGenerationKey(p.source); err == nil {
		return key
	}
	return p.cacheBase + ":generation"
}

// cacheKey addresses one fetch: source, kind, window and current generation.
func (p *Paging[R, T]) cacheKey(ctx context.Context, kind string, w Window) (string, error) {
	gen, err := p.cache.IncrContext(ctx, p.generationKey(), 0)
	if err != nil {
		return "", errors.Wrapf(err, "%s: read cache generation", p.name)
	}
	h := xxhash.New()
	fmt.Fprintf(h, "%s|%s|%d|%d|%t|%d", p.cacheBase, kind, w.Offset, w.Count, w.Flatten, gen)
	return "paging:" + strconv.FormatUint(h.Sum64(), 16), nil
}

func (p *Paging[R, T]) fetchItems(ctx context.Context, w Window) ([]R, error) {
	if p.cache == nil {
		items, err := p.source.Items(ctx, w)
		if err != nil {
			return nil, errors.Wrapf(err, "%s: fetch items [%d,+%d)", p.name, w.Offset, w.Count)
		}
		return items, nil
	}
	key, err := p.cacheKey(ctx, "items", w)
	if err != nil {
		return nil, err
	}
	fetched := false
	_, items, err := cache.Exec(ctx, cache.CacheConfig{Key: key, Expires: p.cacheTTL}, p.cache,
		func(ctx context.Context) ([]R, bool, error) {
			fetched = true
			items, err := p.source.Items(ctx, w)
			return items, true, err
		})
	if err != nil {
		return nil, errors.Wrapf(err, "%s: fetch items [%d,+%d)", p.name, w.Offset, w.Count)
	}
	if !fetched {
		p.log.Trace("cache hit for items [%d,+%d)", w.Offset, w.Count)
	}
	return items, nil
}

func (p *Paging[R, T]) fetchCount(ctx context.Context) (int, error) {
	w := All()
	if p.cache == nil {
		n, err := p.source.Count(ctx, w)
		if err != nil {
			return 0, errors.Wrapf(err, "%s: count", p.name)
		}
		return n, nil
	}
	key, err := p.cacheKey(ctx, "count", w)
	if err != nil {
		return 0, err
	}
	_, n, err := cache.Exec(ctx, cache.CacheConfig{Key: key, Expires: p.cacheTTL}, p.cache,
		func(ctx context.Context) (int, bool, error) {
			n, err := p.source.Count(ctx, w)
			return n, true, err
		})
	if err != nil {
		return 0, errors.Wrapf(err, "%s: count", p.name)
	}
	return n, nil
}
