package paging

import (
	"context"

	"github.com/cockroachdb/errors"
)

type groupOptions struct {
	name string
}

// GroupOption configures a GroupSource.
type GroupOption func(*groupOptions)

// WithGroupName names the grouping. A named grouping over a cacheable engine
// is itself cacheable; the name must identify the key function.
func WithGroupName(name string) GroupOption {
	return func(o *groupOptions) { o.name = name }
}

// GroupSource is a derived Source that groups the items of another engine by
// key. Each raw item it yields is the member list of one group, groups in
// order of first occurrence. A window with Flatten set cuts every list to its
// first member, the group's representative.
//
// Counting and reading both traverse the whole inner collection.
type GroupSource[R, T any, K comparable] struct {
	inner *Paging[R, T]
	key   func(T) K
	name  string
}

var _ Source[[]int] = (*GroupSource[int, int, int])(nil)

func NewGroupSource[R, T any, K comparable](inner *Paging[R, T], key func(T) K, opts ...GroupOption) *GroupSource[R, T, K] {
	var o groupOptions
	for _, opt := range opts {
		opt(&o)
	}
	return &GroupSource[R, T, K]{inner: inner, key: key, name: o.name}
}

func (g *GroupSource[R, T, K]) groups(ctx context.Context) ([][]T, error) {
	items, err := g.inner.unpagedItems(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "group source")
	}
	index := make(map[K]int)
	var groups [][]T
	for _, item := range items {
		k := g.key(item)
		i, ok := index[k]
		if !ok {
			i = len(groups)
			index[k] = i
			groups = append(groups, nil)
		}
		groups[i] = append(groups[i], item)
	}
	return groups, nil
}

func (g *GroupSource[R, T, K]) Count(ctx context.Context, w Window) (int, error) {
	groups, err := g.groups(ctx)
	if err != nil {
		return 0, err
	}
	start, end := w.Clip(len(groups))
	return end - start, nil
}

func (g *GroupSource[R, T, K]) Items(ctx context.Context, w Window) ([][]T, error) {
	groups, err := g.groups(ctx)
	if err != nil {
		return nil, err
	}
	start, end := w.Clip(len(groups))
	out := groups[start:end]
	if w.Flatten {
		for i, members := range out {
			out[i] = members[:1]
		}
	}
	return out, nil
}

func (g *GroupSource[R, T, K]) StalenessChance() float64 {
	if g.inner.source == nil {
		return 0
	}
	return g.inner.source.StalenessChance()
}

func (g *GroupSource[R, T, K]) CacheKeyBase() (string, error) {
	if g.name == "" {
		return "", notImplemented("unnamed group source has no stable cache key")
	}
	if g.inner.source == nil {
		return "", notImplemented("group source over an empty engine has no stable cache key")
	}
	base, err := g.inner.source.CacheKeyBase()
	if err != nil {
		return "", err
	}
	return base + "/group:" + g.name, nil
}

// GenerationKey follows the inner source, so a change to the grouped
// collection also retires cached groupings.
func (g *GroupSource[R, T, K]) GenerationKey() (string, error) {
	if g.inner.source == nil {
		return "", notImplemented("group source over an empty engine has no generation")
	}
	return sourceGenerationKey(g.inner.source)
}
