// Package redissource serves paging windows from a Redis sorted set.
package redissource

import (
	"context"
	"math"

	"github.com/agentuity/go-paging/paging"
	"github.com/cockroachdb/errors"
	"github.com/redis/go-redis/v9"
)

// DefaultStaleness reflects that index sets are maintained out of band, so a
// member may outlive the record it points to.
const DefaultStaleness = 0.01

type options struct {
	descending bool
	staleness  float64
}

// Option configures a Source.
type Option func(*options)

// WithDescending orders members from the highest score down.
func WithDescending() Option {
	return func(o *options) { o.descending = true }
}

// WithStaleness overrides DefaultStaleness.
func WithStaleness(chance float64) Option {
	return func(o *options) { o.staleness = min(max(chance, 0), 1) }
}

// Source is a paging.Source over the members of one sorted set, by rank.
type Source struct {
	client redis.Cmdable
	key    string
	opts   options
}

var (
	_ paging.Source[string]  = (*Source)(nil)
	_ paging.GenerationKeyer = (*Source)(nil)
)

func New(client redis.Cmdable, key string, opts ...Option) *Source {
	o := options{staleness: DefaultStaleness}
	for _, opt := range opts {
		opt(&o)
	}
	return &Source{client: client, key: key, opts: o}
}

func (s *Source) Count(ctx context.Context, w paging.Window) (int, error) {
	n, err := s.client.ZCard(ctx, s.key).Result()
	if err != nil {
		return 0, errors.Wrapf(err, "redissource: zcard %s", s.key)
	}
	start, end := w.Clip(int(n))
	return end - start, nil
}

func (s *Source) Items(ctx context.Context, w paging.Window) ([]string, error) {
	if w.Bounded() && w.Count == 0 {
		return []string{}, nil
	}
	start := int64(max(w.Offset, 0))
	stop := int64(-1)
	if w.Bounded() && int64(w.Count) <= math.MaxInt64-start {
		stop = start + int64(w.Count) - 1
	}
	var cmd *redis.StringSliceCmd
	if s.opts.descending {
		cmd = s.client.ZRevRange(ctx, s.key, start, stop)
	} else {
		cmd = s.client.ZRange(ctx, s.key, start, stop)
	}
	members, err := cmd.Result()
	if err != nil {
		return nil, errors.Wrapf(err, "redissource: range %s [%d,%d]", s.key, start, stop)
	}
	return members, nil
}

func (s *Source) StalenessChance() float64 {
	return s.opts.staleness
}

func (s *Source) CacheKeyBase() (string, error) {
	if s.opts.descending {
		return "redis:zset:" + s.key + ":desc", nil
	}
	return "redis:zset:" + s.key, nil
}

// GenerationKey is shared by both orderings, so a change seen through either
// retires the cached windows of both.
func (s *Source) GenerationKey() (string, error) {
	return "redis:zset:" + s.key + ":generation", nil
}
