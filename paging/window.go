package paging

import "context"

type itemsConfig struct {
	offset    int
	limit     int
	hasOffset bool
	hasLimit  bool
}

// ItemsOption selects the window read by Items, ItemsWithGaps and ItemsRaw.
// Options are ignored while the engine is paged.
type ItemsOption func(*itemsConfig)

// Offset starts the window at n. A negative n counts from the end.
func Offset(n int) ItemsOption {
	return func(c *itemsConfig) {
		c.offset = n
		c.hasOffset = true
	}
}

// Limit caps the window at n items. n must not be negative.
func Limit(n int) ItemsOption {
	return func(c *itemsConfig) {
		c.limit = n
		c.hasLimit = true
	}
}

// span is a resolved window.
type span struct {
	offset int
	count  int // NoLimit reads to the end
	// tail is set when the caller anchored the window at the end with a
	// negative offset; backfill then grows toward the head.
	tail  bool
	total int // -1 when the total was not needed
}

func (s span) window(flatten bool) Window {
	return Window{Offset: s.offset, Count: s.count, Flatten: flatten}
}

// resolve turns caller options and page state into a concrete window. The
// total is only counted when needed.
func (p *Paging[R, T]) resolve(ctx context.Context, opts []ItemsOption) (span, error) {
	var cfg itemsConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.hasLimit && cfg.limit < 0 {
		return span{}, invalidArgument("%s: count must not be negative, got %d", p.name, cfg.limit)
	}
	if p.pageSize > 0 {
		return span{offset: (p.page - 1) * p.pageSize, count: p.pageSize, total: -1}, nil
	}

	s := span{count: NoLimit, total: -1}
	if cfg.hasOffset {
		s.offset = cfg.offset
	}
	if cfg.hasLimit {
		s.count = cfg.limit
	}
	if s.offset < 0 {
		total, err := p.Count(ctx)
		if err != nil {
			return span{}, err
		}
		s.total = total
		s.tail = true
		s.offset = max(0, total+s.offset)
	}
	if s.total >= 0 {
		remaining := max(0, s.total-s.offset)
		if s.count == NoLimit || s.count > remaining {
			s.count = remaining
		}
	}
	return s, nil
}
