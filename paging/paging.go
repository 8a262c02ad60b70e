package paging

import (
	"context"
	"math/rand/v2"
	"reflect"
	"time"

	"github.com/agentuity/go-paging/cache"
	"github.com/agentuity/go-paging/logger"
	"github.com/cockroachdb/errors"
)

// DefaultBatchSize is the fetch size used by All on an unpaged engine.
const DefaultBatchSize = 100

type options struct {
	name      string
	log       logger.Logger
	rand      *rand.Rand
	batchSize int
}

// Option configures a Paging engine.
type Option func(*options)

// WithName sets the name used in log lines and error messages. Defaults to "Paging".
func WithName(name string) Option {
	return func(o *options) { o.name = name }
}

// WithLogger sets the logger. Defaults to a console logger at PAGING_LOG_LEVEL.
func WithLogger(log logger.Logger) Option {
	return func(o *options) { o.log = log }
}

// WithRand sets the random generator used by RandomItem.
func WithRand(r *rand.Rand) Option {
	return func(o *options) { o.rand = r }
}

// WithBatchSize sets how many items All fetches at a time when unpaged.
func WithBatchSize(n int) Option {
	return func(o *options) { o.batchSize = n }
}

// Paging is a windowing engine over exactly one Source. It owns page state
// and a local post-processing pipeline (transform, exclusions, filters), and
// compensates for gaps on stale sources.
//
// A Paging is built per view and is not safe for concurrent use. Sources and
// caches it talks to are shared and must be.
type Paging[R, T any] struct {
	source    Source[R]
	transform Transformer[R, T]

	page     int
	pageSize int

	exclusions   []T
	equal        func(a, b T) bool
	filters      []func(Slot[T]) bool
	flattenItems bool

	cache     cache.Cache
	cacheTTL  time.Duration
	cacheBase string

	version   uint64
	name      string
	log       logger.Logger
	rand      *rand.Rand
	batchSize int
}

// New returns an engine over source. A nil source is an empty collection.
func New[R, T any](source Source[R], transform Transformer[R, T], opts ...Option) *Paging[R, T] {
	o := options{name: "Paging", batchSize: DefaultBatchSize}
	for _, opt := range opts {
		opt(&o)
	}
	if o.log == nil {
		o.log = logger.NewConsoleLogger()
	}
	if o.rand == nil {
		o.rand = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	if o.batchSize <= 0 {
		o.batchSize = DefaultBatchSize
	}
	if transform == nil {
		panic("paging: New requires a transformer")
	}
	return &Paging[R, T]{
		source:       source,
		transform:    transform,
		page:         1,
		flattenItems: true,
		name:         o.name,
		log:          o.log.WithPrefix("[" + o.name + "]"),
		rand:         o.rand,
		batchSize:    o.batchSize,
	}
}

// Of returns an engine whose domain items are the raw items.
func Of[T any](source Source[T], opts ...Option) *Paging[T, T] {
	return New(source, Identity[T](), opts...)
}

func (p *Paging[R, T]) Name() string {
	return p.name
}

func (p *Paging[R, T]) Source() Source[R] {
	return p.source
}

// SetPage switches the engine to paged access. size must be positive; page
// is clamped into [1, max(1, PageCount)].
func (p *Paging[R, T]) SetPage(ctx context.Context, page, size int) error {
	if size <= 0 {
		return invalidArgument("%s: page size must be positive, got %d", p.name, size)
	}
	total, err := p.Count(ctx)
	if err != nil {
		return err
	}
	pages := pageCount(total, size)
	p.pageSize = size
	p.page = min(max(page, 1), max(pages, 1))
	return nil
}

// ClearPage returns the engine to unpaged access over the whole collection.
func (p *Paging[R, T]) ClearPage() {
	p.page = 1
	p.pageSize = 0
}

// Page returns the current page number, 1 when unpaged.
func (p *Paging[R, T]) Page() int {
	return p.page
}

// PageSize returns the page size and whether the engine is paged.
func (p *Paging[R, T]) PageSize() (int, bool) {
	return p.pageSize, p.pageSize > 0
}

// PageCount returns ceil(Count/size), 0 for an empty collection and 0 when
// the engine is unpaged.
func (p *Paging[R, T]) PageCount(ctx context.Context) (int, error) {
	if p.pageSize <= 0 {
		return 0, nil
	}
	total, err := p.Count(ctx)
	if err != nil {
		return 0, err
	}
	return pageCount(total, p.pageSize), nil
}

func pageCount(total, size int) int {
	return (total + size - 1) / size
}

// Exclude removes items equal to any of values from every result.
func (p *Paging[R, T]) Exclude(values ...T) {
	p.exclusions = append(p.exclusions, values...)
}

// SetEqual sets the equality used by Exclude for items that do not
// implement Equaler.
func (p *Paging[R, T]) SetEqual(fn func(a, b T) bool) {
	p.equal = fn
}

// Filter appends a predicate. Predicates run in registration order, see every
// slot including null placeholders, and drop the slot when they return false.
func (p *Paging[R, T]) Filter(fn func(Slot[T]) bool) {
	p.filters = append(p.filters, fn)
}

// SetFlattenItems controls whether grouped sources deliver only each group's
// representative. Defaults to true.
func (p *Paging[R, T]) SetFlattenItems(flatten bool) {
	p.flattenItems = flatten
}

func (p *Paging[R, T]) FlattenItems() bool {
	return p.flattenItems
}

// EnableCache routes fetches through c. It fails with ErrNotImplemented when
// the source has no stable cache key. ttl <= 0 uses the cache default.
func (p *Paging[R, T]) EnableCache(c cache.Cache, ttl time.Duration) error {
	if p.source == nil {
		return nil
	}
	base, err := p.source.CacheKeyBase()
	if err != nil {
		return errors.Wrapf(err, "%s: cannot enable cache", p.name)
	}
	p.cache = c
	p.cacheTTL = ttl
	p.cacheBase = base
	return nil
}

func (p *Paging[R, T]) DisableCache() {
	p.cache = nil
	p.cacheBase = ""
}

func (p *Paging[R, T]) CacheEnabled() bool {
	return p.cache != nil
}

// Change must be called by every operation that alters the underlying
// collection, before it returns. It bumps the version, which ends running
// iterations and, with caching enabled, makes every cached window of this
// source unreachable for all engines sharing the cache.
func (p *Paging[R, T]) Change(ctx context.Context) error {
	p.version++
	if p.cache == nil {
		return nil
	}
	gen, err := p.cache.IncrContext(ctx, p.generationKey(), 1)
	if err != nil {
		return errors.Wrapf(err, "%s: bump cache generation", p.name)
	}
	p.log.Debug("collection changed, cache generation now %d", gen)
	return nil
}

// Version returns the number of Change calls made on this engine.
func (p *Paging[R, T]) Version() uint64 {
	return p.version
}

// Count returns the total number of items the source reports. Exclusions and
// filters are not taken into account.
func (p *Paging[R, T]) Count(ctx context.Context) (int, error) {
	if p.source == nil {
		return 0, nil
	}
	return p.fetchCount(ctx)
}

func (p *Paging[R, T]) IsEmpty(ctx context.Context) (bool, error) {
	n, err := p.Count(ctx)
	return n == 0, err
}

func (p *Paging[R, T]) equals(a, b T) bool {
	if eq, ok := any(a).(Equaler[T]); ok {
		return eq.Equal(b)
	}
	if p.equal != nil {
		return p.equal(a, b)
	}
	return reflect.DeepEqual(a, b)
}
