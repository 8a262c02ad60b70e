package paging

import (
	"context"
	"math/rand/v2"
	"slices"
	"sync"

	"github.com/agentuity/go-paging/logger"
)

func ints(from, to int) []int {
	out := make([]int, 0, to-from+1)
	for i := from; i <= to; i++ {
		out = append(out, i)
	}
	return out
}

// goneMultiplesOf3 treats every multiple of 3 as deleted after it was counted.
func goneMultiplesOf3(_ context.Context, raw int) (Outcome[int], error) {
	if raw%3 == 0 {
		return Gone[int](), nil
	}
	return Item(raw), nil
}

func newStale(opts ...Option) *Paging[int, int] {
	src := NewStaleSource[int](NewArraySource(ints(0, 20)), 0.5)
	return New(src, goneMultiplesOf3, append([]Option{WithLogger(logger.NewTestLogger())}, opts...)...)
}

func newInts(from, to int) *Paging[int, int] {
	return Of[int](NewArraySource(ints(from, to)), WithLogger(logger.NewTestLogger()))
}

func seeded(seed uint64) Option {
	return WithRand(rand.New(rand.NewPCG(seed, seed)))
}

// memSource is a mutable, cacheable source that counts how often it is hit.
type memSource struct {
	mu      sync.Mutex
	base    string
	items   []string
	fetches int
	counts  int
}

var _ Source[string] = (*memSource)(nil)

func newMemSource(base string, items ...string) *memSource {
	return &memSource{base: base, items: items}
}

func (s *memSource) Count(_ context.Context, w Window) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counts++
	start, end := w.Clip(len(s.items))
	return end - start, nil
}

func (s *memSource) Items(_ context.Context, w Window) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fetches++
	start, end := w.Clip(len(s.items))
	return slices.Clone(s.items[start:end]), nil
}

func (s *memSource) StalenessChance() float64 {
	return 0
}

func (s *memSource) CacheKeyBase() (string, error) {
	return s.base, nil
}

func (s *memSource) add(item string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append(s.items, item)
}

func (s *memSource) hits() (fetches, counts int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fetches, s.counts
}
