package paging

import (
	"context"
	"slices"

	"github.com/cockroachdb/errors"
)

// NoLimit as a Window count means "to the end of the collection".
const NoLimit = -1

// Window addresses a contiguous range of a source's logical ordering.
type Window struct {
	Offset int
	// Count is the maximum number of items, or NoLimit.
	Count int
	// Flatten asks grouped sources to reduce each group to its representative.
	Flatten bool
}

// All is the window covering the whole collection.
func All() Window {
	return Window{Count: NoLimit}
}

// Bounded reports whether the window has a fixed length.
func (w Window) Bounded() bool {
	return w.Count >= 0
}

// Clip restricts the window to a collection of n items.
func (w Window) Clip(n int) (start, end int) {
	start = min(max(w.Offset, 0), n)
	end = n
	if w.Bounded() && w.Count < end-start {
		end = start + w.Count
	}
	return start, end
}

// Source is an ordered data provider.
//
// Items never returns more than w.Count items and never items outside
// [w.Offset, w.Offset+w.Count) of the logical ordering; it returns fewer when
// the collection is exhausted. Count with an unbounded window reports the
// total; with a bounded window it reports the count inside that window.
type Source[R any] interface {
	Count(ctx context.Context, w Window) (int, error)
	Items(ctx context.Context, w Window) ([]R, error)
	// StalenessChance is 0 for strongly consistent sources. Anything above 0
	// means items counted a moment ago may be gone when transformed.
	StalenessChance() float64
	// CacheKeyBase returns a stable address for the source's content, or an
	// error marked ErrNotImplemented.
	CacheKeyBase() (string, error)
}

// ArraySource serves a fixed in-memory slice. It has no stable cache key.
type ArraySource[R any] struct {
	items []R
}

var _ Source[int] = (*ArraySource[int])(nil)

// NewArraySource returns a Source over items. The slice is not copied.
func NewArraySource[R any](items []R) *ArraySource[R] {
	return &ArraySource[R]{items: items}
}

func (s *ArraySource[R]) Count(_ context.Context, w Window) (int, error) {
	start, end := w.Clip(len(s.items))
	return end - start, nil
}

func (s *ArraySource[R]) Items(_ context.Context, w Window) ([]R, error) {
	start, end := w.Clip(len(s.items))
	return slices.Clone(s.items[start:end]), nil
}

func (s *ArraySource[R]) StalenessChance() float64 {
	return 0
}

func (s *ArraySource[R]) CacheKeyBase() (string, error) {
	return "", errors.Mark(errors.New("array source has no stable cache key"), ErrNotImplemented)
}

type staleSource[R any] struct {
	Source[R]
	chance float64
}

// NewStaleSource declares src as eventually consistent with the given chance,
// clamped to [0, 1]. Everything else is delegated.
func NewStaleSource[R any](src Source[R], chance float64) Source[R] {
	return &staleSource[R]{Source: src, chance: min(max(chance, 0), 1)}
}

func (s *staleSource[R]) StalenessChance() float64 {
	return s.chance
}
