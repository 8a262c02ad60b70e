package paging

import (
	"context"
	"strings"
	"testing"

	"github.com/agentuity/go-paging/logger"
	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStaleSourceBackfill(t *testing.T) {
	ctx := context.Background()
	p := newStale()

	tests := []struct {
		name string
		opts []ItemsOption
		want []int
	}{
		{"tail", []ItemsOption{Offset(-10)}, []int{7, 8, 10, 11, 13, 14, 16, 17, 19, 20}},
		{"head", []ItemsOption{Offset(0), Limit(7)}, []int{1, 2, 4, 5, 7, 8, 10}},
		{"open ended", []ItemsOption{Offset(10)}, []int{10, 11, 13, 14, 16, 17, 19, 20}},
		{"short tail", []ItemsOption{Offset(-6)}, []int{13, 14, 16, 17, 19, 20}},
		{"tail longer than the collection", []ItemsOption{Offset(-30)}, []int{1, 2, 4, 5, 7, 8, 10, 11, 13, 14, 16, 17, 19, 20}},
		{"tail almost the whole collection", []ItemsOption{Offset(-17)}, []int{1, 2, 4, 5, 7, 8, 10, 11, 13, 14, 16, 17, 19, 20}},
		{"window running out", []ItemsOption{Offset(15), Limit(5)}, []int{16, 17, 19, 20}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items, err := p.Items(ctx, tt.opts...)
			require.NoError(t, err)
			assert.Equal(t, tt.want, items)
		})
	}
}

func TestStaleSourcePaged(t *testing.T) {
	ctx := context.Background()
	p := newStale()
	require.NoError(t, p.SetPage(ctx, 1, 10))
	items, err := p.Items(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 4, 5, 7, 8, 10, 11, 13, 14}, items)
}

func TestStaleSourceKeepGaps(t *testing.T) {
	ctx := context.Background()
	p := newStale()
	require.NoError(t, p.SetPage(ctx, 1, 10))
	slots, err := p.ItemsWithGaps(ctx)
	require.NoError(t, err)
	want := []Slot[int]{Null[int](), Some(1), Some(2), Null[int](), Some(4), Some(5), Null[int](), Some(7), Some(8), Null[int]()}
	assert.Equal(t, want, slots)
}

func TestStaleSourceBackfillIsLogged(t *testing.T) {
	log := logger.NewTestLogger()
	p := newStale(WithLogger(log))
	_, err := p.Items(context.Background(), Limit(5))
	require.NoError(t, err)
	assert.True(t, log.Has("DEBUG", "backfilled window [%d,+%d) in %d round(s), %d item(s)"))
}

func TestInconsistentSource(t *testing.T) {
	log := logger.NewTestLogger()
	p := New[int, int](NewArraySource(ints(0, 20)), goneMultiplesOf3, WithLogger(log), WithName("Numbers"))

	_, err := p.Items(context.Background(), Limit(5))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInconsistentSource))
	assert.Contains(t, err.Error(), "Numbers")
	assert.True(t, log.Has("ERROR", "source promises consistency but %d of %d item(s) are gone"))

	_, err = p.ItemsWithGaps(context.Background())
	assert.True(t, errors.Is(err, ErrInconsistentSource))
}

func TestTransformErrorPropagates(t *testing.T) {
	boom := errors.New("boom")
	p := New[int, int](NewArraySource(ints(0, 3)), func(_ context.Context, raw int) (Outcome[int], error) {
		if raw == 2 {
			return Outcome[int]{}, boom
		}
		return Item(raw), nil
	})
	_, err := p.Items(context.Background())
	assert.True(t, errors.Is(err, boom))
}

func TestExclude(t *testing.T) {
	ctx := context.Background()
	p := newInts(0, 10)
	p.Exclude(1)
	p.Exclude(3, 5)
	require.NoError(t, p.SetPage(ctx, 1, 20))
	items, err := p.Items(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 2, 4, 6, 7, 8, 9, 10}, items)
}

type tag struct {
	Name string
}

func (t tag) Equal(other tag) bool {
	return strings.EqualFold(t.Name, other.Name)
}

func TestExcludeEquality(t *testing.T) {
	ctx := context.Background()
	tags := Of[tag](NewArraySource([]tag{{"Go"}, {"rust"}, {"ZIG"}}))
	tags.Exclude(tag{"go"})
	items, err := tags.Items(ctx)
	require.NoError(t, err)
	assert.Equal(t, []tag{{"rust"}, {"ZIG"}}, items)

	tags.SetEqual(func(a, b tag) bool { return a.Name == b.Name })
	items, err = tags.Items(ctx)
	require.NoError(t, err)
	assert.Equal(t, []tag{{"rust"}, {"ZIG"}}, items)
}

type label struct {
	Name string
}

func TestExcludeCustomEqual(t *testing.T) {
	ctx := context.Background()
	labels := Of[label](NewArraySource([]label{{"Go"}, {"rust"}, {"ZIG"}}))
	labels.Exclude(label{"zig"})
	items, err := labels.Items(ctx)
	require.NoError(t, err)
	assert.Len(t, items, 3)

	labels.SetEqual(func(a, b label) bool { return strings.EqualFold(a.Name, b.Name) })
	items, err = labels.Items(ctx)
	require.NoError(t, err)
	assert.Equal(t, []label{{"Go"}, {"rust"}}, items)
}

func TestFilterOrderAndNulls(t *testing.T) {
	ctx := context.Background()
	p := newStale()
	var seen []Slot[int]
	p.Filter(func(s Slot[int]) bool {
		seen = append(seen, s)
		return true
	})
	p.Filter(func(s Slot[int]) bool {
		v, ok := s.Get()
		return !ok || v%2 == 0
	})

	slots, err := p.ItemsWithGaps(ctx, Limit(6))
	require.NoError(t, err)
	assert.Equal(t, []Slot[int]{Null[int](), Some(2), Null[int](), Some(4)}, slots)
	assert.Len(t, seen, 6)
	assert.False(t, seen[0].Valid())

	p.Filter(func(s Slot[int]) bool { return s.Valid() })
	slots, err = p.ItemsWithGaps(ctx, Limit(6))
	require.NoError(t, err)
	assert.Equal(t, []Slot[int]{Some(2), Some(4)}, slots)
}

func TestExcludeNeverRemovesNulls(t *testing.T) {
	p := newStale()
	p.Exclude(0)
	slots, err := p.ItemsWithGaps(context.Background(), Limit(3))
	require.NoError(t, err)
	assert.Equal(t, []Slot[int]{Null[int](), Some(1), Some(2)}, slots)
}

func TestItemsRaw(t *testing.T) {
	p := New[int, string](NewArraySource(ints(1, 5)), Map(func(i int) string { return strings.Repeat("x", i) }))
	raw, err := p.ItemsRaw(context.Background(), Offset(-2))
	require.NoError(t, err)
	assert.Equal(t, []int{4, 5}, raw)
	items, err := p.Items(context.Background(), Offset(-2))
	require.NoError(t, err)
	assert.Equal(t, []string{"xxxx", "xxxxx"}, items)
}

func TestItem(t *testing.T) {
	ctx := context.Background()
	p := newInts(10, 19)

	tests := []struct {
		index int
		want  int
		ok    bool
	}{
		{0, 10, true},
		{9, 19, true},
		{-1, 19, true},
		{-10, 10, true},
		{10, 0, false},
		{-11, 0, false},
	}
	for _, tt := range tests {
		v, ok, err := p.Item(ctx, tt.index)
		require.NoError(t, err)
		assert.Equal(t, tt.ok, ok, "index %d", tt.index)
		assert.Equal(t, tt.want, v, "index %d", tt.index)
	}
}

func TestItemOnPage(t *testing.T) {
	ctx := context.Background()
	p := newInts(0, 20)
	require.NoError(t, p.SetPage(ctx, 2, 5))
	v, ok, err := p.Item(ctx, 0)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 5, v)
	v, ok, err = p.Item(ctx, -1)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 9, v)
	_, ok, err = p.Item(ctx, 5)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestItemGoneIsAbsent(t *testing.T) {
	ctx := context.Background()
	p := newStale()
	_, ok, err := p.Item(ctx, 3)
	require.NoError(t, err)
	assert.False(t, ok)
	v, ok, err := p.Item(ctx, 4)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 4, v)
}

func TestAll(t *testing.T) {
	ctx := context.Background()
	p := newStale(WithBatchSize(4))
	var got []int
	for v, err := range p.All(ctx) {
		require.NoError(t, err)
		got = append(got, v)
	}
	assert.Equal(t, []int{1, 2, 4, 5, 7, 8, 10, 11, 13, 14, 16, 17, 19, 20}, got)
}

func TestAllPaged(t *testing.T) {
	ctx := context.Background()
	p := newInts(1, 30)
	require.NoError(t, p.SetPage(ctx, 3, 10))
	var got []int
	for v, err := range p.All(ctx) {
		require.NoError(t, err)
		got = append(got, v)
	}
	assert.Equal(t, ints(21, 30), got)
}

func TestAllStopsOnChange(t *testing.T) {
	ctx := context.Background()
	p := newInts(1, 50)
	p.batchSize = 10
	var got []int
	for v, err := range p.All(ctx) {
		require.NoError(t, err)
		got = append(got, v)
		if v == 3 {
			require.NoError(t, p.Change(ctx))
		}
	}
	assert.Equal(t, []int{1, 2, 3}, got)
	assert.Equal(t, uint64(1), p.Version())
}

func TestAllPropagatesErrors(t *testing.T) {
	p := New[int, int](NewArraySource(ints(0, 5)), goneMultiplesOf3, WithLogger(logger.NewTestLogger()))
	var errs int
	for _, err := range p.All(context.Background()) {
		if err != nil {
			errs++
			assert.True(t, errors.Is(err, ErrInconsistentSource))
		}
	}
	assert.Equal(t, 1, errs)
}

func TestNewRequiresTransformer(t *testing.T) {
	assert.Panics(t, func() {
		New[int, int](NewArraySource(ints(0, 1)), nil)
	})
}
