package paging

import (
	"context"
	"math"
	"strings"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func words() *Paging[string, string] {
	return Of[string](NewArraySource([]string{"apple", "avocado", "banana", "blueberry", "cherry", "apricot", "beet"}))
}

func initial(s string) string {
	return strings.ToLower(s[:1])
}

func TestGroupSourceCount(t *testing.T) {
	g := NewGroupSource(words(), initial)
	n, err := g.Count(context.Background(), All())
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	n, err = g.Count(context.Background(), Window{Offset: 1, Count: 5})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = g.Count(context.Background(), Window{Offset: 1, Count: math.MaxInt})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestGroupSourceFlattened(t *testing.T) {
	ctx := context.Background()
	p := New(Source[[]string](NewGroupSource(words(), initial)), First[string]())
	items, err := p.Items(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"apple", "banana", "cherry"}, items)

	n, err := p.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestGroupSourceMembers(t *testing.T) {
	ctx := context.Background()
	p := Of[[]string](NewGroupSource(words(), initial))
	p.SetFlattenItems(false)
	assert.False(t, p.FlattenItems())

	items, err := p.Items(ctx, Offset(-2))
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"banana", "blueberry", "beet"}, {"cherry"}}, items)

	p.SetFlattenItems(true)
	items, err = p.Items(ctx)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"apple"}, {"banana"}, {"cherry"}}, items)
}

func TestGroupSourceSingletons(t *testing.T) {
	ctx := context.Background()
	identity := func(i int) int { return i }

	flat := New(Source[[]int](NewGroupSource(newInts(0, 20), identity)), First[int]())
	v, ok, err := flat.Item(ctx, 10)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 10, v)

	full := Of[[]int](NewGroupSource(newInts(0, 20), identity))
	full.SetFlattenItems(false)
	list, ok, err := full.Item(ctx, 10)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []int{10}, list)
}

func TestGroupSourceSeesInnerPipeline(t *testing.T) {
	ctx := context.Background()
	inner := words()
	inner.Exclude("apple")
	require.NoError(t, inner.SetPage(ctx, 1, 2))

	p := New(Source[[]string](NewGroupSource(inner, initial)), First[string]())
	items, err := p.Items(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"avocado", "banana", "cherry"}, items)
}

func TestGroupSourceDelegatesStaleness(t *testing.T) {
	g := NewGroupSource(newStale(), func(i int) bool { return i%2 == 0 })
	assert.Equal(t, 0.5, g.StalenessChance())

	p := New(Source[[]int](g), First[int]())
	items, err := p.Items(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, items)
}

func TestGroupSourceCacheKeyBase(t *testing.T) {
	_, err := NewGroupSource(words(), initial).CacheKeyBase()
	assert.True(t, errors.Is(err, ErrNotImplemented))

	_, err = NewGroupSource(words(), initial, WithGroupName("initial")).CacheKeyBase()
	assert.True(t, errors.Is(err, ErrNotImplemented))

	inner := Of[string](newMemSource("mem:words", "x", "y"))
	base, err := NewGroupSource(inner, initial, WithGroupName("initial")).CacheKeyBase()
	require.NoError(t, err)
	assert.Equal(t, "mem:words/group:initial", base)
}
