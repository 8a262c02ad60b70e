package redissource

import (
	"context"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/agentuity/go-paging/cache"
	"github.com/agentuity/go-paging/paging"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T, n int) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
	t.Cleanup(func() { client.Close() })
	for i := range n {
		_, err := mr.ZAdd("idx", float64(i), fmt.Sprintf("m%02d", i))
		require.NoError(t, err)
	}
	return mr, client
}

func TestCount(t *testing.T) {
	ctx := context.Background()
	_, client := newTestRedis(t, 20)
	src := New(client, "idx")

	n, err := src.Count(ctx, paging.All())
	require.NoError(t, err)
	assert.Equal(t, 20, n)

	n, err = src.Count(ctx, paging.Window{Offset: 15, Count: 10})
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	n, err = New(client, "missing").Count(ctx, paging.All())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestItems(t *testing.T) {
	ctx := context.Background()
	_, client := newTestRedis(t, 20)
	src := New(client, "idx")

	items, err := src.Items(ctx, paging.Window{Offset: 2, Count: 3})
	require.NoError(t, err)
	assert.Equal(t, []string{"m02", "m03", "m04"}, items)

	items, err = src.Items(ctx, paging.Window{Offset: 18, Count: paging.NoLimit})
	require.NoError(t, err)
	assert.Equal(t, []string{"m18", "m19"}, items)

	items, err = src.Items(ctx, paging.Window{Offset: 17, Count: math.MaxInt})
	require.NoError(t, err)
	assert.Equal(t, []string{"m17", "m18", "m19"}, items)

	n, err := src.Count(ctx, paging.Window{Offset: 17, Count: math.MaxInt})
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	items, err = src.Items(ctx, paging.Window{Count: 0})
	require.NoError(t, err)
	assert.Empty(t, items)

	items, err = New(client, "idx", WithDescending()).Items(ctx, paging.Window{Count: 2})
	require.NoError(t, err)
	assert.Equal(t, []string{"m19", "m18"}, items)
}

func TestStalenessAndKeys(t *testing.T) {
	_, client := newTestRedis(t, 0)
	asc := New(client, "idx")
	desc := New(client, "idx", WithDescending(), WithStaleness(0.2))
	assert.Equal(t, DefaultStaleness, asc.StalenessChance())
	assert.Equal(t, 0.2, desc.StalenessChance())

	a, err := asc.CacheKeyBase()
	require.NoError(t, err)
	d, err := desc.CacheKeyBase()
	require.NoError(t, err)
	assert.NotEqual(t, a, d)

	ga, err := asc.GenerationKey()
	require.NoError(t, err)
	gd, err := desc.GenerationKey()
	require.NoError(t, err)
	assert.Equal(t, ga, gd)
}

func TestPagingCompensatesDeletedRecords(t *testing.T) {
	ctx := context.Background()
	_, client := newTestRedis(t, 20)
	deleted := map[string]bool{"m01": true, "m03": true}

	p := paging.New[string, string](New(client, "idx"), func(_ context.Context, member string) (paging.Outcome[string], error) {
		if deleted[member] {
			return paging.Gone[string](), nil
		}
		return paging.Item(member), nil
	})
	require.NoError(t, p.SetPage(ctx, 1, 5))
	items, err := p.Items(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"m00", "m02", "m04", "m05", "m06"}, items)

	slots, err := p.ItemsWithGaps(ctx)
	require.NoError(t, err)
	assert.False(t, slots[1].Valid())
	assert.False(t, slots[3].Valid())
}

func TestCachedOrderingsShareGeneration(t *testing.T) {
	ctx := context.Background()
	mr, client := newTestRedis(t, 3)
	c := cache.NewRedis(client, cache.WithPrefix("paging"))

	asc := paging.Of[string](New(client, "idx"))
	desc := paging.Of[string](New(client, "idx", WithDescending()))
	require.NoError(t, asc.EnableCache(c, time.Minute))
	require.NoError(t, desc.EnableCache(c, time.Minute))

	items, err := desc.Items(ctx, paging.Limit(1))
	require.NoError(t, err)
	assert.Equal(t, []string{"m02"}, items)

	_, err = mr.ZAdd("idx", 99, "m99")
	require.NoError(t, err)
	items, err = desc.Items(ctx, paging.Limit(1))
	require.NoError(t, err)
	assert.Equal(t, []string{"m02"}, items)

	require.NoError(t, asc.Change(ctx))
	items, err = desc.Items(ctx, paging.Limit(1))
	require.NoError(t, err)
	assert.Equal(t, []string{"m99"}, items)
}
