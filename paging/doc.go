// Package paging provides a generic windowing engine over ordered data
// sources.
//
// # Sources
//
// A [Source] serves raw items by window and reports counts, a staleness
// chance and an optional stable cache address. [ArraySource] serves a slice,
// [GroupSource] derives a grouped view from another engine, and the
// sqlsource and redissource subpackages serve SQL result sets and Redis
// sorted sets.
//
// # Engine
//
// [Paging] owns exactly one source and turns raw items into domain items with
// a [Transformer]. A transformer reports a vanished item with [Gone] instead
// of failing:
//
//	users := paging.New(ids, func(ctx context.Context, id string) (paging.Outcome[User], error) {
//	    u, ok, err := store.Load(ctx, id)
//	    if err != nil || !ok {
//	        return paging.Gone[User](), err
//	    }
//	    return paging.Item(u), nil
//	})
//	_ = users.SetPage(ctx, 2, 20)
//	page, err := users.Items(ctx)
//
// Unpaged engines read windows selected with [Offset] and [Limit]. A negative
// offset counts from the end.
//
// # Staleness
//
// A source with a staleness chance of zero promises that every counted item
// still exists; a gone item then fails the read with [ErrInconsistentSource].
// Any other source may lose items between count and fetch. The engine then
// backfills the window from the following items (or the preceding ones for
// windows anchored at the end) until it is full, or keeps the positions as
// null slots with [Paging.ItemsWithGaps].
//
// # Caching
//
// [Paging.EnableCache] routes fetches through a cache.Cache. Keys combine the
// source's cache key base, the window and a generation counter stored in the
// cache itself. Code that mutates the collection calls [Paging.Change], which
// bumps the counter and retires every cached window of that source for all
// engines sharing the cache.
//
// A Paging is not safe for concurrent use. Sources and caches are.
package paging
