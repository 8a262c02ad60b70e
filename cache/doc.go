// Package cache provides the response cache used by the paging engine: a
// unified interface with several backends and type-safe generic helpers.
//
// # Cache Interface
//
// The [Cache] interface defines five operations: [Cache.GetContext],
// [Cache.SetContext], [Cache.ExpireContext], [Cache.IncrContext] and
// [Cache.CloseContext]. Values are stored under opaque string keys; counters
// are a separate namespace used for generation numbers.
//
// The interface uses [any] for values rather than generics because Go does
// not allow generic methods on interfaces. Type safety is provided by the
// package-level generic functions [GetContext] and [Exec].
//
// # Implementations
//
//   - [NewInMemory]: In-process map guarded by a mutex. Values are stored
//     as-is (no copying). Expired entries are cleaned up by a background
//     goroutine at a configurable interval.
//
//   - [NewSQLite]: Backed by SQLite using [modernc.org/sqlite] (pure Go,
//     no CGO). Values are serialized to msgpack and stored as BLOBs; counters
//     live in their own table and are updated with a single upsert.
//
//   - [NewRedis]: Backed by Redis using [github.com/redis/go-redis/v9].
//     Values are serialized to msgpack and stored with native TTL. Counters
//     use INCRBY under a "ctr:" key namespace, so every process sharing the
//     Redis instance sees the same generation. The caller owns the
//     [redis.Client] lifecycle.
//
//   - [NewComposite]: Chains multiple caches. Reads return the first hit,
//     writes and expiry apply to all layers, counters use the last layer.
//
// # Generations
//
// Paging engines never delete cached windows. Each cache key includes a
// generation read from a counter; bumping the counter makes every older
// entry unreachable and lets the TTL reclaim it:
//
//	gen, _ := c.IncrContext(ctx, "sql:abcd:generation", 0) // read
//	_, _ = c.IncrContext(ctx, "sql:abcd:generation", 1)    // invalidate
//
// # Cache-aside
//
// [Exec] combines lookup and population:
//
//	found, rows, err := cache.Exec(ctx, cache.CacheConfig{Key: key}, c,
//	    func(ctx context.Context) ([]paging.Row, bool, error) {
//	        rows, err := source.Items(ctx, window)
//	        return rows, true, err
//	    },
//	)
//
// Concurrent misses on the same key share one invocation through
// [golang.org/x/sync/singleflight]. Read and invoke errors propagate; a
// failed write after a successful invoke is swallowed.
//
// # Serialization
//
// The SQLite and Redis backends serialize values using msgpack
// ([github.com/vmihailenco/msgpack/v5]). Struct fields must be exported to
// survive a round trip. Numbers held in [any] come back as the smallest
// msgpack integer type, so consumers of untyped rows must accept any
// numeric kind.
package cache
