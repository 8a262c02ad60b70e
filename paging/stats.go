package paging

import (
	"context"
	"fmt"
	"math"
	"strconv"

	"github.com/cockroachdb/errors"
)

// Row is the raw item shape of record-oriented sources.
type Row = map[string]any

// RandomItem returns a uniformly chosen item of the collection.
func (p *Paging[R, T]) RandomItem(ctx context.Context) (T, bool, error) {
	return p.RandomItemBiased(ctx, 0.5)
}

// RandomItemBiased returns a random item whose expected normalized index is
// meanBias. 0.5 is uniform, smaller values favour the head. The drawn index is
// round(u^(1/meanBias-1) * (N-1)) for a uniform u in [0,1), and
// E[u^k] = 1/(k+1) = meanBias.
//
// A gone item at the drawn index is compensated like any other window, so
// the result is absent only when the collection is empty or the tail of a
// stale source vanished.
func (p *Paging[R, T]) RandomItemBiased(ctx context.Context, meanBias float64) (T, bool, error) {
	var zero T
	if p.pageSize > 0 {
		return zero, false, markf(ErrInvalidUsage, "%s: random item on a paged view is ambiguous, clear the page first", p.name)
	}
	if meanBias <= 0 || math.IsNaN(meanBias) {
		return zero, false, invalidArgument("%s: normalized mean item index must be positive, got %v", p.name, meanBias)
	}
	if meanBias > 0.5 {
		return zero, false, notImplemented("%s: normalized mean item index cannot be greater than .5, got %v; reverse the source order instead", p.name, meanBias)
	}
	total, err := p.Count(ctx)
	if err != nil || total == 0 {
		return zero, false, err
	}
	index := 0
	if total > 1 {
		u := p.rand.Float64()
		index = int(math.Round(math.Pow(u, 1/meanBias-1) * float64(total-1)))
		index = min(max(index, 0), total-1)
	}
	slots, _, err := p.collect(ctx, span{offset: index, count: 1, total: total}, false)
	if err != nil || len(slots) == 0 {
		return zero, false, err
	}
	v, ok := slots[0].Get()
	return v, ok, nil
}

// ItemsEvenlyDistributed returns n items spread over the collection, always
// including the first and, for n >= 2, the last. Indices are
// round(i*(N-1)/(n-1)) and strictly increasing while n <= N. Gone items are
// skipped, not compensated.
func (p *Paging[R, T]) ItemsEvenlyDistributed(ctx context.Context, n int) ([]T, error) {
	if p.pageSize > 0 {
		return nil, markf(ErrInvalidUsage, "%s: evenly distributed items on a paged view are ambiguous, clear the page first", p.name)
	}
	if n < 0 {
		return nil, invalidArgument("%s: item count must not be negative, got %d", p.name, n)
	}
	if n == 0 {
		return []T{}, nil
	}
	total, err := p.Count(ctx)
	if err != nil {
		return nil, err
	}
	items := make([]T, 0, n)
	if total == 0 {
		return items, nil
	}
	for i := range n {
		index := 0
		if n > 1 {
			index = int(math.Round(float64(i) * float64(total-1) / float64(n-1)))
		}
		v, ok, err := p.itemAt(ctx, index, total)
		if err != nil {
			return nil, err
		}
		if ok {
			items = append(items, v)
		}
	}
	return items, nil
}

// allRows reads every raw row, ignoring page state.
func allRows[T any](ctx context.Context, p *Paging[Row, T]) ([]Row, error) {
	if p.source == nil {
		return nil, nil
	}
	return p.fetchItems(ctx, Window{Count: NoLimit, Flatten: p.flattenItems})
}

// Sum adds up field over every raw row of the unpaged collection. SQL NULLs
// count as zero; numeric strings are parsed.
func Sum[T any](ctx context.Context, p *Paging[Row, T], field string) (float64, error) {
	rows, err := allRows(ctx, p)
	if err != nil {
		return 0, err
	}
	var sum float64
	for _, row := range rows {
		v, ok := row[field]
		if !ok {
			return 0, invalidArgument("%s has no field `%s`.", p.name, field)
		}
		n, err := toFloat(v)
		if err != nil {
			return 0, invalidArgument("%s: field `%s`: %v", p.name, field, err)
		}
		sum += n
	}
	return sum, nil
}

func toFloat(v any) (float64, error) {
	switch n := v.(type) {
	case nil:
		return 0, nil
	case int:
		return float64(n), nil
	case int8:
		return float64(n), nil
	case int16:
		return float64(n), nil
	case int32:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case uint:
		return float64(n), nil
	case uint8:
		return float64(n), nil
	case uint16:
		return float64(n), nil
	case uint32:
		return float64(n), nil
	case uint64:
		return float64(n), nil
	case float32:
		return float64(n), nil
	case float64:
		return n, nil
	case bool:
		if n {
			return 1, nil
		}
		return 0, nil
	case string:
		return strconv.ParseFloat(n, 64)
	case []byte:
		return strconv.ParseFloat(string(n), 64)
	default:
		return 0, errors.Newf("value of type %T is not numeric", v)
	}
}

// RawTree indexes the raw rows of the unpaged collection by keyField. The
// key field is removed from each row; keys keeps source order. A later row
// with a duplicate key replaces the earlier one.
func RawTree[T any](ctx context.Context, p *Paging[Row, T], keyField string) (keys []string, tree map[string]Row, err error) {
	rows, err := allRows(ctx, p)
	if err != nil {
		return nil, nil, err
	}
	keys = make([]string, 0, len(rows))
	tree = make(map[string]Row, len(rows))
	for _, row := range rows {
		k, ok := row[keyField]
		if !ok {
			return nil, nil, invalidArgument("%s has no field `%s`.", p.name, keyField)
		}
		key := keyString(k)
		if _, seen := tree[key]; !seen {
			keys = append(keys, key)
		}
		rest := make(Row, len(row)-1)
		for name, v := range row {
			if name != keyField {
				rest[name] = v
			}
		}
		tree[key] = rest
	}
	return keys, tree, nil
}

func keyString(v any) string {
	switch k := v.(type) {
	case string:
		return k
	case []byte:
		return string(k)
	default:
		return fmt.Sprint(k)
	}
}
