package paging

import (
	"context"
	"iter"

	"github.com/cockroachdb/errors"
)

// Items returns the domain items of the current view. On a stale source,
// items that turn out to be gone are skipped and the window is backfilled so
// the result still holds the requested number of items unless the source is
// exhausted.
func (p *Paging[R, T]) Items(ctx context.Context, opts ...ItemsOption) ([]T, error) {
	s, err := p.resolve(ctx, opts)
	if err != nil {
		return nil, err
	}
	slots, _, err := p.collect(ctx, s, false)
	if err != nil {
		return nil, err
	}
	items := make([]T, 0, len(slots))
	for _, slot := range slots {
		items = append(items, slot.Value())
	}
	return items, nil
}

// ItemsWithGaps is Items without backfill: every gone item keeps its
// position as a null slot.
func (p *Paging[R, T]) ItemsWithGaps(ctx context.Context, opts ...ItemsOption) ([]Slot[T], error) {
	s, err := p.resolve(ctx, opts)
	if err != nil {
		return nil, err
	}
	slots, _, err := p.collect(ctx, s, true)
	return slots, err
}

// ItemsRaw returns the raw items of the current view, untransformed and
// unfiltered.
func (p *Paging[R, T]) ItemsRaw(ctx context.Context, opts ...ItemsOption) ([]R, error) {
	s, err := p.resolve(ctx, opts)
	if err != nil {
		return nil, err
	}
	if p.source == nil || s.count == 0 {
		return []R{}, nil
	}
	return p.fetchItems(ctx, s.window(p.flattenItems))
}

// Item returns the item at index in the current view. A negative index counts
// from the end. Out of range, excluded, filtered and gone items are reported
// as absent; no backfill happens for single items.
func (p *Paging[R, T]) Item(ctx context.Context, index int) (T, bool, error) {
	var zero T
	if p.pageSize > 0 {
		slots, err := p.ItemsWithGaps(ctx)
		if err != nil {
			return zero, false, err
		}
		if index < 0 {
			index += len(slots)
		}
		if index < 0 || index >= len(slots) {
			return zero, false, nil
		}
		v, ok := slots[index].Get()
		return v, ok, nil
	}
	total, err := p.Count(ctx)
	if err != nil {
		return zero, false, err
	}
	return p.itemAt(ctx, index, total)
}

func (p *Paging[R, T]) itemAt(ctx context.Context, index, total int) (T, bool, error) {
	var zero T
	if index < 0 {
		index += total
	}
	if index < 0 || index >= total {
		return zero, false, nil
	}
	slots, _, err := p.collect(ctx, span{offset: index, count: 1, total: total}, true)
	if err != nil || len(slots) == 0 {
		return zero, false, err
	}
	v, ok := slots[0].Get()
	return v, ok, nil
}

// All iterates the current view in batches. Iteration stops early when
// Change is called on the engine.
func (p *Paging[R, T]) All(ctx context.Context) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		var zero T
		version := p.version
		if p.pageSize > 0 {
			items, err := p.Items(ctx)
			if err != nil {
				yield(zero, err)
				return
			}
			for _, item := range items {
				if p.version != version || !yield(item, nil) {
					return
				}
			}
			return
		}
		for offset := 0; ; offset += p.batchSize {
			if p.version != version {
				return
			}
			slots, scanned, err := p.collect(ctx, span{offset: offset, count: p.batchSize, total: -1}, true)
			if err != nil {
				yield(zero, err)
				return
			}
			for _, slot := range slots {
				v, ok := slot.Get()
				if !ok {
					continue
				}
				if p.version != version || !yield(v, nil) {
					return
				}
			}
			if scanned < p.batchSize {
				return
			}
		}
	}
}

// unpagedItems returns the full item sequence regardless of page state.
func (p *Paging[R, T]) unpagedItems(ctx context.Context) ([]T, error) {
	slots, _, err := p.collect(ctx, span{count: NoLimit, total: -1}, false)
	if err != nil {
		return nil, err
	}
	items := make([]T, 0, len(slots))
	for _, slot := range slots {
		items = append(items, slot.Value())
	}
	return items, nil
}

// collect fetches, transforms and post-processes a resolved window. It
// returns the resulting slots and how many raw items the initial fetch
// returned.
func (p *Paging[R, T]) collect(ctx context.Context, s span, keepGaps bool) ([]Slot[T], int, error) {
	if p.source == nil || s.count == 0 {
		return []Slot[T]{}, 0, nil
	}
	raw, err := p.fetchItems(ctx, s.window(p.flattenItems))
	if err != nil {
		return nil, 0, err
	}
	slots, gaps, err := p.transformAll(ctx, raw)
	if err != nil {
		return nil, 0, err
	}
	if gaps > 0 && !keepGaps {
		slots = compact(slots)
		if s.count != NoLimit && len(slots) < s.count {
			slots, err = p.backfill(ctx, s, slots, len(raw))
			if err != nil {
				return nil, 0, err
			}
		}
	}
	return p.postProcess(slots), len(raw), nil
}

// backfill extends a window that lost items to gaps, one batch of the
// missing size at a time, until it is full or the source is exhausted.
func (p *Paging[R, T]) backfill(ctx context.Context, s span, slots []Slot[T], fetched int) ([]Slot[T], error) {
	start, end := s.offset, s.offset+fetched
	exhausted := fetched < s.count
	rounds := 0
	for len(slots) < s.count {
		missing := s.count - len(slots)
		var w Window
		if s.tail {
			if start == 0 {
				break
			}
			from := max(0, start-missing)
			w = Window{Offset: from, Count: start - from, Flatten: p.flattenItems}
			start = from
		} else {
			if exhausted || (s.total >= 0 && end >= s.total) {
				break
			}
			w = Window{Offset: end, Count: missing, Flatten: p.flattenItems}
		}
		raw, err := p.fetchItems(ctx, w)
		if err != nil {
			return nil, err
		}
		rounds++
		batch, _, err := p.transformAll(ctx, raw)
		if err != nil {
			return nil, err
		}
		if s.tail {
			slots = append(compact(batch), slots...)
			continue
		}
		end += len(raw)
		exhausted = len(raw) < w.Count
		slots = append(slots, compact(batch)...)
		if len(raw) == 0 {
			break
		}
	}
	p.log.Debug("backfilled window [%d,+%d) in %d round(s), %d item(s)", s.offset, s.count, rounds, len(slots))
	return slots, nil
}

// transformAll applies the transformer and enforces the gap policy.
func (p *Paging[R, T]) transformAll(ctx context.Context, raw []R) ([]Slot[T], int, error) {
	slots := make([]Slot[T], 0, len(raw))
	gaps := 0
	for _, r := range raw {
		out, err := p.transform(ctx, r)
		if err != nil {
			return nil, 0, errors.Wrapf(err, "%s: transform item", p.name)
		}
		v, ok := out.Get()
		if !ok {
			gaps++
			slots = append(slots, Null[T]())
			continue
		}
		slots = append(slots, Some(v))
	}
	if gaps > 0 && p.source.StalenessChance() == 0 {
		p.log.Error("source promises consistency but %d of %d item(s) are gone", gaps, len(raw))
		return nil, 0, markf(ErrInconsistentSource, "%s: %d nonexistent item(s) from a source with zero staleness", p.name, gaps)
	}
	return slots, gaps, nil
}

// postProcess applies exclusions and then filters, in that order.
func (p *Paging[R, T]) postProcess(slots []Slot[T]) []Slot[T] {
	if len(p.exclusions) == 0 && len(p.filters) == 0 {
		return slots
	}
	out := slots[:0:0]
	for _, slot := range slots {
		if p.excluded(slot) || !p.accepted(slot) {
			continue
		}
		out = append(out, slot)
	}
	return out
}

func (p *Paging[R, T]) excluded(slot Slot[T]) bool {
	v, ok := slot.Get()
	if !ok {
		return false
	}
	for _, ex := range p.exclusions {
		if p.equals(v, ex) {
			return true
		}
	}
	return false
}

func (p *Paging[R, T]) accepted(slot Slot[T]) bool {
	for _, fn := range p.filters {
		if !fn(slot) {
			return false
		}
	}
	return true
}

func compact[T any](slots []Slot[T]) []Slot[T] {
	out := make([]Slot[T], 0, len(slots))
	for _, slot := range slots {
		if slot.Valid() {
			out = append(out, slot)
		}
	}
	return out
}
