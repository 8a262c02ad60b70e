package paging

import "context"

// Outcome is the result of transforming one raw item: either an item, or
// Gone when the raw item refers to something that no longer exists.
type Outcome[T any] struct {
	value T
	gone  bool
}

// Item wraps a successfully transformed value.
func Item[T any](v T) Outcome[T] {
	return Outcome[T]{value: v}
}

// Gone marks a raw item whose target no longer exists.
func Gone[T any]() Outcome[T] {
	return Outcome[T]{gone: true}
}

func (o Outcome[T]) Get() (T, bool) {
	return o.value, !o.gone
}

func (o Outcome[T]) IsGone() bool {
	return o.gone
}

// Slot is one position of a result that keeps gaps: either a value or a null
// placeholder standing in for an item that was gone.
type Slot[T any] struct {
	value T
	valid bool
}

func Some[T any](v T) Slot[T] {
	return Slot[T]{value: v, valid: true}
}

func Null[T any]() Slot[T] {
	return Slot[T]{}
}

func (s Slot[T]) Get() (T, bool) {
	return s.value, s.valid
}

// Value returns the value, or the zero value for a null slot.
func (s Slot[T]) Value() T {
	return s.value
}

func (s Slot[T]) Valid() bool {
	return s.valid
}

// Transformer turns a raw item into a domain item. Errors are reserved for
// real failures; a vanished item is reported with Gone.
type Transformer[R, T any] func(ctx context.Context, raw R) (Outcome[T], error)

// Identity returns raw items unchanged.
func Identity[T any]() Transformer[T, T] {
	return func(_ context.Context, raw T) (Outcome[T], error) {
		return Item(raw), nil
	}
}

// Map adapts an infallible conversion.
func Map[R, T any](fn func(R) T) Transformer[R, T] {
	return func(_ context.Context, raw R) (Outcome[T], error) {
		return Item(fn(raw)), nil
	}
}

// First picks the representative of a group; an empty group is gone.
func First[T any]() Transformer[[]T, T] {
	return func(_ context.Context, raw []T) (Outcome[T], error) {
		if len(raw) == 0 {
			return Gone[T](), nil
		}
		return Item(raw[0]), nil
	}
}

// Equaler is implemented by domain items that define their own equality.
// Exclusions use it in preference to SetEqual and deep equality.
type Equaler[T any] interface {
	Equal(other T) bool
}
