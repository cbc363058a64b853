package shared

import "context"

// Store persists a whole collection of T at once.
//
// Load never fails hard: when the backing data is missing, unreadable or of an
// incompatible shape it returns an empty collection together with a warning
// error wrapping ErrPersistence. Save replaces the entire collection and
// returns an error wrapping ErrPersistence on failure.
type Store[T any] interface {
	Load(ctx context.Context) ([]T, error)
	Save(ctx context.Context, items []T) error
}

// CounterStore is a Store that also persists a monotonic ID counter next to
// the collection.
type CounterStore[T any] interface {
	LoadWithCounter(ctx context.Context) ([]T, int, error)
	SaveWithCounter(ctx context.Context, items []T, nextID int) error
}
