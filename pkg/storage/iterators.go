package storage

import (
	"context"
	"errors"
)

// ErrIteratorDone is returned by Next once an iterator is exhausted or stopped.
var ErrIteratorDone = errors.New("iterator done")

// Iterator is a forward-only, single-pass sequence.
type Iterator[T any] interface {
	// Next will return the next available item. Once the sequence is
	// exhausted, it returns ErrIteratorDone on every call.
	Next(ctx context.Context) (T, error)
	// Stop terminates iteration over the underlying iterator and releases its resources.
	Stop()
}
