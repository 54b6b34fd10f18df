package gateway

import (
	"context"
	"database/sql"
	"errors"
	"iter"
	"runtime"
	"sync"

	"github.com/tablegate/tablegate/pkg/entity"
	"github.com/tablegate/tablegate/pkg/storage"
)

// Iterator is a forward-only, single-pass cursor over a result set. Rows are
// mapped one at a time and are not subject to the memory guard.
//
// The cursor is released when Next reports the end, on Stop, when a range
// loop over All ends, or when the Iterator becomes unreachable.
type Iterator struct {
	mu      sync.Mutex
	rows    *sql.Rows // GUARDED_BY(mu)
	columns []string  // GUARDED_BY(mu)
	cleanup runtime.Cleanup
	stream  *streamer
}

var _ storage.Iterator[entity.Entity] = (*Iterator)(nil)

func newIterator(rows *sql.Rows, s *streamer) *Iterator {
	it := &Iterator{rows: rows, stream: s}
	it.cleanup = runtime.AddCleanup(it, func(rows *sql.Rows) {
		_ = rows.Close()
	}, rows)
	return it
}

// Next returns the next entity, or storage.ErrIteratorDone once the result
// set is exhausted. Any other error, a done ctx included, also ends the
// iteration.
func (it *Iterator) Next(ctx context.Context) (entity.Entity, error) {
	it.mu.Lock()
	defer it.mu.Unlock()

	if err := ctx.Err(); err != nil {
		it.release()
		return nil, err
	}

	if it.rows == nil {
		return nil, storage.ErrIteratorDone
	}

	if !it.rows.Next() {
		err := it.rows.Err()
		it.release()
		if err != nil {
			return nil, it.stream.queryError(err)
		}
		return nil, storage.ErrIteratorDone
	}

	if it.columns == nil {
		columns, err := it.rows.Columns()
		if err != nil {
			it.release()
			return nil, it.stream.queryError(err)
		}
		it.columns = columns
	}

	row, err := entity.ScanRow(it.rows, it.columns)
	if err != nil {
		it.release()
		return nil, it.stream.queryError(err)
	}

	e, err := it.stream.mapper.Map(row)
	if err != nil {
		it.release()
		return nil, err
	}

	return e, nil
}

// Stop releases the cursor. Subsequent calls to Next return
// storage.ErrIteratorDone.
func (it *Iterator) Stop() {
	it.mu.Lock()
	defer it.mu.Unlock()
	it.release()
}

// All ranges over the remaining entities. The iterator is stopped when the
// loop ends, including on break. An error is yielded once, as the last pair.
func (it *Iterator) All(ctx context.Context) iter.Seq2[entity.Entity, error] {
	return func(yield func(entity.Entity, error) bool) {
		defer it.Stop()
		for {
			e, err := it.Next(ctx)
			if errors.Is(err, storage.ErrIteratorDone) {
				return
			}
			if !yield(e, err) || err != nil {
				return
			}
		}
	}
}

func (it *Iterator) release() {
	if it.rows == nil {
		return
	}
	it.cleanup.Stop()
	_ = it.rows.Close()
	it.rows = nil
}
