package gateway

import (
	"database/sql"

	"go.uber.org/zap"

	"github.com/tablegate/tablegate/pkg/entity"
	"github.com/tablegate/tablegate/pkg/logger"
	"github.com/tablegate/tablegate/pkg/memlimit"
	"github.com/tablegate/tablegate/pkg/storage"
)

// streamer turns result cursors into entities. Every method except lazy
// closes the cursor it is given.
type streamer struct {
	mapper  *entity.Mapper
	guard   *memlimit.Guard
	dialect storage.Dialect
	logger  logger.Logger
}

func (s *streamer) queryError(err error) error {
	return classify(ErrQueryExecution, s.dialect, err)
}

// one maps the first row, or returns nil when there is none.
func (s *streamer) one(rows *sql.Rows) (entity.Entity, error) {
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, s.queryError(err)
		}
		return nil, nil
	}

	columns, err := rows.Columns()
	if err != nil {
		return nil, s.queryError(err)
	}

	row, err := entity.ScanRow(rows, columns)
	if err != nil {
		return nil, s.queryError(err)
	}

	return s.mapper.Map(row)
}

// all buffers every row. The guard is consulted after each row; once the
// remaining headroom is exhausted the partial result is dropped and an
// *OverflowError returned.
func (s *streamer) all(rows *sql.Rows) ([]entity.Entity, error) {
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, s.queryError(err)
	}

	entities := make([]entity.Entity, 0)
	for rows.Next() {
		row, err := entity.ScanRow(rows, columns)
		if err != nil {
			return nil, s.queryError(err)
		}

		e, err := s.mapper.Map(row)
		if err != nil {
			return nil, err
		}
		entities = append(entities, e)

		if s.guard.Remaining() <= 0 {
			limit := s.guard.Limit()
			memoryOverflowCounter.Inc()
			s.logger.Warn("buffered read exceeds memory limit",
				zap.Int64("limit", limit),
				zap.Int64("buffer", s.guard.Buffer()),
				zap.Int("rows", len(entities)))
			return nil, &OverflowError{Limit: limit}
		}
	}

	if err := rows.Err(); err != nil {
		return nil, s.queryError(err)
	}

	return entities, nil
}

// lazy wraps rows in an Iterator that owns it from now on.
func (s *streamer) lazy(rows *sql.Rows) *Iterator {
	return newIterator(rows, s)
}

// scalar reads the first column of the first row. ok is false when there is
// no row or the value is NULL. Cursor failures are wrapped with kind.
func (s *streamer) scalar(rows *sql.Rows, kind error) (value string, ok bool, err error) {
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return "", false, classify(kind, s.dialect, err)
		}
		return "", false, nil
	}

	columns, err := rows.Columns()
	if err != nil {
		return "", false, classify(kind, s.dialect, err)
	}
	if len(columns) == 0 {
		return "", false, nil
	}

	values := make([]any, len(columns))
	dest := make([]any, len(columns))
	for i := range values {
		dest[i] = &values[i]
	}
	if err := rows.Scan(dest...); err != nil {
		return "", false, classify(kind, s.dialect, err)
	}

	v := entity.Normalize(values[0])
	if v == nil {
		return "", false, nil
	}
	return entity.String(v), true, nil
}
