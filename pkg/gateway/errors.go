package gateway

import (
	"errors"
	"fmt"

	"github.com/tablegate/tablegate/pkg/entity"
	"github.com/tablegate/tablegate/pkg/storage"
)

var (
	// ErrConfiguration is returned by every operation of a gateway that was
	// not built by New, and by New itself for an incomplete configuration.
	ErrConfiguration = errors.New("gateway is not configured")

	// ErrConnection is returned alongside ErrQueryExecution or ErrWrite when
	// the connection is closed or otherwise unusable.
	ErrConnection = errors.New("connection unusable")

	// ErrQueryExecution wraps driver failures of read operations.
	ErrQueryExecution = errors.New("query execution failed")

	// ErrWrite wraps driver failures of write operations.
	ErrWrite = errors.New("update failed")

	// ErrInvalidWrite is returned, before any statement is sent, for a write
	// payload that cannot produce a valid statement.
	ErrInvalidWrite = errors.New("invalid write")

	// ErrOverflow is matched by every *OverflowError.
	ErrOverflow = errors.New("memory overflow")

	// ErrMapping is returned when a row value cannot be stored in an entity field.
	ErrMapping = entity.ErrMapping
)

// OverflowError aborts a buffered read whose result would leave less than
// the configured buffer below the memory limit.
type OverflowError struct {
	Limit int64
}

func (e *OverflowError) Error() string {
	return fmt.Sprintf("allowed memory size of %d bytes has been exceeded", e.Limit)
}

func (e *OverflowError) Is(target error) bool {
	return target == ErrOverflow
}

// classify wraps a driver error with kind and, for dead connections, ErrConnection.
func classify(kind error, dialect storage.Dialect, err error) error {
	handled := dialect.HandleSQLError(err)
	if errors.Is(handled, storage.ErrConnectionClosed) {
		return fmt.Errorf("%w: %w: %w", kind, ErrConnection, handled)
	}
	return fmt.Errorf("%w: %w", kind, handled)
}
