package database

import (
	"context"
	"errors"
)

var (
	// ErrStoreNotFound is returned when an operation needs a store that has
	// never been written.
	ErrStoreNotFound = errors.New("result store not found")
	// ErrCorruptStore is returned by mutating operations and strict reads
	// when the persisted state cannot be parsed.
	ErrCorruptStore = errors.New("result store is corrupt")
)

// DatabaseService persists recognition records in insertion order, keeping
// at most MaxRecords of the most recent ones.
type DatabaseService interface {
	// CreateDatabase prepares the backing storage (directories, schema, connectivity)
	CreateDatabase(ctx context.Context) error
	// DoesDatabaseExist reports whether a record has ever been written
	DoesDatabaseExist(ctx context.Context) (bool, error)
	Close() error

	// AppendRecord stores record as the newest entry, evicting the oldest
	// entries beyond MaxRecords.
	AppendRecord(ctx context.Context, record Record) (Record, error)
	// GetRecords returns all records oldest first. Unreadable state yields
	// an empty slice rather than an error.
	GetRecords(ctx context.Context) ([]Record, error)
	// UpdateAnalyzed replaces the analyzed fields of the first record with
	// the given timestamp. It reports false when no record matched.
	UpdateAnalyzed(ctx context.Context, timestamp string, analyzed Analyzed) (bool, error)
	// DeleteRecords removes every record with the given timestamp and
	// returns how many were removed.
	DeleteRecords(ctx context.Context, timestamp string) (int, error)
}

// StrictReader is implemented by stores whose whole state can be unreadable.
// ReadRecords returns ErrCorruptStore instead of an empty slice.
type StrictReader interface {
	ReadRecords(ctx context.Context) ([]Record, error)
}

// ReadAllRecords lists ds for consumers that must not mistake a corrupt
// store for an empty one, such as exports
func ReadAllRecords(ctx context.Context, ds DatabaseService) ([]Record, error) {
	if reader, ok := ds.(StrictReader); ok {
		return reader.ReadRecords(ctx)
	}
	return ds.GetRecords(ctx)
}
