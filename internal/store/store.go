// Package store provides the row-oriented table gateway and its SQLite
// implementation. Tables mimic a spreadsheet: a header row plus ordered
// value rows, addressed by an opaque row handle.
package store

import "context"

// Row is one data row of a table. Handle is an opaque identifier valid for
// DeleteRow. RecordID is the synthetic identifier kept in a hidden column;
// backends that cannot store it return "".
type Row struct {
	Handle    int64
	RecordID  string
	Values    []string
	CreatedAt string
}

// Gateway defines row-level CRUD over named tables with a header row.
type Gateway interface {
	// ListTables returns all table names in creation order.
	ListTables(ctx context.Context) ([]string, error)

	// HasTable reports whether a table exists.
	HasTable(ctx context.Context, name string) (bool, error)

	// CreateTable creates a table with the given header row. Creating an
	// existing table is a no-op.
	CreateTable(ctx context.Context, name string, header []string) error

	// ReadHeader returns the raw header row (required markers intact).
	ReadHeader(ctx context.Context, table string) ([]string, error)

	// ReadRows returns data rows in insertion order. limit <= 0 means all.
	ReadRows(ctx context.Context, table string, limit int) ([]Row, error)

	// AppendRow appends values in header order. recordID may be empty.
	AppendRow(ctx context.Context, table string, recordID string, values []string) error

	// DeleteRow removes the row with the given handle.
	DeleteRow(ctx context.Context, table string, handle int64) error

	// Close releases the underlying resources.
	Close() error
}
