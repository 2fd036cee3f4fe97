package db

import (
	"context"
)

// Column represents a database column with its name and declared type.
type Column struct {
	Name string `json:"name" ch:"name"`
	Type string `json:"type" ch:"type"`
}

// Row maps a column name to a primitive value (float64, int64, string,
// time.Time, bool, map[string]any) or nil.
type Row map[string]any

// MetadataProvider lists the columns of a table in a stable order.
// Implementations return ErrTableNotFound when the table has no columns.
type MetadataProvider interface {
	ListColumns(ctx context.Context, table string) ([]Column, error)
}

// RowProvider supplies rows for the "most recent N" and "[start,end)" query
// shapes plus a bucketed average query used for reference samples.
type RowProvider interface {
	QueryRows(ctx context.Context, q RowQuery) ([]Row, error)
	QueryAverages(ctx context.Context, q AverageQuery) ([]Row, error)
}

// Store is what the reconciliation engine needs from a database.
type Store interface {
	MetadataProvider
	RowProvider
	Ping(ctx context.Context) error
	Close() error
}
