package clickhouse

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/canopy-network/sensorx/pkg/db"
)

// Store reads sensor tables from a single ClickHouse database.
//
// It implements db.Store.
type Store struct {
	Client
}

var _ db.Store = (*Store)(nil)

// NewStore opens a connection to dbName (CLICKHOUSE_DB when empty).
func NewStore(ctx context.Context, logger *zap.Logger, dbName string) (*Store, error) {
	client, err := New(ctx, logger, dbName)
	if err != nil {
		return nil, err
	}
	return &Store{Client: client}, nil
}

// ListColumns returns the columns of table in declaration order from system.columns.
func (s *Store) ListColumns(ctx context.Context, table string) ([]db.Column, error) {
	if err := db.ValidateIdentifier(table); err != nil {
		return nil, err
	}

	query := `
		SELECT name, type
		FROM system.columns
		WHERE database = ? AND table = ?
		ORDER BY position
	`

	var columns []db.Column
	if err := s.Select(ctx, &columns, query, s.Database, table); err != nil {
		return nil, fmt.Errorf("list columns of %s.%s: %w", s.Database, table, err)
	}
	if len(columns) == 0 {
		return nil, fmt.Errorf("%w: %s.%s", db.ErrTableNotFound, s.Database, table)
	}
	return columns, nil
}

func (s *Store) QueryRows(ctx context.Context, q db.RowQuery) ([]db.Row, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	query, args := buildRowQuery(q)
	rows, err := s.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", q.Table, err)
	}
	return s.collect(rows, nil)
}

// QueryAverages averages each column per bucket. The bucket start is returned
// under the query's time column.
func (s *Store) QueryAverages(ctx context.Context, q db.AverageQuery) ([]db.Row, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	query, args := buildAverageQuery(q)
	rows, err := s.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("average %s: %w", q.Table, err)
	}

	rename := map[string]string{bucketAlias: q.TimeColumn}
	for i, c := range q.Columns {
		rename[averageAlias(i)] = c
	}
	return s.collect(rows, rename)
}

func (s *Store) collect(rows driver.Rows, rename map[string]string) ([]db.Row, error) {
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			s.Logger.Warn("failed to close rows", zap.Error(closeErr))
		}
	}()

	columnTypes := rows.ColumnTypes()
	names := make([]string, len(columnTypes))
	for i, ct := range columnTypes {
		names[i] = ct.Name()
		if renamed, ok := rename[names[i]]; ok {
			names[i] = renamed
		}
	}

	var out []db.Row
	for rows.Next() {
		targets := make([]any, len(columnTypes))
		for i, ct := range columnTypes {
			targets[i] = scanTarget(ct)
		}
		if err := rows.Scan(targets...); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}

		row := make(db.Row, len(names))
		for i, name := range names {
			row[name] = normalize(targets[i])
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}
	return out, nil
}

const bucketAlias = "__bucket"

func averageAlias(i int) string {
	return fmt.Sprintf("__avg_%d", i)
}

func quoteIdent(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "\\`") + "`"
}

func buildRowQuery(q db.RowQuery) (string, []any) {
	cols := make([]string, len(q.Columns))
	for i, c := range q.Columns {
		cols[i] = quoteIdent(c)
	}

	var sb strings.Builder
	var args []any
	fmt.Fprintf(&sb, "SELECT %s FROM %s", strings.Join(cols, ", "), quoteIdent(q.Table))
	if q.Range != nil {
		start, end := db.RangeArgs(*q.Range, q.TextTime)
		fmt.Fprintf(&sb, " WHERE %[1]s >= ? AND %[1]s < ?", quoteIdent(q.TimeColumn))
		args = append(args, start, end)
	}
	if col := q.SortColumn(); col != "" {
		fmt.Fprintf(&sb, " ORDER BY %s %s", quoteIdent(col), q.Order.SQL())
	}
	if q.Limit > 0 {
		fmt.Fprintf(&sb, " LIMIT %d", q.Limit)
	}
	return sb.String(), args
}

func buildAverageQuery(q db.AverageQuery) (string, []any) {
	ts := quoteIdent(q.TimeColumn)
	tsExpr := fmt.Sprintf("toDateTime(%s)", ts)
	if q.TextTime {
		tsExpr = fmt.Sprintf("parseDateTimeBestEffortOrNull(%s)", ts)
	}

	selects := []string{fmt.Sprintf("toStartOfInterval(%s, INTERVAL %d SECOND) AS %s",
		tsExpr, int64(q.Bucket/time.Second), bucketAlias)}
	for i, c := range q.Columns {
		selects = append(selects, fmt.Sprintf("avg(toFloat64(%s)) AS %s", quoteIdent(c), averageAlias(i)))
	}

	var sb strings.Builder
	var args []any
	fmt.Fprintf(&sb, "SELECT %s FROM %s", strings.Join(selects, ", "), quoteIdent(q.Table))
	if q.Range != nil {
		start, end := db.RangeArgs(*q.Range, q.TextTime)
		fmt.Fprintf(&sb, " WHERE %[1]s >= ? AND %[1]s < ?", ts)
		args = append(args, start, end)
	}
	fmt.Fprintf(&sb, " GROUP BY %[1]s ORDER BY %[1]s ASC", bucketAlias)
	if q.Limit > 0 {
		fmt.Fprintf(&sb, " LIMIT %d", q.Limit)
	}
	return sb.String(), args
}

// scanTarget allocates a destination the driver can scan the column into.
func scanTarget(ct driver.ColumnType) any {
	if p := createTypedPointer(ct.DatabaseTypeName()); p != nil {
		return p
	}
	return reflect.New(ct.ScanType()).Interface()
}

// createTypedPointer maps a ClickHouse type name to a scan destination.
// Nullable columns get a pointer to a pointer. Unknown types return nil.
func createTypedPointer(colType string) any {
	switch {
	case strings.HasPrefix(colType, "LowCardinality("):
		return createTypedPointer(colType[len("LowCardinality(") : len(colType)-1])
	case strings.HasPrefix(colType, "Nullable("):
		inner := createTypedPointer(colType[len("Nullable(") : len(colType)-1])
		if inner == nil {
			return nil
		}
		return reflect.New(reflect.TypeOf(inner)).Interface()
	case colType == "UInt8":
		return new(uint8)
	case colType == "UInt16":
		return new(uint16)
	case colType == "UInt32":
		return new(uint32)
	case colType == "UInt64":
		return new(uint64)
	case colType == "Int8":
		return new(int8)
	case colType == "Int16":
		return new(int16)
	case colType == "Int32":
		return new(int32)
	case colType == "Int64":
		return new(int64)
	case colType == "Float32":
		return new(float32)
	case colType == "Float64":
		return new(float64)
	case colType == "Bool":
		return new(bool)
	case colType == "String", strings.HasPrefix(colType, "FixedString("):
		return new(string)
	case strings.HasPrefix(colType, "Decimal"):
		return new(decimal.Decimal)
	case strings.HasPrefix(colType, "DateTime"), colType == "Date", colType == "Date32":
		return new(time.Time)
	default:
		return nil
	}
}

func normalize(v any) any {
	v = db.Normalize(v)
	if d, ok := v.(decimal.Decimal); ok {
		return d.InexactFloat64()
	}
	return v
}
