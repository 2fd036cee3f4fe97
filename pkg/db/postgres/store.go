package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"go.uber.org/zap"

	"github.com/canopy-network/sensorx/pkg/db"
)

// Store reads sensor tables from one PostgreSQL schema.
//
// It implements db.Store.
type Store struct {
	Client
}

var _ db.Store = (*Store)(nil)

func NewStore(ctx context.Context, logger *zap.Logger, schema string) (*Store, error) {
	client, err := New(ctx, logger, schema)
	if err != nil {
		return nil, err
	}
	return &Store{Client: client}, nil
}

func (s *Store) ListColumns(ctx context.Context, table string) ([]db.Column, error) {
	if err := db.ValidateIdentifier(table); err != nil {
		return nil, err
	}

	query := `
		SELECT column_name AS name, data_type AS type
		FROM information_schema.columns
		WHERE table_schema = $1 AND table_name = $2
		ORDER BY ordinal_position
	`
	rows, err := s.Query(ctx, query, s.Schema, table)
	if err != nil {
		return nil, fmt.Errorf("list columns of %s.%s: %w", s.Schema, table, err)
	}
	columns, err := pgx.CollectRows(rows, pgx.RowToStructByName[db.Column])
	if err != nil {
		return nil, fmt.Errorf("list columns of %s.%s: %w", s.Schema, table, err)
	}
	if len(columns) == 0 {
		return nil, fmt.Errorf("%w: %s.%s", db.ErrTableNotFound, s.Schema, table)
	}
	return columns, nil
}

func (s *Store) QueryRows(ctx context.Context, q db.RowQuery) ([]db.Row, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	query, args := buildRowQuery(s.Schema, q)
	rows, err := s.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", q.Table, err)
	}
	return collect(rows, nil)
}

// QueryAverages averages each column per bucket, returning the bucket start
// under the query's time column.
func (s *Store) QueryAverages(ctx context.Context, q db.AverageQuery) ([]db.Row, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	query, args := buildAverageQuery(s.Schema, q)
	rows, err := s.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("average %s: %w", q.Table, err)
	}

	rename := map[string]string{bucketAlias: q.TimeColumn}
	for i, c := range q.Columns {
		rename[averageAlias(i)] = c
	}
	return collect(rows, rename)
}

func collect(rows pgx.Rows, rename map[string]string) ([]db.Row, error) {
	defer rows.Close()

	fields := rows.FieldDescriptions()
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = f.Name
		if renamed, ok := rename[f.Name]; ok {
			names[i] = renamed
		}
	}

	var out []db.Row
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		row := make(db.Row, len(names))
		for i, name := range names {
			row[name] = normalize(values[i])
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

func quoteIdent(parts ...string) string {
	return pgx.Identifier(parts).Sanitize()
}

func buildRowQuery(schema string, q db.RowQuery) (string, []any) {
	cols := make([]string, len(q.Columns))
	for i, c := range q.Columns {
		cols[i] = quoteIdent(c)
	}

	var sb strings.Builder
	var args []any
	fmt.Fprintf(&sb, "SELECT %s FROM %s", strings.Join(cols, ", "), quoteIdent(schema, q.Table))
	if q.Range != nil {
		start, end := db.RangeArgs(*q.Range, q.TextTime)
		fmt.Fprintf(&sb, " WHERE %[1]s >= $1 AND %[1]s < $2", quoteIdent(q.TimeColumn))
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

func buildAverageQuery(schema string, q db.AverageQuery) (string, []any) {
	ts := quoteIdent(q.TimeColumn)
	seconds := int64(q.Bucket / time.Second)
	tsExpr := fmt.Sprintf("%s::timestamptz", ts)

	selects := []string{fmt.Sprintf("to_timestamp(floor(extract(epoch FROM %s) / %d) * %d) AS %s",
		tsExpr, seconds, seconds, bucketAlias)}
	for i, c := range q.Columns {
		selects = append(selects, fmt.Sprintf("avg(%s::double precision) AS %s", quoteIdent(c), averageAlias(i)))
	}

	var sb strings.Builder
	var args []any
	fmt.Fprintf(&sb, "SELECT %s FROM %s", strings.Join(selects, ", "), quoteIdent(schema, q.Table))
	if q.Range != nil {
		start, end := db.RangeArgs(*q.Range, q.TextTime)
		fmt.Fprintf(&sb, " WHERE %[1]s >= $1 AND %[1]s < $2", ts)
		args = append(args, start, end)
	}
	fmt.Fprintf(&sb, " GROUP BY %[1]s ORDER BY %[1]s ASC", bucketAlias)
	if q.Limit > 0 {
		fmt.Fprintf(&sb, " LIMIT %d", q.Limit)
	}
	return sb.String(), args
}

func normalize(v any) any {
	if n, ok := v.(pgtype.Numeric); ok {
		if !n.Valid {
			return nil
		}
		f, err := n.Float64Value()
		if err != nil || !f.Valid {
			return nil
		}
		return f.Float64
	}
	return db.Normalize(v)
}
