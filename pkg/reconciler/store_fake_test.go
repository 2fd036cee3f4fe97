package reconciler

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"time"

	"github.com/canopy-network/sensorx/pkg/db"
)

// fakeStore serves tables held in memory. Queries without a sort column
// return rows in storage order.
type fakeStore struct {
	mu        sync.Mutex
	columns   map[string][]db.Column
	rows      map[string][]db.Row
	schemaErr map[string]error
	rowErr    map[string]error
	queries   []db.RowQuery
	averages  []db.AverageQuery
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		columns:   map[string][]db.Column{},
		rows:      map[string][]db.Row{},
		schemaErr: map[string]error{},
		rowErr:    map[string]error{},
	}
}

func (f *fakeStore) addTable(name string, columns []db.Column, rows ...db.Row) {
	f.columns[name] = columns
	f.rows[name] = rows
}

func (f *fakeStore) ListColumns(_ context.Context, table string) ([]db.Column, error) {
	if err := f.schemaErr[table]; err != nil {
		return nil, err
	}
	cols, ok := f.columns[table]
	if !ok {
		return nil, db.ErrTableNotFound
	}
	return slices.Clone(cols), nil
}

func (f *fakeStore) QueryRows(ctx context.Context, q db.RowQuery) ([]db.Row, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	f.queries = append(f.queries, q)
	f.mu.Unlock()

	if err := f.rowErr[q.Table]; err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var matched []db.Row
	for _, r := range f.rows[q.Table] {
		if q.Range != nil && !inRange(r[q.TimeColumn], *q.Range, q.TextTime) {
			continue
		}
		matched = append(matched, r)
	}
	if col := q.SortColumn(); col != "" {
		slices.SortStableFunc(matched, func(a, b db.Row) int {
			return compareValues(a[col], b[col])
		})
		if q.Order == db.OrderDesc {
			slices.Reverse(matched)
		}
	}

	out := make([]db.Row, 0, len(matched))
	for _, r := range matched {
		row := db.Row{}
		for _, c := range q.Columns {
			if v, ok := r[c]; ok {
				row[c] = v
			}
		}
		out = append(out, row)
	}
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

// QueryAverages treats every row as its own bucket.
func (f *fakeStore) QueryAverages(ctx context.Context, q db.AverageQuery) ([]db.Row, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	f.averages = append(f.averages, q)
	f.mu.Unlock()
	return f.QueryRows(ctx, db.RowQuery{
		Table:      q.Table,
		Columns:    append([]string{q.TimeColumn}, q.Columns...),
		TimeColumn: q.TimeColumn,
		Limit:      q.Limit,
	})
}

func (f *fakeStore) Ping(context.Context) error { return nil }
func (f *fakeStore) Close() error               { return nil }

func (f *fakeStore) recorded(table string) []db.RowQuery {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []db.RowQuery
	for _, q := range f.queries {
		if q.Table == table {
			out = append(out, q)
		}
	}
	return out
}

func compareValues(a, b any) int {
	switch x := a.(type) {
	case time.Time:
		if y, ok := b.(time.Time); ok {
			return x.Compare(y)
		}
	case string:
		if y, ok := b.(string); ok {
			return cmp.Compare(x, y)
		}
	case int64:
		if y, ok := b.(int64); ok {
			return cmp.Compare(x, y)
		}
	case float64:
		if y, ok := b.(float64); ok {
			return cmp.Compare(x, y)
		}
	}
	return 0
}

func inRange(v any, r db.TimeRange, text bool) bool {
	switch t := v.(type) {
	case time.Time:
		return !t.Before(r.Start) && t.Before(r.End)
	case string:
		if !text {
			return false
		}
		start, end := db.RangeArgs(r, text)
		return t >= start.(string) && t < end.(string)
	}
	return false
}
