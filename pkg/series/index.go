package series

import (
	"sort"
	"time"

	"github.com/canopy-network/sensorx/pkg/db"
	"github.com/canopy-network/sensorx/pkg/timekey"
)

// Index maps canonical time keys to rows in insertion order. The first row
// seen for a key wins; later duplicates are skipped. Rows whose time cannot
// be keyed are dropped.
type Index struct {
	keys []string
	rows map[string]db.Row
}

// NewIndex keys rows by timeColumn rendered in loc. A nil loc keeps each
// value's own zone.
func NewIndex(rows []db.Row, timeColumn string, g timekey.Granularity, loc *time.Location) *Index {
	idx := &Index{rows: make(map[string]db.Row, len(rows))}
	for _, row := range rows {
		raw, _ := lookup(row, timeColumn)
		idx.Add(timekey.CanonicalizeIn(raw, g, loc), row)
	}
	return idx
}

// Add stores row under key unless key is empty or already present. It
// reports whether the row was stored.
func (i *Index) Add(key string, row db.Row) bool {
	if key == "" {
		return false
	}
	if _, exists := i.rows[key]; exists {
		return false
	}
	i.keys = append(i.keys, key)
	i.rows[key] = row
	return true
}

func (i *Index) Get(key string) (db.Row, bool) {
	row, ok := i.rows[key]
	return row, ok
}

func (i *Index) Len() int {
	return len(i.keys)
}

// Keys returns keys in insertion order.
func (i *Index) Keys() []string {
	return append([]string(nil), i.keys...)
}

// SortedKeys returns keys in ascending order.
func (i *Index) SortedKeys() []string {
	keys := i.Keys()
	sort.Strings(keys)
	return keys
}

// Intersect returns the keys present in both indexes, ascending.
func Intersect(a, b *Index) []string {
	var out []string
	for _, k := range a.keys {
		if _, ok := b.rows[k]; ok {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}
