package db

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	f := 21.5
	var nilFloat *float64
	pf := &f
	ts := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		in   any
		want any
	}{
		{"nil", nil, nil},
		{"float32", float32(1.5), 1.5},
		{"int32", int32(-4), int64(-4)},
		{"uint8", uint8(7), int64(7)},
		{"uint64 overflow", uint64(math.MaxUint64), float64(math.MaxUint64)},
		{"bytes", []byte("abc"), "abc"},
		{"raw json", json.RawMessage(`{"a":1}`), `{"a":1}`},
		{"pointer", &f, 21.5},
		{"double pointer", &pf, 21.5},
		{"nil pointer", nilFloat, nil},
		{"time", ts, ts},
		{"bool", true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}

func TestRowQueryValidate(t *testing.T) {
	day := Day(time.Date(2024, 3, 1, 15, 4, 5, 0, time.UTC))

	assert.NoError(t, RowQuery{Table: "raw_data", Columns: []string{"temperature"}, TimeColumn: "ts", Range: &day}.Validate())
	assert.NoError(t, RowQuery{Table: "센서", Columns: []string{"온도"}}.Validate())

	err := RowQuery{Table: "raw_data; DROP TABLE x", Columns: []string{"temperature"}}.Validate()
	assert.ErrorIs(t, err, ErrInvalidIdentifier)

	err = RowQuery{Table: "raw_data"}.Validate()
	assert.ErrorIs(t, err, ErrInvalidIdentifier)

	err = RowQuery{Table: "raw_data", Columns: []string{"temperature"}, Range: &day}.Validate()
	assert.Error(t, err)

	err = RowQuery{Table: "line_a", Columns: []string{"temperature"}, OrderColumn: "lot_id`"}.Validate()
	assert.ErrorIs(t, err, ErrInvalidIdentifier)
}

func TestRowQuerySortColumn(t *testing.T) {
	assert.Equal(t, "ts", RowQuery{TimeColumn: "ts"}.SortColumn())
	assert.Equal(t, "lot_id", RowQuery{OrderColumn: "lot_id"}.SortColumn())
	assert.Equal(t, "lot_id", RowQuery{TimeColumn: "ts", OrderColumn: "lot_id"}.SortColumn())
	assert.Empty(t, RowQuery{}.SortColumn())
}

func TestAverageQueryValidate(t *testing.T) {
	q := AverageQuery{Table: "raw_data", Columns: []string{"temperature"}, TimeColumn: "ts", Bucket: time.Minute}
	assert.NoError(t, q.Validate())

	q.Bucket = time.Millisecond
	assert.Error(t, q.Validate())

	q.Bucket = time.Minute
	q.TimeColumn = ""
	assert.Error(t, q.Validate())
}

func TestDayRanges(t *testing.T) {
	r, err := ParseDay("2024-03-01", nil)
	assert.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), r.Start)
	assert.Equal(t, time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC), r.End)

	_, err = ParseDay("03/01/2024", time.UTC)
	assert.Error(t, err)

	start, end := RangeArgs(r, true)
	assert.Equal(t, "2024-03-01 00:00:00", start)
	assert.Equal(t, "2024-03-02 00:00:00", end)

	start, end = RangeArgs(r, false)
	assert.Equal(t, r.Start, start)
	assert.Equal(t, r.End, end)
}
