// Package series aligns raw and simulated sensor rows on canonical time keys.
package series

import (
	"math"
	"time"

	"github.com/canopy-network/sensorx/pkg/db"
	"github.com/canopy-network/sensorx/pkg/timekey"
)

// DivergenceEpsilon is the largest raw/simulated difference still treated as equal.
const DivergenceEpsilon = 1e-9

// ReconciledRow pairs the raw and simulated value of one sensor at one key.
type ReconciledRow struct {
	Sensor  string `json:"sensor"`
	TimeKey string `json:"time_key"`
	// Time is the raw row's timestamp at full precision.
	Time       string   `json:"time"`
	Raw        *float64 `json:"raw"`
	Simulated  *float64 `json:"simulated"`
	Marker     *float64 `json:"marker,omitempty"`
	IsDiverged bool     `json:"is_diverged"`
}

// Displayed is the value shown for the row: the simulated series when
// present, else the raw one.
func (r ReconciledRow) Displayed() *float64 {
	if r.Simulated != nil {
		return r.Simulated
	}
	return r.Raw
}

// Diverged reports whether both values are present and differ by more than
// DivergenceEpsilon.
func Diverged(raw, simulated *float64) bool {
	if raw == nil || simulated == nil {
		return false
	}
	return math.Abs(*raw-*simulated) > DivergenceEpsilon
}

type Options struct {
	Sensors []string
	// RawTimeColumn keys raw rows; SimulatedTimeColumn defaults to it.
	RawTimeColumn       string
	SimulatedTimeColumn string
	// MarkerColumn is read from the raw row, then the simulated row.
	MarkerColumn string
	Granularity  timekey.Granularity
	// Location renders both sides' instants before keying.
	Location *time.Location
}

// Reconcile joins raw and simulated rows on keys present in both, ascending.
// Keys found on one side only are dropped. Within a key rows follow the
// order of opts.Sensors.
func Reconcile(raw, simulated []db.Row, opts Options) []ReconciledRow {
	if len(raw) == 0 || len(simulated) == 0 || len(opts.Sensors) == 0 {
		return nil
	}
	simTime := opts.SimulatedTimeColumn
	if simTime == "" {
		simTime = opts.RawTimeColumn
	}

	rawIdx := NewIndex(raw, opts.RawTimeColumn, opts.Granularity, opts.Location)
	simIdx := NewIndex(simulated, simTime, opts.Granularity, opts.Location)

	keys := Intersect(rawIdx, simIdx)
	out := make([]ReconciledRow, 0, len(keys)*len(opts.Sensors))
	for _, key := range keys {
		rawRow, _ := rawIdx.Get(key)
		simRow, _ := simIdx.Get(key)
		when := rowTime(rawRow, opts.RawTimeColumn, key, opts.Location)
		marker := markerOf(opts.MarkerColumn, rawRow, simRow)

		for _, sensor := range opts.Sensors {
			r := numeric(rawRow, sensor)
			s := numeric(simRow, sensor)
			out = append(out, ReconciledRow{
				Sensor:     sensor,
				TimeKey:    key,
				Time:       when,
				Raw:        r,
				Simulated:  s,
				Marker:     marker,
				IsDiverged: Diverged(r, s),
			})
		}
	}
	return out
}

// GroupBySensor splits rows per sensor, keeping their order.
func GroupBySensor(rows []ReconciledRow) map[string][]ReconciledRow {
	out := map[string][]ReconciledRow{}
	for _, r := range rows {
		out[r.Sensor] = append(out[r.Sensor], r)
	}
	return out
}

// Values returns the displayed value of every row.
func Values(rows []ReconciledRow) []Point {
	out := make([]Point, len(rows))
	for i, r := range rows {
		out[i] = Point{TimeKey: r.TimeKey, Value: r.Displayed()}
	}
	return out
}

func numeric(row db.Row, column string) *float64 {
	v, ok := lookup(row, column)
	if !ok {
		return nil
	}
	return Float(v)
}

func markerOf(column string, rows ...db.Row) *float64 {
	if column == "" {
		return nil
	}
	for _, row := range rows {
		if m := numeric(row, column); m != nil {
			return m
		}
	}
	return nil
}

func rowTime(row db.Row, column, fallback string, loc *time.Location) string {
	v, _ := lookup(row, column)
	if t := timekey.CanonicalizeIn(v, timekey.Exact, loc); t != "" {
		return t
	}
	return fallback
}
