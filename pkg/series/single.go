package series

import (
	"time"

	"github.com/canopy-network/sensorx/pkg/db"
	"github.com/canopy-network/sensorx/pkg/timekey"
)

// Column names a single process table may use to carry both series.
const (
	RawObjectColumn       = "raw_data"
	SimulatedObjectColumn = "simulation_results"
)

// SimulatedSuffixes name companion columns holding a sensor's simulated value,
// in lookup order.
var SimulatedSuffixes = []string{"_simulation", "_sample"}

type SingleTableOptions struct {
	Sensors      []string
	TimeColumn   string
	MarkerColumn string
	Location     *time.Location
}

// FromSingleTable builds reconciled rows from one table keyed at exact
// granularity. A sensor's raw value comes from the raw_data object column
// when it has the sensor, else from the sensor column. The simulated value
// comes from the simulation_results object, then a companion column. Without
// either it is absent and the raw value is displayed.
func FromSingleTable(rows []db.Row, opts SingleTableOptions) []ReconciledRow {
	if len(rows) == 0 || len(opts.Sensors) == 0 {
		return nil
	}
	idx := NewIndex(rows, opts.TimeColumn, timekey.Exact, opts.Location)

	keys := idx.SortedKeys()
	out := make([]ReconciledRow, 0, len(keys)*len(opts.Sensors))
	for _, key := range keys {
		row, _ := idx.Get(key)
		rawObj := objectColumn(row, RawObjectColumn)
		simObj := objectColumn(row, SimulatedObjectColumn)
		marker := markerOf(opts.MarkerColumn, row)

		for _, sensor := range opts.Sensors {
			r := numeric(rawObj, sensor)
			if r == nil {
				r = numeric(row, sensor)
			}
			s := numeric(simObj, sensor)
			for _, suffix := range SimulatedSuffixes {
				if s != nil {
					break
				}
				s = numeric(row, sensor+suffix)
			}
			out = append(out, ReconciledRow{
				Sensor:     sensor,
				TimeKey:    key,
				Time:       key,
				Raw:        r,
				Simulated:  s,
				Marker:     marker,
				IsDiverged: Diverged(r, s),
			})
		}
	}
	return out
}

// CompanionColumns lists the extra columns FromSingleTable reads for sensors,
// restricted to those the table has.
func CompanionColumns(sensors []string, has func(string) bool) []string {
	var out []string
	for _, s := range sensors {
		for _, suffix := range SimulatedSuffixes {
			if has(s + suffix) {
				out = append(out, s+suffix)
			}
		}
	}
	for _, c := range []string{RawObjectColumn, SimulatedObjectColumn} {
		if has(c) {
			out = append(out, c)
		}
	}
	return out
}

func objectColumn(row db.Row, column string) db.Row {
	v, ok := lookup(row, column)
	if !ok {
		return nil
	}
	return object(v)
}
