package series

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/canopy-network/sensorx/pkg/db"
)

func TestFromSingleTable_CompanionColumns(t *testing.T) {
	rows := []db.Row{
		{"ts": "2024-05-01 09:14:02", "humidity": 40.0, "humidity_simulation": 40.0, "anomaly_depth": 0.0},
		{"ts": "2024-05-01 09:14:01", "humidity": 55.0, "humidity_simulation": 41.0, "anomaly_depth": -1.0},
		{"ts": "2024-05-01 09:14:01", "humidity": 1.0, "humidity_simulation": 1.0},
	}

	out := FromSingleTable(rows, SingleTableOptions{
		Sensors:      []string{"humidity"},
		TimeColumn:   "ts",
		MarkerColumn: "anomaly_depth",
	})

	require.Len(t, out, 2)
	assert.Equal(t, "2024-05-01 09:14:01", out[0].TimeKey)
	assert.True(t, out[0].IsDiverged)
	assert.Equal(t, -1.0, *out[0].Marker)
	assert.Equal(t, 41.0, *out[0].Displayed())
	assert.False(t, out[1].IsDiverged)
}

func TestFromSingleTable_JSONObjects(t *testing.T) {
	rows := []db.Row{
		{
			"ts":                 "2024-05-01 09:14:00",
			"raw_data":           `{"Tank_Pressure": 101.5}`,
			"simulation_results": map[string]any{"tank_pressure": 100.0},
		},
		{
			"ts":                   "2024-05-01 09:15:00",
			"raw_data":             "not json",
			"tank_pressure":        99.0,
			"tank_pressure_sample": 99.0,
		},
	}

	out := FromSingleTable(rows, SingleTableOptions{Sensors: []string{"tank_pressure"}, TimeColumn: "ts"})

	require.Len(t, out, 2)
	assert.Equal(t, 101.5, *out[0].Raw)
	assert.Equal(t, 100.0, *out[0].Simulated)
	assert.True(t, out[0].IsDiverged)
	assert.Equal(t, 99.0, *out[1].Raw)
	assert.Equal(t, 99.0, *out[1].Simulated)
}

func TestFromSingleTable_RawOnly(t *testing.T) {
	out := FromSingleTable([]db.Row{{"ts": "2024-05-01 09:14:00", "rpm": int64(1200)}},
		SingleTableOptions{Sensors: []string{"rpm"}, TimeColumn: "ts"})

	require.Len(t, out, 1)
	assert.Nil(t, out[0].Simulated)
	assert.Equal(t, 1200.0, *out[0].Displayed())
	assert.False(t, out[0].IsDiverged)

	assert.Empty(t, FromSingleTable(nil, SingleTableOptions{Sensors: []string{"rpm"}}))
}

func TestCompanionColumns(t *testing.T) {
	cols := map[string]bool{"humidity_simulation": true, "raw_data": true, "rpm_sample": true}
	has := func(c string) bool { return cols[c] }
	assert.Equal(t,
		[]string{"humidity_simulation", "rpm_sample", "raw_data"},
		CompanionColumns([]string{"humidity", "rpm"}, has))
}
