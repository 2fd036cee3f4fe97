package trend

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/canopy-network/sensorx/pkg/schema"
)

func TestCheckAlert(t *testing.T) {
	desc := schema.SensorDescriptor{ColumnName: "vibration", DisplayLabel: "Vibration", Unit: "mm/s"}

	// newest first; nineteen ones and zeros around 0.5 then a spike
	values := []float64{40}
	for i := 0; i < 19; i++ {
		values = append(values, float64(i%2))
	}

	a, ok := CheckAlert(desc, samples(values...), 0)
	require.True(t, ok)
	assert.Equal(t, 40.0, a.CurrentValue)
	assert.Greater(t, a.Deviation, CriticalDeviation)
	assert.Equal(t, Critical, a.Severity)
	assert.Greater(t, a.CurrentValue, a.UpperLimit)

	a, ok = CheckAlert(desc, samples(values...), 1)
	require.True(t, ok)
	assert.Equal(t, 1.0*a.StdDev+a.Mean, a.UpperLimit)
}

func TestCheckAlert_NoAlert(t *testing.T) {
	desc := schema.SensorDescriptor{ColumnName: "flow"}

	_, ok := CheckAlert(desc, samples(1, 2, 3), 3)
	assert.False(t, ok, "too few samples")

	_, ok = CheckAlert(desc, samples(5, 5, 5, 5, 5, 5, 5, 5, 5, 5), 3)
	assert.False(t, ok, "zero deviation")

	_, ok = CheckAlert(desc, samples(5, 4, 6, 5, 4, 6, 5, 4, 6, 5), 3)
	assert.False(t, ok, "inside band")
}

func TestCheckAlert_PopulationDeviation(t *testing.T) {
	a, ok := CheckAlert(schema.SensorDescriptor{}, samples(100, 0, 0, 0, 0, 0, 0, 0, 0, 0), 2)
	require.True(t, ok)
	assert.InDelta(t, 10.0, a.Mean, 1e-12)
	assert.InDelta(t, 30.0, a.StdDev, 1e-12)
	assert.InDelta(t, 3.0, a.Deviation, 1e-12)
	assert.Equal(t, Warning, a.Severity)
}

func TestSortAlerts(t *testing.T) {
	alerts := []Alert{
		{Column: "a", Severity: Warning, Deviation: 2.9},
		{Column: "b", Severity: Critical, Deviation: 3.5},
		{Column: "c", Severity: Warning, Deviation: 2.95},
		{Column: "d", Severity: Critical, Deviation: 6},
	}
	SortAlerts(alerts)

	var order []string
	for _, a := range alerts {
		order = append(order, a.Column)
	}
	assert.Equal(t, []string{"d", "b", "c", "a"}, order)
}
