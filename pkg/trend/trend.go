// Package trend labels a sensor's newest reading against its recent average
// and raises sigma alerts on the newest reading.
package trend

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/canopy-network/sensorx/pkg/schema"
)

type Direction string

const (
	Up     Direction = "up"
	Down   Direction = "down"
	Stable Direction = "stable"
)

const (
	// Deadband is the percent change at or below which a sensor is Stable.
	Deadband = 2.0
	// ReferenceWindow is how many samples after the newest one are averaged.
	ReferenceWindow = 5
	// MinSamples is the fewest valid samples that yield a snapshot.
	MinSamples = 2
)

type Snapshot struct {
	Name             string    `json:"name"`
	DisplayLabel     string    `json:"display_label"`
	Unit             string    `json:"unit"`
	CurrentValue     float64   `json:"current_value"`
	PreviousValue    float64   `json:"previous_value"`
	ReferenceAverage float64   `json:"reference_average"`
	Trend            Direction `json:"trend"`
	ChangePercent    float64   `json:"change_percent"`
}

// Valid keeps the finite present values, preserving order.
func Valid(samples []*float64) []float64 {
	out := make([]float64, 0, len(samples))
	for _, s := range samples {
		if s == nil || math.IsNaN(*s) || math.IsInf(*s, 0) {
			continue
		}
		out = append(out, *s)
	}
	return out
}

// Compute builds a snapshot from samples ordered newest first. ok is false
// when fewer than MinSamples valid values remain.
func Compute(d schema.SensorDescriptor, samples []*float64) (Snapshot, bool) {
	values := Valid(samples)
	if len(values) < MinSamples {
		return Snapshot{}, false
	}

	current := values[0]
	reference := values[1:min(len(values), ReferenceWindow+1)]
	avg := stat.Mean(reference, nil)

	change := 0.0
	if avg != 0 {
		change = (current - avg) / avg * 100
	}

	return Snapshot{
		Name:             d.ColumnName,
		DisplayLabel:     d.DisplayLabel,
		Unit:             d.Unit,
		CurrentValue:     current,
		PreviousValue:    values[1],
		ReferenceAverage: avg,
		Trend:            Classify(change),
		ChangePercent:    change,
	}, true
}

// Classify maps a percent change to a direction using Deadband.
func Classify(changePercent float64) Direction {
	switch {
	case math.Abs(changePercent) <= Deadband:
		return Stable
	case changePercent > 0:
		return Up
	default:
		return Down
	}
}
