// Package anomaly merges divergence, explicit markers, bound violations and
// missing-data sentinels into one outlier verdict per point.
package anomaly

import (
	"math"

	"github.com/canopy-network/sensorx/pkg/bounds"
	"github.com/canopy-network/sensorx/pkg/series"
)

const (
	// MarkerValue in the marker column means an upstream system flagged the point.
	MarkerValue = -1.0
	// DefaultMarkerColumn is the marker column name looked for in process tables.
	DefaultMarkerColumn = "anomaly_depth"
)

// IsSentinel reports whether v is a "no real reading" placeholder rather than
// a measurement: non-finite, -999, -9999, or at or below -100 unless the
// domain allows such values.
func IsSentinel(v float64, d bounds.Domain) bool {
	switch {
	case math.IsNaN(v), math.IsInf(v, 0):
		return true
	case v == -999, v == -9999:
		return true
	case v <= -100:
		return !d.NegativeScaleValid
	default:
		return false
	}
}

type Verdict struct {
	IsOutlier bool   `json:"is_outlier"`
	Reasons   Reason `json:"reasons"`
}

// Point is a reconciled row with its verdict and the value to plot.
type Point struct {
	series.ReconciledRow
	// Value is the displayed reading clamped into the domain, or the raw
	// reading when the point diverged. Nil when absent.
	Value *float64 `json:"value"`
	Verdict
}

// Classify evaluates every rule independently against row. b may be nil when
// the sensor has no bounds.
func Classify(row series.ReconciledRow, b *bounds.Bounds, d bounds.Domain) Point {
	p := Point{ReconciledRow: row}

	if row.IsDiverged {
		p.Reasons |= Diverged
	}
	if row.Marker != nil && *row.Marker == MarkerValue {
		p.Reasons |= ExplicitMarker
	}

	if shown := row.Displayed(); shown != nil {
		v := *shown
		if IsSentinel(v, d) {
			p.Reasons |= Sentinel
		} else {
			v = d.ClampValue(v)
			if b != nil && !b.Contains(v) {
				p.Reasons |= OutOfBounds
			}
		}
		p.Value = &v
	}
	if p.Reasons.Has(Diverged) {
		p.Value = row.Raw
	}

	p.IsOutlier = p.Reasons != None
	return p
}

// ClassifyAll classifies rows of one sensor against the same bounds.
func ClassifyAll(rows []series.ReconciledRow, b *bounds.Bounds, d bounds.Domain) []Point {
	out := make([]Point, len(rows))
	for i, r := range rows {
		out[i] = Classify(r, b, d)
	}
	return out
}
