package anomaly

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/canopy-network/sensorx/pkg/bounds"
)

// Scale is the display range of one sensor's chart.
type Scale struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// ComputeScale spans the finite values of non-outlier points plus the bound
// lines. Outliers never widen the scale. ok is false when nothing remains.
func ComputeScale(points []Point, b *bounds.Bounds) (Scale, bool) {
	values := make([]float64, 0, len(points)+2)
	for _, p := range points {
		if p.IsOutlier || p.Value == nil {
			continue
		}
		if v := *p.Value; !math.IsNaN(v) && !math.IsInf(v, 0) {
			values = append(values, v)
		}
	}
	if b != nil {
		values = append(values, b.Lower, b.Upper)
	}
	if len(values) == 0 {
		return Scale{}, false
	}
	return Scale{Min: floats.Min(values), Max: floats.Max(values)}, true
}
