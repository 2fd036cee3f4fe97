// Package bounds computes IQR control limits from a reference sample.
package bounds

import (
	"math"
	"sort"
)

const (
	// DefaultMultiplier places the limits at the extreme-outlier fences.
	DefaultMultiplier = 3.0
	// MinSamples is the smallest sample that yields bounds.
	MinSamples = 4
	// minIQR keeps a constant sample from producing zero-width bounds.
	minIQR = 1e-9
)

// Domain is the physically possible value range of a sensor.
type Domain struct {
	Floor float64 `json:"floor"`
	Ceil  float64 `json:"ceil"`
	// Clamp enables clamping sample values into [Floor, Ceil] and flooring a
	// negative lower bound.
	Clamp bool `json:"clamp"`
	// NegativeScaleValid allows readings at or below -100 such as cryogenic
	// temperatures.
	NegativeScaleValid bool `json:"negative_scale_valid"`
}

// Percent is the domain of readings reported in percent.
var Percent = Domain{Floor: 0, Ceil: 100, Clamp: true}

// ClampValue clamps v into the domain when clamping is enabled.
func (d Domain) ClampValue(v float64) float64 {
	if !d.Clamp {
		return v
	}
	return math.Max(d.Floor, math.Min(d.Ceil, v))
}

type Bounds struct {
	Lower      float64 `json:"lower"`
	Upper      float64 `json:"upper"`
	Q1         float64 `json:"q1"`
	Q3         float64 `json:"q3"`
	IQR        float64 `json:"iqr"`
	SampleSize int     `json:"sample_size"`
}

// Contains reports whether v lies within [Lower, Upper].
func (b Bounds) Contains(v float64) bool {
	return v >= b.Lower && v <= b.Upper
}

type Options struct {
	// Multiplier defaults to DefaultMultiplier when zero.
	Multiplier float64
	Domain     *Domain
	// Exclude drops values before counting, typically sentinels.
	Exclude func(float64) bool
}

// Compute returns bounds for sample, or ok=false when fewer than MinSamples
// finite values remain after exclusions.
func Compute(sample []float64, opts Options) (b Bounds, ok bool) {
	k := opts.Multiplier
	if k <= 0 {
		k = DefaultMultiplier
	}

	values := make([]float64, 0, len(sample))
	for _, v := range sample {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		if opts.Exclude != nil && opts.Exclude(v) {
			continue
		}
		if opts.Domain != nil {
			v = opts.Domain.ClampValue(v)
		}
		values = append(values, v)
	}
	if len(values) < MinSamples {
		return Bounds{}, false
	}
	sort.Float64s(values)

	q1 := Quantile(values, 0.25)
	q3 := Quantile(values, 0.75)
	iqr := math.Max(q3-q1, minIQR)

	b = Bounds{
		Lower:      q1 - k*iqr,
		Upper:      q3 + k*iqr,
		Q1:         q1,
		Q3:         q3,
		IQR:        iqr,
		SampleSize: len(values),
	}
	if opts.Domain != nil && opts.Domain.Clamp && b.Lower < opts.Domain.Floor {
		b.Lower = opts.Domain.Floor
	}
	return b, true
}

// Quantile interpolates linearly between the order statistics around rank
// p*(n-1). sorted must be ascending and non-empty.
func Quantile(sorted []float64, p float64) float64 {
	rank := p * float64(len(sorted)-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo == hi {
		return sorted[lo]
	}
	frac := rank - float64(lo)
	return sorted[lo] + frac*(sorted[hi]-sorted[lo])
}
