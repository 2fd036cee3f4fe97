package trend

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/canopy-network/sensorx/pkg/schema"
)

type Severity string

const (
	Warning  Severity = "warning"
	Critical Severity = "critical"
)

const (
	// DefaultSigma is the band half-width in standard deviations.
	DefaultSigma = 3.0
	// CriticalDeviation is the deviation above which an alert is critical.
	CriticalDeviation = 3.0
	// MinAlertSamples is the fewest valid samples an alert is computed from.
	MinAlertSamples = 10
)

type Alert struct {
	Column       string   `json:"column"`
	DisplayLabel string   `json:"display_label"`
	Unit         string   `json:"unit"`
	CurrentValue float64  `json:"current_value"`
	Mean         float64  `json:"mean"`
	StdDev       float64  `json:"std_dev"`
	UpperLimit   float64  `json:"upper_limit"`
	LowerLimit   float64  `json:"lower_limit"`
	Deviation    float64  `json:"deviation"`
	Severity     Severity `json:"severity"`
}

// CheckAlert tests the newest of samples (newest first) against
// mean ± sigma·σ of all of them, using the population deviation. ok is false
// when there are too few samples, the deviation is zero or the newest value
// is inside the band.
func CheckAlert(d schema.SensorDescriptor, samples []*float64, sigma float64) (Alert, bool) {
	if sigma <= 0 {
		sigma = DefaultSigma
	}
	values := Valid(samples)
	n := len(values)
	if n < MinAlertSamples {
		return Alert{}, false
	}

	mean, variance := stat.MeanVariance(values, nil)
	std := math.Sqrt(variance * float64(n-1) / float64(n))
	if std == 0 {
		return Alert{}, false
	}

	current := values[0]
	a := Alert{
		Column:       d.ColumnName,
		DisplayLabel: d.DisplayLabel,
		Unit:         d.Unit,
		CurrentValue: current,
		Mean:         mean,
		StdDev:       std,
		UpperLimit:   mean + sigma*std,
		LowerLimit:   mean - sigma*std,
		Deviation:    math.Abs(current-mean) / std,
	}
	if current <= a.UpperLimit && current >= a.LowerLimit {
		return Alert{}, false
	}
	a.Severity = Warning
	if a.Deviation > CriticalDeviation {
		a.Severity = Critical
	}
	return a, true
}

// SortAlerts puts critical alerts first, then larger deviations.
func SortAlerts(alerts []Alert) {
	sort.SliceStable(alerts, func(i, j int) bool {
		ci, cj := alerts[i].Severity == Critical, alerts[j].Severity == Critical
		if ci != cj {
			return ci
		}
		return alerts[i].Deviation > alerts[j].Deviation
	})
}
