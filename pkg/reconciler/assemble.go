package reconciler

import (
	"github.com/canopy-network/sensorx/pkg/anomaly"
	"github.com/canopy-network/sensorx/pkg/bounds"
	"github.com/canopy-network/sensorx/pkg/db"
	"github.com/canopy-network/sensorx/pkg/schema"
	"github.com/canopy-network/sensorx/pkg/series"
	"github.com/canopy-network/sensorx/pkg/timekey"
	"github.com/canopy-network/sensorx/pkg/trend"
	"github.com/canopy-network/sensorx/pkg/utils"
)

// assemble runs the synchronous stages over fetched rows.
func (e *Engine) assemble(p *plan, d fetched) *Result {
	res := &Result{
		Table:   p.req.Table,
		Status:  StatusOK,
		Mode:    p.mode,
		Window:  p.window,
		Match:   p.match,
		Sensors: []trend.Snapshot{},
		Alerts:  []trend.Alert{},
	}

	descs := map[string]schema.SensorDescriptor{}
	for _, name := range utils.Dedup(append(append([]string{}, p.sensors...), p.history...)) {
		descs[name] = e.Labels.Describe(name)
		res.Descriptors = append(res.Descriptors, descs[name])
	}

	recent := d.recent[:min(len(d.recent), p.recentLimit)]
	alertRows := d.recent[:min(len(d.recent), e.Config.AlertLimit)]
	for _, s := range p.sensors {
		if snap, ok := trend.Compute(descs[s], samples(recent, s)); ok {
			res.Sensors = append(res.Sensors, snap)
		}
		if a, ok := trend.CheckAlert(descs[s], samples(alertRows, s), e.Config.AlertSigma); ok {
			res.Alerts = append(res.Alerts, a)
		}
	}
	trend.SortAlerts(res.Alerts)

	if p.mode == ModeNone {
		return res
	}

	var rows []series.ReconciledRow
	fallback := d.raw
	switch p.mode {
	case ModeTwoTable:
		rows = series.Reconcile(d.raw, d.simulated, series.Options{
			Sensors:             p.history,
			RawTimeColumn:       p.timeColumn(p.schemas.raw),
			SimulatedTimeColumn: p.timeColumn(p.schemas.simulated),
			MarkerColumn:        e.Config.MarkerColumn,
			Granularity:         timekey.Minute,
			Location:            p.location(),
		})
	case ModeSingleTable:
		rows = series.FromSingleTable(d.single, series.SingleTableOptions{
			Sensors:      p.history,
			TimeColumn:   p.timeColumn(&p.schemas.primary),
			MarkerColumn: e.Config.MarkerColumn,
			Location:     p.location(),
		})
		fallback = nil
	}
	res.DataPoints = len(rows) / len(p.history)

	res.History = make(map[string][]anomaly.Point, len(p.history))
	res.Bounds = map[string]bounds.Bounds{}
	res.Scales = map[string]anomaly.Scale{}
	grouped := series.GroupBySensor(rows)
	for _, s := range p.history {
		domain := domainFor(descs[s])
		opts := bounds.Options{
			Multiplier: e.Config.IQRMultiplier,
			Domain:     &domain,
			Exclude:    func(v float64) bool { return anomaly.IsSentinel(v, domain) },
		}

		b, ok := bounds.Compute(values(d.reference, s), opts)
		if !ok {
			window := values(fallback, s)
			if fallback == nil {
				window = rawValues(grouped[s])
			}
			b, ok = bounds.Compute(window, opts)
		}
		var bp *bounds.Bounds
		if ok {
			res.Bounds[s] = b
			bp = &b
		}

		points := anomaly.ClassifyAll(grouped[s], bp, domain)
		res.History[s] = points
		if sc, ok := anomaly.ComputeScale(points, bp); ok {
			res.Scales[s] = sc
		}
	}
	return res
}

func domainFor(d schema.SensorDescriptor) bounds.Domain {
	if d.IsPercent() {
		return bounds.Percent
	}
	return bounds.Domain{}
}

func samples(rows []db.Row, column string) []*float64 {
	out := make([]*float64, len(rows))
	for i, r := range rows {
		out[i] = series.Float(r[column])
	}
	return out
}

func values(rows []db.Row, column string) []float64 {
	out := make([]float64, 0, len(rows))
	for _, r := range rows {
		if v := series.Float(r[column]); v != nil {
			out = append(out, *v)
		}
	}
	return out
}

func rawValues(rows []series.ReconciledRow) []float64 {
	out := make([]float64, 0, len(rows))
	for _, r := range rows {
		if r.Raw != nil {
			out = append(out, *r.Raw)
		}
	}
	return out
}
