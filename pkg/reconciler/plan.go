package reconciler

import (
	"slices"
	"strings"
	"time"

	"github.com/canopy-network/sensorx/pkg/db"
	"github.com/canopy-network/sensorx/pkg/schema"
	"github.com/canopy-network/sensorx/pkg/series"
)

// plan is everything decided before fetching. The sensor sets are fixed
// here and never revisited during the request.
type plan struct {
	req     Request
	window  *db.TimeRange
	schemas tableSchemas
	mode    Mode
	match   *schema.MatchResult

	// sensors get trends and alerts; history sensors get reconciled history.
	sensors []string
	history []string

	recentLimit int
	// lotQuery ranks recent rows by the identifier column when there is one.
	lotQuery bool
}

func (e *Engine) plan(req Request, window *db.TimeRange, schemas tableSchemas) *plan {
	p := &plan{
		req:         req,
		window:      window,
		schemas:     schemas,
		recentLimit: e.Config.RecentLimit,
	}

	primary := schemas.primary
	p.sensors = withoutCompanions(primary.SensorNames(), primary.Has)

	var selected []string
	if strings.TrimSpace(req.Query) != "" {
		m := e.Matcher.Match(req.Query, primary.Numeric())
		p.match = &m
		p.lotQuery = schema.IsLotQuery(req.Query)
		if m.RowLimit > 0 {
			p.recentLimit = m.RowLimit
		}
		if len(m.Selected) > 0 {
			selected = m.Selected
			p.sensors = selected
		}
	}
	if len(p.sensors) == 0 || !req.History {
		return p
	}

	if common := e.comparisonSensors(schemas); len(common) > 0 {
		p.mode = ModeTwoTable
		p.history = narrow(common, selected)
		return p
	}
	p.mode = ModeSingleTable
	p.history = p.sensors
	return p
}

// comparisonSensors returns the sensor columns both comparison tables have,
// in raw table order. Nil when either table is absent or has no timestamp.
func (e *Engine) comparisonSensors(s tableSchemas) []string {
	if s.raw == nil || s.simulated == nil {
		return nil
	}
	if _, ok := s.raw.TimestampColumn(); !ok {
		return nil
	}
	if _, ok := s.simulated.TimestampColumn(); !ok {
		return nil
	}
	var out []string
	for _, name := range s.raw.SensorNames() {
		if c, ok := s.simulated.Lookup(name); ok && c.Role == schema.RoleSensor {
			out = append(out, name)
		}
	}
	return out
}

// narrow keeps the members of all that were selected, or all of them when
// the selection does not overlap.
func narrow(all, selected []string) []string {
	if len(selected) == 0 {
		return all
	}
	var out []string
	for _, s := range all {
		if slices.Contains(selected, s) {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return all
	}
	return out
}

// withoutCompanions drops columns such as temperature_simulation when the
// table also has the base sensor column.
func withoutCompanions(sensors []string, has func(string) bool) []string {
	out := make([]string, 0, len(sensors))
	for _, s := range sensors {
		companion := false
		for _, suffix := range series.SimulatedSuffixes {
			if base, ok := strings.CutSuffix(s, suffix); ok && base != "" && has(base) {
				companion = true
				break
			}
		}
		if !companion {
			out = append(out, s)
		}
	}
	return out
}

func (p *plan) timeColumn(t *schema.Table) string {
	if c, ok := t.TimestampColumn(); ok {
		return c.Name
	}
	return ""
}

// recentOrder is the column the newest rows of t are taken by: the timestamp,
// else the identifier. A lot query prefers the identifier.
func (p *plan) recentOrder(t *schema.Table) string {
	id, hasID := t.IdentifierColumn()
	if p.lotQuery && hasID {
		return id.Name
	}
	if ts := p.timeColumn(t); ts != "" {
		return ts
	}
	if hasID {
		return id.Name
	}
	return ""
}

// location is the zone time keys are rendered in.
func (p *plan) location() *time.Location {
	if p.req.Location != nil {
		return p.req.Location
	}
	return time.UTC
}

// referenceTable is where bounds samples come from.
func (p *plan) referenceTable() *schema.Table {
	if p.mode == ModeTwoTable {
		return p.schemas.raw
	}
	return &p.schemas.primary
}

// wantsReference reports whether a separate reference sample is fetched.
// Without one, bounds come from the window's raw values.
func (p *plan) wantsReference() bool {
	return p.mode != ModeNone && (p.req.ReferenceFromAll || p.req.ReferenceBucket > 0)
}
