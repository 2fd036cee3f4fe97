package reconciler

import (
	"errors"
	"fmt"
	"time"

	"github.com/canopy-network/sensorx/pkg/anomaly"
	"github.com/canopy-network/sensorx/pkg/bounds"
	"github.com/canopy-network/sensorx/pkg/db"
	"github.com/canopy-network/sensorx/pkg/schema"
	"github.com/canopy-network/sensorx/pkg/trend"
)

var (
	// ErrNoSchema is returned when the requested table does not exist.
	ErrNoSchema = errors.New("no schema for table")
	// ErrInvalidRequest is returned for malformed requests.
	ErrInvalidRequest = errors.New("invalid request")
)

// Stage names a pipeline step in StageError.
type Stage string

const (
	StageSchema Stage = "schema"
	StageFetch  Stage = "fetch"
)

// StageError reports an upstream failure. The message names the stage and
// table only; the cause is available through errors.Unwrap.
type StageError struct {
	Stage Stage
	Table string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s stage failed for table %q", e.Stage, e.Table)
}

func (e *StageError) Unwrap() error { return e.Err }

type Status string

const (
	StatusOK              Status = "ok"
	StatusNoSensorColumns Status = "no_sensor_columns"
)

// Mode tells how history was reconciled.
type Mode string

const (
	ModeNone        Mode = ""
	ModeTwoTable    Mode = "two_table"
	ModeSingleTable Mode = "single_table"
)

// Request is one reconciliation run against Table.
type Request struct {
	Table string `json:"table"`
	// Query narrows the sensors through the column matcher.
	Query string `json:"query,omitempty"`
	// History asks for reconciled, classified history next to the trends.
	History bool `json:"history"`
	// Date selects a calendar day (YYYY-MM-DD) in Location. Window is used
	// when Date is empty.
	Date     string         `json:"date,omitempty"`
	Window   *db.TimeRange  `json:"-"`
	Location *time.Location `json:"-"`
	// ReferenceFromAll takes bounds from the whole raw table instead of the
	// window.
	ReferenceFromAll bool `json:"reference_from_all,omitempty"`
	// ReferenceBucket, when set, averages the reference sample per bucket.
	ReferenceBucket time.Duration `json:"reference_bucket,omitempty"`
}

// Result is the outcome of one Run.
type Result struct {
	Table       string                     `json:"table"`
	Status      Status                     `json:"status"`
	Mode        Mode                       `json:"mode,omitempty"`
	Descriptors []schema.SensorDescriptor  `json:"descriptors"`
	Sensors     []trend.Snapshot           `json:"sensors"`
	Alerts      []trend.Alert              `json:"alerts"`
	History     map[string][]anomaly.Point `json:"history,omitempty"`
	Bounds      map[string]bounds.Bounds   `json:"bounds,omitempty"`
	Scales      map[string]anomaly.Scale   `json:"scales,omitempty"`
	// DataPoints counts the reconciled time keys.
	DataPoints int                 `json:"data_points"`
	Window     *db.TimeRange       `json:"window,omitempty"`
	Match      *schema.MatchResult `json:"match,omitempty"`
}

// Outliers returns every outlier point of every sensor in sensor order.
func (r *Result) Outliers() []anomaly.Point {
	var out []anomaly.Point
	for _, d := range r.Descriptors {
		for _, p := range r.History[d.ColumnName] {
			if p.IsOutlier {
				out = append(out, p)
			}
		}
	}
	return out
}
