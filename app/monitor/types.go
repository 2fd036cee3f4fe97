package monitor

import (
	"context"
	"time"

	"github.com/canopy-network/sensorx/pkg/reconciler"
)

// Runner executes one reconciliation request.
type Runner interface {
	Run(ctx context.Context, req reconciler.Request) (*reconciler.Result, error)
}

// ResultPublisher hands results to downstream consumers.
type ResultPublisher interface {
	PublishResult(ctx context.Context, res *reconciler.Result) error
}

// TableRun is the outcome of the latest run for one table.
type TableRun struct {
	Table      string            `json:"table"`
	StartedAt  time.Time         `json:"started_at"`
	Duration   time.Duration     `json:"duration"`
	Status     reconciler.Status `json:"status,omitempty"`
	Mode       reconciler.Mode   `json:"mode,omitempty"`
	Sensors    int               `json:"sensors"`
	DataPoints int               `json:"data_points"`
	Outliers   int               `json:"outliers"`
	Alerts     int               `json:"alerts"`
	Error      string            `json:"error,omitempty"`
	Runs       uint64            `json:"runs"`
}
