// Package reconciler runs the per-request pipeline: schema discovery, sensor
// selection, concurrent fetches, then trends, reconciled history, bounds and
// outlier classification.
package reconciler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/alitto/pond/v2"
	"go.uber.org/zap"

	"github.com/canopy-network/sensorx/pkg/db"
	"github.com/canopy-network/sensorx/pkg/logging"
	"github.com/canopy-network/sensorx/pkg/schema"
)

type Engine struct {
	Store   db.Store
	Labels  *schema.Labels
	Matcher *schema.Matcher
	Config  Config
	Logger  *zap.Logger

	pool pond.Pool
}

// NewEngine loads the label table and starts the shared fetch pool.
func NewEngine(store db.Store, cfg Config, logger *zap.Logger) (*Engine, error) {
	if store == nil {
		return nil, errors.New("reconciler: nil store")
	}
	cfg = cfg.withDefaults()
	labels, err := schema.LoadLabels(cfg.LabelsFile, cfg.LabelLocale)
	if err != nil {
		return nil, err
	}
	return &Engine{
		Store:   store,
		Labels:  labels,
		Matcher: schema.NewMatcher(nil),
		Config:  cfg,
		Logger:  logging.OrNop(logger),
		pool:    pond.NewPool(cfg.FetchConcurrency, pond.WithQueueSize(cfg.FetchConcurrency*8)),
	}, nil
}

// Close waits for in-flight fetches and stops the pool.
func (e *Engine) Close() {
	e.pool.StopAndWait()
}

// Run executes one request. Upstream failures abort the whole request with a
// *StageError; nothing partial is returned.
func (e *Engine) Run(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()
	if err := db.ValidateIdentifier(req.Table); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	window, err := resolveWindow(req)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, e.Config.RequestTimeout)
	defer cancel()

	schemas, err := e.loadSchemas(ctx, req.Table, req.History && window != nil)
	if err != nil {
		return nil, err
	}

	plan := e.plan(req, window, schemas)
	if len(plan.sensors) == 0 {
		e.Logger.Info("no sensor columns", zap.String("table", req.Table))
		return &Result{
			Table:       req.Table,
			Status:      StatusNoSensorColumns,
			Descriptors: []schema.SensorDescriptor{},
			Match:       plan.match,
		}, nil
	}

	data, err := e.fetch(ctx, plan)
	if err != nil {
		return nil, err
	}

	res := e.assemble(plan, data)
	e.Logger.Debug("reconciled",
		zap.String("table", req.Table),
		zap.String("mode", string(res.Mode)),
		zap.Int("sensors", len(res.Sensors)),
		zap.Int("data_points", res.DataPoints),
		zap.Duration("took", time.Since(start)))
	return res, nil
}

func resolveWindow(req Request) (*db.TimeRange, error) {
	if req.Date != "" {
		w, err := db.ParseDay(req.Date, req.Location)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
		}
		return &w, nil
	}
	if req.Window != nil {
		if !req.Window.End.After(req.Window.Start) {
			return nil, fmt.Errorf("%w: empty window", ErrInvalidRequest)
		}
		w := *req.Window
		return &w, nil
	}
	return nil, nil
}

// tableSchemas holds the classified tables of one request. raw and simulated
// are nil when the comparison tables are absent or not needed.
type tableSchemas struct {
	primary   schema.Table
	raw       *schema.Table
	simulated *schema.Table
}

// loadSchemas lists the primary table and, when comparing, both comparison
// tables concurrently. Missing comparison tables are not an error.
func (e *Engine) loadSchemas(ctx context.Context, table string, compare bool) (tableSchemas, error) {
	names := []string{table}
	if compare {
		names = append(names, e.Config.RawTable, e.Config.SimulatedTable)
	}
	columns := make([][]db.Column, len(names))
	errs := make([]error, len(names))

	group := e.pool.NewGroupContext(ctx)
	groupCtx := group.Context()
	for i, name := range names {
		group.Submit(func() {
			if err := groupCtx.Err(); err != nil {
				errs[i] = err
				return
			}
			columns[i], errs[i] = e.Store.ListColumns(groupCtx, name)
		})
	}
	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, pond.ErrGroupStopped) {
		e.Logger.Warn("schema lookups encountered error", zap.String("table", table), zap.Error(err))
	}
	if err := ctx.Err(); err != nil {
		return tableSchemas{}, &StageError{Stage: StageSchema, Table: table, Err: err}
	}

	var out tableSchemas
	switch {
	case errors.Is(errs[0], db.ErrTableNotFound):
		return out, fmt.Errorf("%w: %q", ErrNoSchema, table)
	case errs[0] != nil:
		return out, &StageError{Stage: StageSchema, Table: table, Err: errs[0]}
	}
	out.primary = schema.Classify(table, columns[0])
	if !compare {
		return out, nil
	}

	found := make([]*schema.Table, 2)
	for i := 1; i < len(names); i++ {
		switch {
		case errors.Is(errs[i], db.ErrTableNotFound):
			e.Logger.Debug("comparison table missing", zap.String("table", names[i]))
		case errs[i] != nil:
			return out, &StageError{Stage: StageSchema, Table: names[i], Err: errs[i]}
		default:
			t := schema.Classify(names[i], columns[i])
			found[i-1] = &t
		}
	}
	if found[0] != nil && found[1] != nil {
		out.raw, out.simulated = found[0], found[1]
	}
	return out, nil
}
