package reconciler

import (
	"context"
	"errors"
	"slices"

	"github.com/alitto/pond/v2"
	"go.uber.org/zap"

	"github.com/canopy-network/sensorx/pkg/db"
	"github.com/canopy-network/sensorx/pkg/schema"
	"github.com/canopy-network/sensorx/pkg/series"
	"github.com/canopy-network/sensorx/pkg/utils"
)

// fetched is the joined output of the fetch stage.
type fetched struct {
	// recent is newest first.
	recent []db.Row
	// raw and simulated are the comparison table windows, ascending.
	raw       []db.Row
	simulated []db.Row
	// single is the primary table history, ascending.
	single    []db.Row
	reference []db.Row
}

type fetchJob struct {
	table string
	dst   *[]db.Row
	run   func(ctx context.Context) ([]db.Row, error)
}

// fetch runs every query of the plan on the shared pool. The first failure
// cancels the remaining queries.
func (e *Engine) fetch(ctx context.Context, p *plan) (fetched, error) {
	var out fetched
	jobs := e.fetchJobs(p, &out)

	group := e.pool.NewGroupContext(ctx)
	groupCtx := group.Context()
	for _, job := range jobs {
		group.SubmitErr(func() error {
			if err := groupCtx.Err(); err != nil {
				return &StageError{Stage: StageFetch, Table: job.table, Err: err}
			}
			rows, err := job.run(groupCtx)
			if err != nil {
				return &StageError{Stage: StageFetch, Table: job.table, Err: err}
			}
			*job.dst = rows
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		var stageErr *StageError
		if errors.As(err, &stageErr) {
			e.Logger.Warn("fetch failed",
				zap.String("table", stageErr.Table),
				zap.Error(stageErr.Err))
			return fetched{}, stageErr
		}
		if errors.Is(err, pond.ErrGroupStopped) && ctx.Err() != nil {
			err = ctx.Err()
		}
		return fetched{}, &StageError{Stage: StageFetch, Table: p.req.Table, Err: err}
	}
	if err := ctx.Err(); err != nil {
		return fetched{}, &StageError{Stage: StageFetch, Table: p.req.Table, Err: err}
	}

	if p.mode == ModeSingleTable && p.window == nil {
		// no window: the newest rows double as history
		n := min(len(out.recent), p.recentLimit)
		out.single = slices.Clone(out.recent[:n])
		slices.Reverse(out.single)
	}
	return out, nil
}

func (e *Engine) fetchJobs(p *plan, out *fetched) []fetchJob {
	primary := &p.schemas.primary
	var jobs []fetchJob

	recentCols := p.sensors
	if p.mode == ModeSingleTable {
		recentCols = historyColumns(primary, p.history, e.Config.MarkerColumn)
	}
	order := p.recentOrder(primary)
	recent := db.RowQuery{
		Table:       primary.Name,
		Columns:     withTime(p.timeColumn(primary), withOrder(order, recentCols)),
		TimeColumn:  p.timeColumn(primary),
		OrderColumn: order,
		Order:       db.OrderDesc,
		Limit:       max(p.recentLimit, e.Config.AlertLimit),
	}
	jobs = append(jobs, e.rowJob(recent, &out.recent))

	switch {
	case p.mode == ModeTwoTable:
		for _, side := range []struct {
			table *schema.Table
			dst   *[]db.Row
		}{
			{p.schemas.raw, &out.raw},
			{p.schemas.simulated, &out.simulated},
		} {
			jobs = append(jobs, e.rowJob(e.windowQuery(p, side.table, p.history), side.dst))
		}
	case p.mode == ModeSingleTable && p.window != nil && p.timeColumn(primary) != "":
		cols := historyColumns(primary, p.history, e.Config.MarkerColumn)
		jobs = append(jobs, e.rowJob(e.windowQuery(p, primary, cols), &out.single))
	}

	if p.wantsReference() {
		ref := p.referenceTable()
		ts := p.timeColumn(ref)
		switch {
		case p.req.ReferenceBucket > 0 && ts != "":
			q := db.AverageQuery{
				Table:      ref.Name,
				Columns:    p.history,
				TimeColumn: ts,
				TextTime:   ref.TimestampIsText(),
				Bucket:     p.req.ReferenceBucket,
				Limit:      e.Config.ReferenceLimit,
			}
			jobs = append(jobs, fetchJob{
				table: ref.Name,
				dst:   &out.reference,
				run: func(ctx context.Context) ([]db.Row, error) {
					return e.Store.QueryAverages(ctx, q)
				},
			})
		default:
			q := db.RowQuery{
				Table:      ref.Name,
				Columns:    withTime(ts, p.history),
				TimeColumn: ts,
				Order:      db.OrderAsc,
				Limit:      e.Config.ReferenceLimit,
			}
			jobs = append(jobs, e.rowJob(q, &out.reference))
		}
	}
	return jobs
}

func (e *Engine) windowQuery(p *plan, t *schema.Table, columns []string) db.RowQuery {
	ts := p.timeColumn(t)
	cols := columns
	if t.Has(e.Config.MarkerColumn) {
		cols = append(slices.Clone(cols), e.Config.MarkerColumn)
	}
	return db.RowQuery{
		Table:      t.Name,
		Columns:    withTime(ts, cols),
		TimeColumn: ts,
		TextTime:   t.TimestampIsText(),
		Order:      db.OrderAsc,
		Range:      p.window,
		Limit:      e.Config.HistoryLimit,
	}
}

func (e *Engine) rowJob(q db.RowQuery, dst *[]db.Row) fetchJob {
	return fetchJob{
		table: q.Table,
		dst:   dst,
		run: func(ctx context.Context) ([]db.Row, error) {
			return e.Store.QueryRows(ctx, q)
		},
	}
}

// historyColumns adds the companion and marker columns single-table history
// reads next to the sensors.
func historyColumns(t *schema.Table, sensors []string, marker string) []string {
	cols := slices.Clone(sensors)
	cols = append(cols, series.CompanionColumns(sensors, t.Has)...)
	if t.Has(marker) {
		cols = append(cols, marker)
	}
	return utils.Dedup(cols)
}

func withOrder(order string, columns []string) []string {
	if order == "" || slices.Contains(columns, order) {
		return columns
	}
	return append([]string{order}, columns...)
}

func withTime(ts string, columns []string) []string {
	if ts == "" {
		return utils.Dedup(columns)
	}
	return utils.Dedup(append([]string{ts}, columns...))
}
