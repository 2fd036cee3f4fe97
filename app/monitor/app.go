// Package monitor reconciles a fixed set of tables on a cron schedule and
// publishes every result.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/puzpuzpuz/xsync/v4"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/canopy-network/sensorx/pkg/db"
	"github.com/canopy-network/sensorx/pkg/logging"
	"github.com/canopy-network/sensorx/pkg/reconciler"
	"github.com/canopy-network/sensorx/pkg/utils"
)

// Config is read from MONITOR_* variables.
type Config struct {
	Tables   []string
	CronSpec string
	History  bool
	Location *time.Location
	Addr     string
}

// ConfigFromEnv reads MONITOR_TABLES, MONITOR_CRON, MONITOR_HISTORY,
// MONITOR_TIMEZONE and ADDR.
func ConfigFromEnv() (Config, error) {
	loc, err := time.LoadLocation(utils.Env("MONITOR_TIMEZONE", "UTC"))
	if err != nil {
		return Config{}, fmt.Errorf("MONITOR_TIMEZONE: %w", err)
	}
	cfg := Config{
		Tables:   utils.SplitList(utils.Env("MONITOR_TABLES", "")),
		CronSpec: utils.Env("MONITOR_CRON", "0 * * * * *"),
		History:  utils.EnvBool("MONITOR_HISTORY", true),
		Location: loc,
		// use <ip>:<port> to bind to a specific interface or :<port> to bind to all interfaces
		Addr: utils.Env("ADDR", ":3002"),
	}
	if len(cfg.Tables) == 0 {
		return Config{}, errors.New("MONITOR_TABLES is empty")
	}
	return cfg, nil
}

// App runs the engine over Config.Tables every Cron tick.
type App struct {
	Config    Config
	Engine    Runner
	Store     db.Store
	Publisher ResultPublisher // nil disables publishing

	// Cron is the scheduler that triggers runs according to Config.CronSpec.
	Cron *cron.Cron

	// Runs holds the latest outcome per table.
	Runs *xsync.Map[string, *TableRun]

	Logger *zap.Logger
	Server *http.Server

	now     func() time.Time
	closers []func() error
}

func New(cfg Config, engine Runner, store db.Store, pub ResultPublisher, logger *zap.Logger) *App {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &App{
		Config:    cfg,
		Engine:    engine,
		Store:     store,
		Publisher: pub,
		Runs:      xsync.NewMap[string, *TableRun](),
		Logger:    logging.OrNop(logger),
		now:       time.Now,
	}
}

// SetupScheduler registers the run on the cron scheduler. Ticks that arrive
// while a run is in progress are skipped.
func (a *App) SetupScheduler(ctx context.Context) error {
	logger := cronLogger{a.Logger.Sugar()}
	// Seconds field, optional
	a.Cron = cron.New(cron.WithSeconds(), cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)))

	_, err := a.Cron.AddFunc(a.Config.CronSpec, func() {
		if err := a.Reconcile(ctx); err != nil {
			a.Logger.Warn("[monitor] run finished with errors", zap.Error(err))
		}
	})
	return err
}

func (a *App) StartCron() {
	a.Cron.Start()
	a.Logger.Info("[monitor] Cron started",
		zap.String("cronSpec", a.Config.CronSpec),
		zap.Strings("tables", a.Config.Tables))
}

func (a *App) StopCron() {
	if a.Cron != nil {
		<-a.Cron.Stop().Done()
	}
}

// Reconcile runs every table once. A failing table does not stop the others;
// all failures are joined into the returned error.
func (a *App) Reconcile(ctx context.Context) error {
	var errs []error
	for _, table := range a.Config.Tables {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := a.runTable(ctx, table); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// ReconcileOnce is a convenience wrapper for Reconcile.
func (a *App) ReconcileOnce(ctx context.Context) {
	if err := a.Reconcile(ctx); err != nil {
		a.Logger.Warn("[monitor] initial run finished with errors", zap.Error(err))
	}
}

func (a *App) runTable(ctx context.Context, table string) error {
	start := a.now()
	req := reconciler.Request{Table: table, History: a.Config.History}
	if a.Config.History {
		req.Location = a.Config.Location
		req.Date = start.In(a.Config.Location).Format("2006-01-02")
	}

	res, err := a.Engine.Run(ctx, req)
	run := &TableRun{Table: table, StartedAt: start}
	if err == nil {
		run.Status = res.Status
		run.Mode = res.Mode
		run.Sensors = len(res.Sensors)
		run.DataPoints = res.DataPoints
		run.Outliers = len(res.Outliers())
		run.Alerts = len(res.Alerts)
		if a.Publisher != nil && res.Status == reconciler.StatusOK {
			err = a.Publisher.PublishResult(ctx, res)
		}
	}
	run.Duration = a.now().Sub(start)
	if err != nil {
		run.Error = err.Error()
		a.Logger.Warn("[monitor] table run failed", zap.String("table", table), zap.Error(err))
	}

	a.Runs.Compute(table, func(prev *TableRun, loaded bool) (*TableRun, xsync.ComputeOp) {
		if loaded {
			run.Runs = prev.Runs
		}
		run.Runs++
		return run, xsync.UpdateOp
	})

	if err != nil {
		return fmt.Errorf("%s: %w", table, err)
	}
	a.Logger.Info("[monitor] table reconciled",
		zap.String("table", table),
		zap.String("status", string(run.Status)),
		zap.Int("outliers", run.Outliers),
		zap.Int("alerts", run.Alerts),
		zap.Duration("took", run.Duration))
	return nil
}

// Ready reports whether the store answers within a short deadline.
func (a *App) Ready(ctx context.Context) bool {
	if a.Store == nil {
		return false
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return a.Store.Ping(ctx) == nil
}

// Start serves HTTP until ctx is done, then shuts everything down.
func (a *App) Start(ctx context.Context) {
	go func() {
		if err := a.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.Logger.Error("[monitor] server stopped", zap.Error(err))
		}
	}()
	<-ctx.Done()
	_ = a.Server.Close()
	a.Logger.Info("[monitor] shutting down…")
	a.StopCron()
	a.close()
}

// cronLogger adapts zap to the cron.Logger interface.
type cronLogger struct {
	s *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.s.Debugw("[cron] "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.s.Errorw("[cron] "+msg, append(keysAndValues, "error", err)...)
}
