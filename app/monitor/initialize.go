package monitor

import (
	"context"

	"go.uber.org/zap"

	"github.com/canopy-network/sensorx/pkg/logging"
	"github.com/canopy-network/sensorx/pkg/publisher"
	"github.com/canopy-network/sensorx/pkg/reconciler"
	"github.com/canopy-network/sensorx/pkg/utils"
)

// Initialize wires the App from the environment: store, engine, optional
// Redis publisher and scheduler.
func Initialize(ctx context.Context) (*App, error) {
	logger, err := logging.New()
	if err != nil {
		// nothing else to do here, we'll just log to stderr
		panic(err)
	}

	cfg, err := ConfigFromEnv()
	if err != nil {
		return nil, err
	}

	store, err := OpenStore(ctx, logger)
	if err != nil {
		return nil, err
	}

	engine, err := reconciler.NewEngine(store, reconciler.ConfigFromEnv(), logger)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	app := New(cfg, engine, store, nil, logger)
	app.closers = append(app.closers, store.Close, func() error { engine.Close(); return nil })

	if utils.EnvBool("REDIS_ENABLED", false) {
		client, err := publisher.NewClient(ctx, logger)
		if err != nil {
			app.close()
			return nil, err
		}
		app.Publisher = publisher.New(client, logger)
		app.closers = append(app.closers, client.Close)
	}

	if err := app.SetupScheduler(ctx); err != nil {
		app.close()
		return nil, err
	}
	return app, nil
}

// close releases resources in reverse acquisition order.
func (a *App) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.Logger.Warn("[monitor] close failed", zap.Error(err))
		}
	}
	a.closers = nil
}
