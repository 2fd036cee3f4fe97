package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/canopy-network/sensorx/app/monitor"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	app, err := monitor.Initialize(ctx)
	if err != nil {
		panic(err)
	}

	// Immediate pass before cron
	app.ReconcileOnce(ctx)

	app.StartCron()

	app.SetupServer()

	app.Start(ctx)
}
