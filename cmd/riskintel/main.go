// Command riskintel serves the provider orchestrator over HTTP.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/kbukum/riskintel/api"
	"github.com/kbukum/riskintel/bootstrap"
	"github.com/kbukum/riskintel/component"
	"github.com/kbukum/riskintel/config"
	"github.com/kbukum/riskintel/events"
	"github.com/kbukum/riskintel/logger"
	"github.com/kbukum/riskintel/observability"
	"github.com/kbukum/riskintel/orchestrator"
	"github.com/kbukum/riskintel/provider"
	"github.com/kbukum/riskintel/provider/openai"
	"github.com/kbukum/riskintel/server"
	"github.com/kbukum/riskintel/sse"
	"github.com/kbukum/riskintel/version"
)

const serviceName = "riskintel"

func main() {
	if err := run(context.Background()); err != nil {
		logger.Error("riskintel exited with error", logger.MergeWithError(nil, err))
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	var cfg AppConfig
	if err := config.LoadConfig(serviceName, &cfg); err != nil {
		return err
	}
	injectAPIKeys(&cfg.Orchestrator)

	app, err := bootstrap.NewApp(&cfg)
	if err != nil {
		return err
	}
	log := app.Logger

	shutdownTelemetry, err := observability.Setup(ctx, cfg.Observability, cfg.Name, cfg.Version, cfg.Environment)
	if err != nil {
		return fmt.Errorf("observability setup: %w", err)
	}
	metrics, err := observability.NewMetrics(observability.Meter(serviceName))
	if err != nil {
		_ = shutdownTelemetry(ctx)
		return fmt.Errorf("metrics: %w", err)
	}

	bus := events.NewBus(log.WithComponent("events"))
	svc := orchestrator.New(cfg.Orchestrator,
		orchestrator.WithLogger(log.WithComponent("orchestrator")),
		orchestrator.WithEventBus(bus),
		orchestrator.WithMetrics(metrics),
		orchestrator.WithFactory(openai.Kind, openai.Factory),
		orchestrator.WithMiddleware(
			provider.WithTracing(),
			provider.WithMetrics(metrics),
			provider.WithLogging(log.WithComponent("provider")),
		),
	)
	stream := sse.NewStream(bus, log.WithComponent("sse"))

	srv := server.New(cfg.Server, log)
	srv.ApplyMiddleware()
	api.Register(srv.Engine(), svc, stream.Hub(), api.Info{Service: cfg.Name, Version: version.Get()})

	// Registration order is start order; telemetry stops last.
	for _, c := range []component.Component{
		component.FromFuncs("telemetry", nil, shutdownTelemetry),
		svc,
		stream,
		srv,
	} {
		if err := app.RegisterComponent(c); err != nil {
			return err
		}
	}
	return app.Run(ctx)
}
