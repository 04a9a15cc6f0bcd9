package main

import (
	"context"
	"log"
	"time"

	"signal_engine/internal/metrics"
	"signal_engine/internal/modules/config"
	"signal_engine/internal/modules/executor"
	"signal_engine/internal/modules/feed"
	"signal_engine/internal/modules/marketdata"
	mdsvc "signal_engine/internal/modules/marketdata/service"
	"signal_engine/internal/modules/postgres"
	"signal_engine/internal/modules/registry"
	regsvc "signal_engine/internal/modules/registry/service"
	"signal_engine/internal/modules/sandbox"
	signalmod "signal_engine/internal/modules/signal"
	"signal_engine/pkg/logger"
	"signal_engine/pkg/tracing"

	"go.uber.org/fx"
)

const serviceName = "signal_engine"

func main() {
	if err := logger.Init(); err != nil {
		log.Fatal(err)
	}
	logger.SetServiceName(serviceName)
	tracing.SetServiceName(serviceName)

	app := fx.New(
		fx.Provide(
			func() context.Context {
				return context.Background()
			},
		),
		config.Module(),
		postgres.Module(),
		marketdata.Module(),
		feed.Module(),
		registry.Module(),
		sandbox.Module(),
		signalmod.Module(),
		executor.Module(),
		fx.Invoke(func(ctx context.Context, cache *mdsvc.Cache, reg *regsvc.Registry) {
			// статусная строка раз в минуту
			go func() {
				t := time.NewTicker(time.Minute)
				defer t.Stop()
				for {
					select {
					case <-ctx.Done():
						return
					case <-t.C:
						keys, candles := cache.Stats()
						logger.Info("engine: status traders=%d cache_keys=%d cache_candles=%d",
							reg.ActiveCount(), keys, candles)
					}
				}
			}()
		}),
		fx.Invoke(func(lc fx.Lifecycle, cfg *config.Config) {
			_ = metrics.Serve(cfg.MetricsAddr)

			_, closeTracer, err := tracing.InitTracer(tracing.Config{
				Host: cfg.Jaeger.Host,
				Port: cfg.Jaeger.Port,
			})
			if err != nil {
				logger.Warn("tracing: init failed: %v", err)
				return
			}
			lc.Append(fx.Hook{
				OnStop: func(context.Context) error {
					closeTracer()
					return nil
				},
			})
		}),
	)
	app.Run()
}
