package executor

import (
	"context"

	"signal_engine/internal/models"
	"signal_engine/internal/modules/config"
	"signal_engine/internal/modules/executor/service"
	mdsvc "signal_engine/internal/modules/marketdata/service"
	regsvc "signal_engine/internal/modules/registry/service"
	sbsvc "signal_engine/internal/modules/sandbox/service"
	sigsvc "signal_engine/internal/modules/signal/service"

	"go.uber.org/fx"
)

func Module() fx.Option {
	return fx.Module("executor",
		fx.Provide(
			func(
				cfg *config.Config,
				reg *regsvc.Registry,
				cache *mdsvc.Cache,
				sb *sbsvc.Sandbox,
				w *sigsvc.Writer,
			) *service.Executor {
				return service.NewExecutor(reg, cache, sb, w, cfg.WorkerLimit)
			},
		),
		fx.Invoke(func(lc fx.Lifecycle, e *service.Executor, events <-chan models.CloseEvent, ctx context.Context) {
			lc.Append(fx.Hook{
				OnStart: func(_ context.Context) error {
					go e.Run(ctx, events)
					return nil
				},
				OnStop: func(_ context.Context) error {
					e.Wait()
					return nil
				},
			})
		}),
	)
}
