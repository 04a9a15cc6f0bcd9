package feed

import (
	"context"

	"signal_engine/internal/modules/config"
	"signal_engine/internal/modules/feed/service"
	mdsvc "signal_engine/internal/modules/marketdata/service"

	"go.uber.org/fx"
)

func Module() fx.Option {
	return fx.Module("feed",
		fx.Provide(
			func(cfg *config.Config, cache *mdsvc.Cache, clock *mdsvc.Clock) *service.Client {
				return service.NewClient(cfg, cache, clock)
			},
		),
		fx.Invoke(func(lc fx.Lifecycle, c *service.Client, ctx context.Context) {
			lc.Append(fx.Hook{
				OnStart: func(_ context.Context) error {
					c.Start(ctx)
					return nil
				},
			})
		}),
	)
}
