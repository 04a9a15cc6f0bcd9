package registry

import (
	"context"

	"signal_engine/internal/modules/config"
	"signal_engine/internal/modules/registry/service"
	"signal_engine/pkg/db"

	"go.uber.org/fx"
)

func Module() fx.Option {
	return fx.Module("registry",
		fx.Provide(
			// источник по скоупу: system читает yaml, user — постгрес
			func(cfg *config.Config, tx *db.PgTxManager) service.Source {
				if cfg.Scope == config.ScopeSystem {
					return service.NewBuiltinSource(cfg.BuiltinTradersFile)
				}
				return service.NewPgSource(tx, cfg.OwnerID)
			},
			func(cfg *config.Config, src service.Source) *service.Registry {
				return service.NewRegistry(src, cfg.RegistryRefresh)
			},
		),
		fx.Invoke(func(lc fx.Lifecycle, r *service.Registry, ctx context.Context) {
			lc.Append(fx.Hook{
				OnStart: func(_ context.Context) error {
					go r.Run(ctx)
					return nil
				},
			})
		}),
	)
}
