package sandbox

import (
	"signal_engine/internal/modules/config"
	"signal_engine/internal/modules/sandbox/service"

	"go.uber.org/fx"
)

func Module() fx.Option {
	return fx.Module("sandbox",
		fx.Provide(
			func(cfg *config.Config) *service.Sandbox {
				return service.New(cfg.SandboxTimeout)
			},
		),
	)
}
