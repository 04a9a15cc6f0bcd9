package marketdata

import (
	"signal_engine/internal/models"
	"signal_engine/internal/modules/config"
	"signal_engine/internal/modules/marketdata/service"

	"go.uber.org/fx"
)

func newCloseEvents() chan models.CloseEvent {
	return make(chan models.CloseEvent, 1024)
}
func asSendOnlyCloseEvents(ch chan models.CloseEvent) chan<- models.CloseEvent { return ch }
func asRecvOnlyCloseEvents(ch chan models.CloseEvent) <-chan models.CloseEvent { return ch }

func Module() fx.Option {
	return fx.Module("marketdata",
		fx.Provide(
			newCloseEvents,
			asSendOnlyCloseEvents,
			asRecvOnlyCloseEvents,
			func(cfg *config.Config) *service.Cache {
				return service.NewCache(cfg.CacheWindow)
			},
			service.NewClock, // *service.Clock (получит chan<- CloseEvent)
		),
	)
}
