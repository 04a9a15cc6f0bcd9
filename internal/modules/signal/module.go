package signal

import (
	"os"

	"signal_engine/internal/models"
	"signal_engine/internal/modules/config"
	"signal_engine/internal/modules/signal/service"
	"signal_engine/internal/notify"
	"signal_engine/pkg/db"
	"signal_engine/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/fx"
)

func Module() fx.Option {
	return fx.Module("signal",
		fx.Provide(
			func(tx *db.PgTxManager) *service.PgStore {
				return service.NewPgStore(tx)
			},
			func(cfg *config.Config) notify.Notifier {
				if cfg.Telegram.Token == "" || cfg.Telegram.ChatID == 0 {
					return notify.NewStdout()
				}
				tg, err := notify.NewTelegram(cfg.Telegram.Token, cfg.Telegram.ChatID)
				if err != nil {
					logger.Warn("notify: telegram init failed, falling back to stdout: %v", err)
					return notify.NewStdout()
				}
				return tg
			},
			func(cfg *config.Config, store *service.PgStore, n notify.Notifier) *service.Writer {
				source := models.SourceCloud
				if cfg.Scope == config.ScopeUser {
					source = models.SourceLocal
				}
				host, _ := os.Hostname()
				return service.NewWriter(service.WriterOptions{
					Store:          store,
					Broadcast:      n,
					Source:         source,
					InstanceID:     host + "-" + uuid.NewString()[:8],
					SnapshotKlines: cfg.SnapshotKlines,
					Retries:        cfg.SignalRetries,
					Backoff:        cfg.SignalRetryBackoff,
				})
			},
		),
	)
}
