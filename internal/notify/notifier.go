package notify

import (
	"context"
	"fmt"

	"signal_engine/internal/models"
	"signal_engine/pkg/logger"

	tgbot "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type Notifier interface {
	SignalCreated(ctx context.Context, sig *models.Signal)
}

// Telegram — пассивный нотифайер: одна строка на созданный сигнал.
type Telegram struct {
	bot    *tgbot.BotAPI
	chatID int64
}

func NewTelegram(token string, chatID int64) (*Telegram, error) {
	b, err := tgbot.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	return &Telegram{bot: b, chatID: chatID}, nil
}

func (t *Telegram) SignalCreated(_ context.Context, sig *models.Signal) {
	if t == nil || t.bot == nil || t.chatID == 0 {
		return
	}
	msg := fmt.Sprintf("📣 %s %s @ %.6f\ntrader: %s\n%s",
		sig.Symbol, sig.Interval, sig.Price,
		sig.TraderID, sig.TriggeredAt.Format("2006-01-02 15:04:05 MST"))
	_, _ = t.bot.Send(tgbot.NewMessage(t.chatID, msg))
}

// Stdout — заглушка, всё в лог.
type Stdout struct{}

func NewStdout() *Stdout { return &Stdout{} }

func (s *Stdout) SignalCreated(_ context.Context, sig *models.Signal) {
	logger.Info("signal broadcast: %s %s trader=%s price=%.6f",
		sig.Symbol, sig.Interval, sig.TraderID, sig.Price)
}
