package service

import (
	"sync"
	"time"

	"signal_engine/internal/helper"
	"signal_engine/internal/models"
	"signal_engine/pkg/logger"
)

// Clock превращает уведомления фида в ровно одно CloseEvent на границу
// (symbol, interval). Повторные и опоздавшие уведомления глушатся по
// последнему выданному closeTime.
type Clock struct {
	out chan<- models.CloseEvent

	mu   sync.Mutex
	last map[string]time.Time // helper.CandleKey -> closeTime последнего события
}

func NewClock(out chan<- models.CloseEvent) *Clock {
	return &Clock{
		out:  out,
		last: make(map[string]time.Time),
	}
}

// OnCandleClose — колбэк фида. Потокобезопасен.
func (c *Clock) OnCandleClose(symbol, interval string, closeTime time.Time) {
	interval = helper.NormTF(interval)
	key := helper.CandleKey(symbol, interval)

	c.mu.Lock()
	if prev, ok := c.last[key]; ok && !closeTime.After(prev) {
		c.mu.Unlock()
		return // дубликат или устаревшее закрытие
	}
	c.last[key] = closeTime
	c.mu.Unlock()

	ev := models.CloseEvent{Symbol: symbol, Interval: interval, CloseTime: closeTime}
	select {
	case c.out <- ev:
	default:
		// пропущенное закрытие не ретраим — следующее придёт само
		logger.Warn("clock: close events channel full, drop %s %s %s",
			symbol, interval, closeTime.Format(time.RFC3339))
	}
}
