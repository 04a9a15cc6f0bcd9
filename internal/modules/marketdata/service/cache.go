package service

import (
	"errors"
	"sync"

	"signal_engine/internal/helper"
	"signal_engine/internal/models"
)

// ErrDataGap — в кеше меньше свечей, чем нужно индикаторам трейдера.
// Не ошибка уровня error: символ просто пропускается в этом цикле.
var ErrDataGap = errors.New("marketdata: not enough cached candles")

// Cache держит скользящее окно закрытых свечей на (symbol, interval)
// и последний тикер. Писатель — фид, читатель — экзекьютор.
type Cache struct {
	window int

	mu      sync.RWMutex
	klines  map[string][]models.Candle // helper.CandleKey -> по возрастанию OpenTime
	tickers map[string]models.Ticker
}

func NewCache(window int) *Cache {
	if window <= 0 {
		window = 1200
	}
	return &Cache{
		window:  window,
		klines:  make(map[string][]models.Candle),
		tickers: make(map[string]models.Ticker),
	}
}

// Append кладёт закрытую свечу. Свечи append-only: дубликат по OpenTime
// заменяет хвост (повторная доставка той же свечи), более старые игнорим.
func (c *Cache) Append(k models.Candle) {
	if !k.Closed {
		return
	}

	key := helper.CandleKey(k.Symbol, k.Interval)

	c.mu.Lock()
	defer c.mu.Unlock()

	buf := c.klines[key]
	if n := len(buf); n > 0 {
		last := buf[n-1]
		if k.OpenTime.Before(last.OpenTime) {
			return // опоздавшая свеча, окно уже уехало
		}
		if k.OpenTime.Equal(last.OpenTime) {
			buf[n-1] = k
			return
		}
	}

	buf = append(buf, k)
	if len(buf) > c.window {
		// не даём backing-array расти бесконечно
		trimmed := make([]models.Candle, c.window)
		copy(trimmed, buf[len(buf)-c.window:])
		buf = trimmed
	}
	c.klines[key] = buf
}

func (c *Cache) SetTicker(t models.Ticker) {
	c.mu.Lock()
	c.tickers[t.Symbol] = t
	c.mu.Unlock()
}

func (c *Cache) Len(symbol, interval string) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.klines[helper.CandleKey(symbol, interval)])
}

// Stats — сколько ключей и свечей живёт в кеше, для статусной строки.
func (c *Cache) Stats() (keys, candles int) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, buf := range c.klines {
		candles += len(buf)
	}
	return len(c.klines), candles
}

// Snapshot отдаёт view по символу на набор таймфреймов. Слайсы копируются
// под RLock — после выдачи их никто не мутирует, оценка идёт без локов.
// Если на каком-то интервале меньше need свечей — ErrDataGap.
func (c *Cache) Snapshot(symbol string, intervals []string, need int) (models.MarketDataView, error) {
	view := models.MarketDataView{
		Symbol: symbol,
		Klines: make(map[string][]models.Candle, len(intervals)),
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	view.Ticker = c.tickers[symbol]

	for _, itv := range intervals {
		itv = helper.NormTF(itv)
		if _, ok := view.Klines[itv]; ok {
			continue
		}
		buf := c.klines[helper.CandleKey(symbol, itv)]
		if len(buf) < need {
			return models.MarketDataView{}, ErrDataGap
		}
		cp := make([]models.Candle, len(buf))
		copy(cp, buf)
		view.Klines[itv] = cp
	}

	return view, nil
}
