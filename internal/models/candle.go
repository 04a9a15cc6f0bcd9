package models

import "time"

// Candle — закрытая OHLCV-свеча. После закрытия не мутируется.
type Candle struct {
	Symbol      string    `json:"symbol,omitempty"`
	Interval    string    `json:"interval,omitempty"`
	OpenTime    time.Time `json:"openTime"`
	CloseTime   time.Time `json:"closeTime"`
	Open        float64   `json:"open"`
	High        float64   `json:"high"`
	Low         float64   `json:"low"`
	Close       float64   `json:"close"`
	Volume      float64   `json:"volume"`
	QuoteVolume float64   `json:"quoteVolume"`
	TradeCount  int64     `json:"tradeCount"`
	Closed      bool      `json:"-"`
}

type Ticker struct {
	Symbol string
	Price  float64
	At     time.Time
}

// CloseEvent — закрытие свечи (symbol, interval). Ровно одно на границу.
type CloseEvent struct {
	Symbol    string
	Interval  string
	CloseTime time.Time
}

// MarketDataView — read-only снапшот для одной оценки.
// Слайсы копируются при снятии, мутировать их никто не должен.
type MarketDataView struct {
	Symbol string
	Ticker Ticker
	Klines map[string][]Candle // interval -> последние N закрытых свечей, по возрастанию времени
}
