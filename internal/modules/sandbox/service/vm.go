package service

import (
	"signal_engine/internal/helper"
	"signal_engine/internal/models"

	"github.com/dop251/goja"
)

// installView кладёт в VM read-only представление рынка. Свечи уже
// скопированы кешем, так что даже мутация из JS никому не навредит.
func installView(vm *goja.Runtime, view models.MarketDataView) {
	klines := make(map[string][]map[string]interface{}, len(view.Klines))
	closes := make(map[string][]float64, len(view.Klines))
	highs := make(map[string][]float64, len(view.Klines))
	lows := make(map[string][]float64, len(view.Klines))
	volumes := make(map[string][]float64, len(view.Klines))

	for itv, candles := range view.Klines {
		arr := make([]map[string]interface{}, len(candles))
		cl := make([]float64, len(candles))
		hi := make([]float64, len(candles))
		lo := make([]float64, len(candles))
		vol := make([]float64, len(candles))
		for i, k := range candles {
			arr[i] = map[string]interface{}{
				"openTime":    k.OpenTime.UnixMilli(),
				"closeTime":   k.CloseTime.UnixMilli(),
				"open":        k.Open,
				"high":        k.High,
				"low":         k.Low,
				"close":       k.Close,
				"volume":      k.Volume,
				"quoteVolume": k.QuoteVolume,
				"trades":      k.TradeCount,
			}
			cl[i] = k.Close
			hi[i] = k.High
			lo[i] = k.Low
			vol[i] = k.Volume
		}
		klines[itv] = arr
		closes[itv] = cl
		highs[itv] = hi
		lows[itv] = lo
		volumes[itv] = vol
	}

	viewObj := map[string]interface{}{
		"symbol": view.Symbol,
		"ticker": map[string]interface{}{
			"price": view.Ticker.Price,
			"at":    view.Ticker.At.UnixMilli(),
		},
		"klines":  func(itv string) []map[string]interface{} { return klines[helper.NormTF(itv)] },
		"closes":  func(itv string) []float64 { return closes[helper.NormTF(itv)] },
		"highs":   func(itv string) []float64 { return highs[helper.NormTF(itv)] },
		"lows":    func(itv string) []float64 { return lows[helper.NormTF(itv)] },
		"volumes": func(itv string) []float64 { return volumes[helper.NormTF(itv)] },
	}
	vm.Set("view", viewObj)
}

// installTA — единственный белый список хелперов, доступный коду.
func installTA(vm *goja.Runtime) {
	vm.Set("ta", map[string]interface{}{
		"sma":        SMA,
		"ema":        EMA,
		"rsi":        RSI,
		"stddev":     StdDev,
		"highest":    Highest,
		"lowest":     Lowest,
		"change":     Change,
		"crossover":  Crossover,
		"crossunder": Crossunder,
		"smaSeries":  SMASeries,
		"emaSeries":  EMASeries,
		"rsiSeries":  RSISeries,
	})
}
