package helper

import (
	"strings"
	"time"
)

// NormTF приводит сырой таймфрейм к канонике: "60m" -> "1h", "candle5m" -> "5m".
func NormTF(raw string) string {
	s := strings.TrimSpace(strings.ToLower(raw))
	s = strings.TrimPrefix(s, "candle")
	s = strings.TrimPrefix(s, "kline_")
	switch s {
	case "60m", "1h":
		return "1h"
	case "240m", "4h":
		return "4h"
	case "1440m", "1d", "24h":
		return "1d"
	default:
		return s
	}
}

// IntervalDuration — длительность канонического таймфрейма, 0 если не знаем.
func IntervalDuration(tf string) time.Duration {
	switch NormTF(tf) {
	case "1m":
		return time.Minute
	case "3m":
		return 3 * time.Minute
	case "5m":
		return 5 * time.Minute
	case "15m":
		return 15 * time.Minute
	case "30m":
		return 30 * time.Minute
	case "1h":
		return time.Hour
	case "4h":
		return 4 * time.Hour
	case "1d":
		return 24 * time.Hour
	default:
		return 0
	}
}

func CandleKey(symbol, interval string) string { return symbol + ":" + interval }

// EvalKey — ключ (trader, symbol) для debounce оценок.
func EvalKey(traderID, symbol string) string { return traderID + ":" + symbol }

func SplitEvalKey(key string) (traderID, symbol string, ok bool) {
	i := strings.LastIndexByte(key, ':')
	if i <= 0 || i >= len(key)-1 {
		return "", "", false
	}
	return key[:i], key[i+1:], true
}
