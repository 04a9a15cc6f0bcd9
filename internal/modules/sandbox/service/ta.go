package service

import "math"

// Батч-хелперы над слайсами close/high/low. Все чистые: одинаковый вход —
// одинаковый выход. При нехватке данных возвращают NaN, а не панику:
// сравнение с NaN в условии даст false, сигнала не будет.

func SMA(values []float64, period int) float64 {
	if period <= 0 || len(values) < period {
		return math.NaN()
	}
	sum := 0.0
	for _, v := range values[len(values)-period:] {
		sum += v
	}
	return sum / float64(period)
}

func SMASeries(values []float64, period int) []float64 {
	out := make([]float64, len(values))
	for i := range values {
		if period <= 0 || i+1 < period {
			out[i] = math.NaN()
			continue
		}
		sum := 0.0
		for _, v := range values[i+1-period : i+1] {
			sum += v
		}
		out[i] = sum / float64(period)
	}
	return out
}

// EMA сидируется первым значением, alpha = 2/(n+1).
func EMA(values []float64, period int) float64 {
	s := EMASeries(values, period)
	if len(s) == 0 {
		return math.NaN()
	}
	return s[len(s)-1]
}

func EMASeries(values []float64, period int) []float64 {
	out := make([]float64, len(values))
	if period <= 0 || len(values) < period {
		for i := range out {
			out[i] = math.NaN()
		}
		return out
	}
	alpha := 2.0 / (float64(period) + 1)
	ema := values[0]
	for i, v := range values {
		if i > 0 {
			ema = alpha*v + (1-alpha)*ema
		}
		if i+1 < period {
			out[i] = math.NaN() // прогрев
		} else {
			out[i] = ema
		}
	}
	return out
}

// RSI по Уайлдеру: первые period изменений — среднее, дальше сглаживание.
func RSI(values []float64, period int) float64 {
	s := RSISeries(values, period)
	if len(s) == 0 {
		return math.NaN()
	}
	return s[len(s)-1]
}

func RSISeries(values []float64, period int) []float64 {
	out := make([]float64, len(values))
	for i := range out {
		out[i] = math.NaN()
	}
	if period <= 0 || len(values) < period+1 {
		return out
	}

	var avgGain, avgLoss float64
	for i := 1; i <= period; i++ {
		change := values[i] - values[i-1]
		if change > 0 {
			avgGain += change
		} else {
			avgLoss -= change
		}
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)
	out[period] = rsiValue(avgGain, avgLoss)

	for i := period + 1; i < len(values); i++ {
		change := values[i] - values[i-1]
		gain, loss := 0.0, 0.0
		if change > 0 {
			gain = change
		} else {
			loss = -change
		}
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
		out[i] = rsiValue(avgGain, avgLoss)
	}
	return out
}

func rsiValue(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs)
}

func StdDev(values []float64, period int) float64 {
	if period <= 1 || len(values) < period {
		return math.NaN()
	}
	window := values[len(values)-period:]
	mean := 0.0
	for _, v := range window {
		mean += v
	}
	mean /= float64(period)
	variance := 0.0
	for _, v := range window {
		d := v - mean
		variance += d * d
	}
	return math.Sqrt(variance / float64(period))
}

func Highest(values []float64, period int) float64 {
	if period <= 0 || len(values) < period {
		return math.NaN()
	}
	hi := values[len(values)-period]
	for _, v := range values[len(values)-period:] {
		if v > hi {
			hi = v
		}
	}
	return hi
}

func Lowest(values []float64, period int) float64 {
	if period <= 0 || len(values) < period {
		return math.NaN()
	}
	lo := values[len(values)-period]
	for _, v := range values[len(values)-period:] {
		if v < lo {
			lo = v
		}
	}
	return lo
}

// Change — абсолютное изменение за n баров назад.
func Change(values []float64, n int) float64 {
	if n <= 0 || len(values) <= n {
		return math.NaN()
	}
	return values[len(values)-1] - values[len(values)-1-n]
}

// Crossover: a пересёк b снизу вверх на последнем баре.
func Crossover(a, b []float64) bool {
	if len(a) < 2 || len(b) < 2 {
		return false
	}
	return a[len(a)-2] <= b[len(b)-2] && a[len(a)-1] > b[len(b)-1]
}

func Crossunder(a, b []float64) bool {
	if len(a) < 2 || len(b) < 2 {
		return false
	}
	return a[len(a)-2] >= b[len(b)-2] && a[len(a)-1] < b[len(b)-1]
}
