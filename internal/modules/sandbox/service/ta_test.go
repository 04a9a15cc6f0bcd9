package service

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSMA(t *testing.T) {
	assert.Equal(t, 2.0, SMA([]float64{1, 2, 3}, 3))
	assert.Equal(t, 4.0, SMA([]float64{1, 2, 3, 4, 5}, 3)) // последние три
	assert.True(t, math.IsNaN(SMA([]float64{1, 2}, 3)))
	assert.True(t, math.IsNaN(SMA(nil, 1)))
}

func TestEMA_SeedsWithFirstValue(t *testing.T) {
	// константный ряд — EMA равна константе
	vals := []float64{5, 5, 5, 5, 5, 5, 5, 5}
	assert.InDelta(t, 5.0, EMA(vals, 4), 1e-9)

	s := EMASeries(vals, 4)
	require.Len(t, s, len(vals))
	assert.True(t, math.IsNaN(s[0])) // прогрев
	assert.True(t, math.IsNaN(s[2]))
	assert.InDelta(t, 5.0, s[3], 1e-9)
}

func TestRSI_AllGains(t *testing.T) {
	vals := make([]float64, 30)
	for i := range vals {
		vals[i] = 100 + float64(i)
	}
	assert.InDelta(t, 100.0, RSI(vals, 14), 1e-9)
}

func TestRSI_AllLosses(t *testing.T) {
	vals := make([]float64, 30)
	for i := range vals {
		vals[i] = 100 - float64(i)
	}
	assert.InDelta(t, 0.0, RSI(vals, 14), 1e-9)
}

func TestRSI_KnownValue(t *testing.T) {
	// классический пример Уайлдера (14 периодов)
	vals := []float64{
		44.34, 44.09, 44.15, 43.61, 44.33, 44.83, 45.10, 45.42,
		45.84, 46.08, 45.89, 46.03, 45.61, 46.28, 46.28,
	}
	got := RSI(vals, 14)
	assert.InDelta(t, 70.46, got, 0.1)
}

func TestRSI_InsufficientData(t *testing.T) {
	assert.True(t, math.IsNaN(RSI([]float64{1, 2, 3}, 14)))
}

func TestRSISeries_WarmupIsNaN(t *testing.T) {
	vals := make([]float64, 20)
	for i := range vals {
		vals[i] = float64(i)
	}
	s := RSISeries(vals, 14)
	require.Len(t, s, 20)
	for i := 0; i < 14; i++ {
		assert.True(t, math.IsNaN(s[i]), "index %d must be warmup NaN", i)
	}
	for i := 14; i < 20; i++ {
		assert.False(t, math.IsNaN(s[i]), "index %d must be computed", i)
	}
}

func TestHighestLowest(t *testing.T) {
	vals := []float64{3, 9, 1, 7, 5}
	assert.Equal(t, 9.0, Highest(vals, 5))
	assert.Equal(t, 1.0, Lowest(vals, 5))
	assert.Equal(t, 7.0, Highest(vals, 3)) // последние три: 1, 7, 5
	assert.Equal(t, 1.0, Lowest(vals, 3))
	assert.True(t, math.IsNaN(Highest(vals, 6)))
}

func TestStdDev(t *testing.T) {
	// популяция {2,4,4,4,5,5,7,9} -> sigma = 2
	vals := []float64{2, 4, 4, 4, 5, 5, 7, 9}
	assert.InDelta(t, 2.0, StdDev(vals, 8), 1e-9)
	assert.True(t, math.IsNaN(StdDev(vals, 9)))
	assert.True(t, math.IsNaN(StdDev(vals, 1)))
}

func TestChange(t *testing.T) {
	vals := []float64{10, 12, 15}
	assert.Equal(t, 3.0, Change(vals, 1))
	assert.Equal(t, 5.0, Change(vals, 2))
	assert.True(t, math.IsNaN(Change(vals, 3)))
}

func TestCrossover(t *testing.T) {
	up := []float64{1, 3}
	flat := []float64{2, 2}
	assert.True(t, Crossover(up, flat))
	assert.False(t, Crossover(flat, up))
	assert.True(t, Crossunder([]float64{3, 1}, flat))
	assert.False(t, Crossover([]float64{3}, flat)) // мало точек
}
