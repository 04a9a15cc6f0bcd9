package service

import (
	"os"
	"testing"
	"time"

	"signal_engine/internal/models"
	"signal_engine/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	_ = logger.Init()
	os.Exit(m.Run())
}

func candleAt(i int) models.Candle {
	start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	return models.Candle{
		Symbol:    "BTCUSDT",
		Interval:  "5m",
		OpenTime:  start.Add(time.Duration(i) * 5 * time.Minute),
		CloseTime: start.Add(time.Duration(i+1) * 5 * time.Minute),
		Open:      100, High: 101, Low: 99,
		Close:  100 + float64(i),
		Volume: 1,
		Closed: true,
	}
}

func TestCache_AppendAndWindow(t *testing.T) {
	c := NewCache(5)
	for i := 0; i < 10; i++ {
		c.Append(candleAt(i))
	}
	require.Equal(t, 5, c.Len("BTCUSDT", "5m"))

	view, err := c.Snapshot("BTCUSDT", []string{"5m"}, 5)
	require.NoError(t, err)
	klines := view.Klines["5m"]
	require.Len(t, klines, 5)
	// окно держит именно последние свечи
	assert.Equal(t, candleAt(5).OpenTime, klines[0].OpenTime)
	assert.Equal(t, candleAt(9).OpenTime, klines[4].OpenTime)
}

func TestCache_IgnoresOpenAndStaleCandles(t *testing.T) {
	c := NewCache(10)
	c.Append(candleAt(5))

	open := candleAt(6)
	open.Closed = false
	c.Append(open) // незакрытая не пишется
	require.Equal(t, 1, c.Len("BTCUSDT", "5m"))

	c.Append(candleAt(3)) // опоздавшая — окно уехало
	require.Equal(t, 1, c.Len("BTCUSDT", "5m"))
}

func TestCache_DuplicateOpenTimeReplacesTail(t *testing.T) {
	c := NewCache(10)
	c.Append(candleAt(1))

	dup := candleAt(1)
	dup.Close = 777
	c.Append(dup)

	require.Equal(t, 1, c.Len("BTCUSDT", "5m"))
	view, err := c.Snapshot("BTCUSDT", []string{"5m"}, 1)
	require.NoError(t, err)
	assert.Equal(t, 777.0, view.Klines["5m"][0].Close)
}

func TestCache_SnapshotIsolatedFromWriters(t *testing.T) {
	c := NewCache(100)
	for i := 0; i < 10; i++ {
		c.Append(candleAt(i))
	}

	view, err := c.Snapshot("BTCUSDT", []string{"5m"}, 10)
	require.NoError(t, err)
	before := len(view.Klines["5m"])

	// пишем дальше — выданный снапшот не должен шевелиться
	for i := 10; i < 20; i++ {
		c.Append(candleAt(i))
	}
	assert.Len(t, view.Klines["5m"], before)
	assert.Equal(t, candleAt(9).Close, view.Klines["5m"][before-1].Close)

	// и наоборот: мутация снапшота не портит кеш
	view.Klines["5m"][0].Close = -1
	fresh, err := c.Snapshot("BTCUSDT", []string{"5m"}, 10)
	require.NoError(t, err)
	assert.NotEqual(t, -1.0, fresh.Klines["5m"][0].Close)
}

func TestCache_DataGap(t *testing.T) {
	c := NewCache(100)
	for i := 0; i < 5; i++ {
		c.Append(candleAt(i))
	}

	// 5 свечей при lookback 15 — DataGap, символ пропускается
	_, err := c.Snapshot("BTCUSDT", []string{"5m"}, 15)
	require.ErrorIs(t, err, ErrDataGap)

	// совсем пустой интервал — тоже DataGap
	_, err = c.Snapshot("BTCUSDT", []string{"1h"}, 1)
	require.ErrorIs(t, err, ErrDataGap)
}

func TestCache_Ticker(t *testing.T) {
	c := NewCache(10)
	c.Append(candleAt(0))
	c.SetTicker(models.Ticker{Symbol: "BTCUSDT", Price: 123.45, At: time.Now()})

	view, err := c.Snapshot("BTCUSDT", []string{"5m"}, 1)
	require.NoError(t, err)
	assert.Equal(t, 123.45, view.Ticker.Price)
}

func TestCache_MultiTimeframeSnapshot(t *testing.T) {
	c := NewCache(100)
	for i := 0; i < 10; i++ {
		c.Append(candleAt(i))
		h := candleAt(i)
		h.Interval = "1h"
		h.OpenTime = h.OpenTime.Add(time.Hour)
		c.Append(h)
	}

	view, err := c.Snapshot("BTCUSDT", []string{"5m", "1h", "5m"}, 10)
	require.NoError(t, err)
	assert.Len(t, view.Klines, 2)
	assert.Len(t, view.Klines["5m"], 10)
	assert.Len(t, view.Klines["1h"], 10)
}
