package service

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"signal_engine/internal/models"
	"signal_engine/pkg/logger"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	_ = logger.Init()
	os.Exit(m.Run())
}

type stubStore struct {
	mu       sync.Mutex
	failLeft int
	inserted []*models.Signal
}

func (s *stubStore) Insert(_ context.Context, sig *models.Signal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failLeft > 0 {
		s.failLeft--
		return errors.New("pg: connection refused")
	}
	s.inserted = append(s.inserted, sig)
	return nil
}

func (s *stubStore) signals() []*models.Signal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*models.Signal(nil), s.inserted...)
}

type stubBroadcast struct {
	mu    sync.Mutex
	calls int
}

func (b *stubBroadcast) SignalCreated(context.Context, *models.Signal) {
	b.mu.Lock()
	b.calls++
	b.mu.Unlock()
}

func testWriter(store Store, opts ...func(*WriterOptions)) *Writer {
	o := WriterOptions{
		Store:          store,
		Source:         models.SourceLocal,
		InstanceID:     "host-abc12345",
		SnapshotKlines: 120,
		Retries:        3,
		Backoff:        time.Millisecond,
	}
	for _, fn := range opts {
		fn(&o)
	}
	return NewWriter(o)
}

func viewWithKlines(n int) models.MarketDataView {
	start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	klines := make([]models.Candle, n)
	for i := range klines {
		klines[i] = models.Candle{
			Symbol:    "BTCUSDT",
			Interval:  "5m",
			OpenTime:  start.Add(time.Duration(i) * 5 * time.Minute),
			CloseTime: start.Add(time.Duration(i+1) * 5 * time.Minute),
			Close:     100 + float64(i),
			Closed:    true,
		}
	}
	return models.MarketDataView{
		Symbol: "BTCUSDT",
		Ticker: models.Ticker{Symbol: "BTCUSDT", Price: 42.0, At: start},
		Klines: map[string][]models.Candle{"5m": klines},
	}
}

func testEvent() models.CloseEvent {
	return models.CloseEvent{
		Symbol:    "BTCUSDT",
		Interval:  "5m",
		CloseTime: time.Date(2025, 6, 1, 12, 5, 0, 0, time.UTC),
	}
}

func TestWriter_PersistsSignal(t *testing.T) {
	store := &stubStore{}
	w := testWriter(store)

	tr := models.TraderConfig{ID: "t1", Interval: "5m"}
	w.Write(context.Background(), tr, testEvent(), viewWithKlines(10), nil)

	sigs := store.signals()
	require.Len(t, sigs, 1)
	sig := sigs[0]

	_, err := uuid.Parse(sig.ID)
	assert.NoError(t, err)
	assert.Equal(t, "t1", sig.TraderID)
	assert.Equal(t, "BTCUSDT", sig.Symbol)
	assert.Equal(t, "5m", sig.Interval)
	assert.Equal(t, testEvent().CloseTime, sig.TriggeredAt)
	assert.Equal(t, models.SourceLocal, sig.Source)
	assert.Equal(t, "host-abc12345", sig.InstanceID)
	// цена — закрытие триггерной свечи, не тикер
	assert.Equal(t, 109.0, sig.Price)
	assert.Len(t, sig.Klines, 10)
}

func TestWriter_RetriesThenSucceeds(t *testing.T) {
	store := &stubStore{failLeft: 2}
	w := testWriter(store)

	w.Write(context.Background(), models.TraderConfig{ID: "t1"}, testEvent(), viewWithKlines(5), nil)

	require.Len(t, store.signals(), 1)
}

func TestWriter_DroppedAfterRetryBudget(t *testing.T) {
	store := &stubStore{failLeft: 100}
	w := testWriter(store)

	// исчерпание бюджета не должно ни паниковать, ни зависать
	w.Write(context.Background(), models.TraderConfig{ID: "t1"}, testEvent(), viewWithKlines(5), nil)

	assert.Empty(t, store.signals())
	assert.Equal(t, 97, store.failLeft)
}

func TestWriter_KlinesTrimmedToSnapshotWindow(t *testing.T) {
	store := &stubStore{}
	w := testWriter(store, func(o *WriterOptions) { o.SnapshotKlines = 20 })

	w.Write(context.Background(), models.TraderConfig{ID: "t1"}, testEvent(), viewWithKlines(150), nil)

	sigs := store.signals()
	require.Len(t, sigs, 1)
	require.Len(t, sigs[0].Klines, 20)
	// хвост окна, не голова
	assert.Equal(t, 100.0+149, sigs[0].Klines[19].Close)
	assert.Equal(t, 100.0+130, sigs[0].Klines[0].Close)
}

func TestWriter_PriceFallsBackToTicker(t *testing.T) {
	store := &stubStore{}
	w := testWriter(store)

	view := viewWithKlines(5)
	ev := testEvent()
	ev.Interval = "1h" // свечей этого интервала в снапшоте нет

	w.Write(context.Background(), models.TraderConfig{ID: "t1"}, ev, view, nil)

	sigs := store.signals()
	require.Len(t, sigs, 1)
	assert.Equal(t, 42.0, sigs[0].Price)
	assert.Empty(t, sigs[0].Klines)
}

func TestWriter_AttachesIndicatorSeries(t *testing.T) {
	store := &stubStore{}
	w := testWriter(store)

	series := models.IndicatorSeries{"rsi_14": {{X: 1748779500000, Y: 27.3}}}
	w.Write(context.Background(), models.TraderConfig{ID: "t1"}, testEvent(), viewWithKlines(5), series)

	sigs := store.signals()
	require.Len(t, sigs, 1)
	assert.Contains(t, sigs[0].IndicatorData, "rsi_14")
}

func TestWriter_BroadcastOnSuccessOnly(t *testing.T) {
	b := &stubBroadcast{}

	okStore := &stubStore{}
	w := testWriter(okStore, func(o *WriterOptions) { o.Broadcast = b })
	w.Write(context.Background(), models.TraderConfig{ID: "t1"}, testEvent(), viewWithKlines(5), nil)
	assert.Equal(t, 1, b.calls)

	badStore := &stubStore{failLeft: 100}
	w = testWriter(badStore, func(o *WriterOptions) { o.Broadcast = b })
	w.Write(context.Background(), models.TraderConfig{ID: "t1"}, testEvent(), viewWithKlines(5), nil)
	assert.Equal(t, 1, b.calls)
}

func TestWriter_ContextCancelStopsRetries(t *testing.T) {
	store := &stubStore{failLeft: 100}
	w := testWriter(store, func(o *WriterOptions) { o.Backoff = time.Hour })

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan struct{})
	go func() {
		w.Write(ctx, models.TraderConfig{ID: "t1"}, testEvent(), viewWithKlines(5), nil)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Write must stop retrying on cancelled context")
	}
	assert.Empty(t, store.signals())
}
