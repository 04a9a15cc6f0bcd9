package service

import (
	"context"
	"time"

	"signal_engine/internal/metrics"
	"signal_engine/internal/models"
	"signal_engine/pkg/logger"

	"github.com/google/uuid"
)

type Store interface {
	Insert(ctx context.Context, sig *models.Signal) error
}

// Broadcaster — внешний транспорт (telegram / UI). Может быть nil.
type Broadcaster interface {
	SignalCreated(ctx context.Context, sig *models.Signal)
}

// Writer собирает Signal из результата юнита и персистит ровно один раз.
// Безопасен для конкурентных вызовов из юнитов.
type Writer struct {
	store     Store
	broadcast Broadcaster

	source     models.SignalSource
	instanceID string

	snapshotK int
	retries   int
	backoff   time.Duration
}

type WriterOptions struct {
	Store          Store
	Broadcast      Broadcaster // optional
	Source         models.SignalSource
	InstanceID     string
	SnapshotKlines int
	Retries        int
	Backoff        time.Duration
}

func NewWriter(opts WriterOptions) *Writer {
	if opts.SnapshotKlines <= 0 {
		opts.SnapshotKlines = 120
	}
	if opts.Retries <= 0 {
		opts.Retries = 3
	}
	if opts.Backoff <= 0 {
		opts.Backoff = 500 * time.Millisecond
	}
	if opts.InstanceID == "" {
		opts.InstanceID = uuid.NewString()
	}
	return &Writer{
		store:      opts.Store,
		broadcast:  opts.Broadcast,
		source:     opts.Source,
		instanceID: opts.InstanceID,
		snapshotK:  opts.SnapshotKlines,
		retries:    opts.Retries,
		backoff:    opts.Backoff,
	}
}

// Write персистит сигнал с ретраями. Исчерпали бюджет — сигнал потерян
// навсегда (свеча второй раз не закроется), логируем и считаем.
func (w *Writer) Write(ctx context.Context, tr models.TraderConfig, ev models.CloseEvent, view models.MarketDataView, series models.IndicatorSeries) {
	sig := w.build(tr, ev, view, series)

	var err error
	backoff := w.backoff
	for attempt := 1; attempt <= w.retries; attempt++ {
		if err = w.store.Insert(ctx, sig); err == nil {
			logger.Info("signal: created id=%s trader=%s symbol=%s interval=%s close=%s indicators=%d",
				sig.ID, sig.TraderID, sig.Symbol, sig.Interval,
				sig.TriggeredAt.Format(time.RFC3339), len(sig.IndicatorData))
			if w.broadcast != nil {
				w.broadcast.SignalCreated(ctx, sig)
			}
			return
		}
		if attempt < w.retries {
			logger.Warn("signal: insert attempt %d/%d failed trader=%s symbol=%s: %v",
				attempt, w.retries, sig.TraderID, sig.Symbol, err)
			if !sleep(ctx, backoff) {
				break // процесс гасится — дальше не ретраим
			}
			backoff *= 2
		}
	}

	metrics.SignalsDroppedTotal.Inc()
	logger.Error("signal: dropped after %d attempts trader=%s symbol=%s interval=%s close=%s: %v",
		w.retries, sig.TraderID, sig.Symbol, sig.Interval,
		sig.TriggeredAt.Format(time.RFC3339), err)
}

func sleep(ctx context.Context, d time.Duration) bool {
	select {
	case <-time.After(d):
		return true
	case <-ctx.Done():
		return false
	}
}

func (w *Writer) build(tr models.TraderConfig, ev models.CloseEvent, view models.MarketDataView, series models.IndicatorSeries) *models.Signal {
	price := view.Ticker.Price
	klines := view.Klines[ev.Interval]
	if n := len(klines); n > 0 {
		price = klines[n-1].Close
		if n > w.snapshotK {
			klines = klines[n-w.snapshotK:]
		}
	}

	return &models.Signal{
		ID:            uuid.NewString(),
		TraderID:      tr.ID,
		Symbol:        ev.Symbol,
		Interval:      ev.Interval,
		TriggeredAt:   ev.CloseTime,
		Price:         price,
		IndicatorData: series,
		Klines:        klines,
		Source:        w.source,
		InstanceID:    w.instanceID,
	}
}
