package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"signal_engine/internal/helper"
	"signal_engine/internal/metrics"
	"signal_engine/internal/models"
	mdsvc "signal_engine/internal/modules/marketdata/service"
	sbsvc "signal_engine/internal/modules/sandbox/service"
	"signal_engine/pkg/logger"

	"github.com/opentracing/opentracing-go"
)

type Registry interface {
	ListActive(interval string) []models.TraderConfig
}

type ViewSource interface {
	Snapshot(symbol string, intervals []string, need int) (models.MarketDataView, error)
}

type Evaluator interface {
	EvaluateCondition(ctx context.Context, code string, view models.MarketDataView) (bool, error)
	EvaluateSeries(ctx context.Context, code string, view models.MarketDataView, decls []models.IndicatorDecl) (models.IndicatorSeries, error)
}

type Writer interface {
	Write(ctx context.Context, trader models.TraderConfig, ev models.CloseEvent, view models.MarketDataView, series models.IndicatorSeries)
}

// Executor — диспетчер. На каждое закрытие свечи фан-аут по активным
// трейдерам этого интервала, юнит = (trader, symbol). Пул ограничен
// семафором, повторный юнит той же пары не стартует, пока жив прошлый.
type Executor struct {
	reg    Registry
	cache  ViewSource
	sb     Evaluator
	writer Writer

	sem      chan struct{}
	inflight *inflightSet
	wg       sync.WaitGroup
}

func NewExecutor(reg Registry, cache ViewSource, sb Evaluator, writer Writer, workerLimit int) *Executor {
	if workerLimit <= 0 {
		workerLimit = 8
	}
	return &Executor{
		reg:      reg,
		cache:    cache,
		sb:       sb,
		writer:   writer,
		sem:      make(chan struct{}, workerLimit),
		inflight: newInflightSet(),
	}
}

// Run — главный цикл поверх канала закрытий.
func (e *Executor) Run(ctx context.Context, events <-chan models.CloseEvent) {
	logger.Info("executor: loop started")
	for {
		select {
		case <-ctx.Done():
			logger.Info("executor: loop stopped")
			return
		case ev, ok := <-events:
			if !ok {
				logger.Info("executor: close events channel closed")
				return
			}
			e.OnCloseEvent(ctx, ev)
		}
	}
}

// OnCloseEvent раздаёт юниты. Сам никогда не блокируется надолго:
// занятый пул или занятая пара — юнит просто пропускается до следующего
// закрытия.
func (e *Executor) OnCloseEvent(ctx context.Context, ev models.CloseEvent) {
	traders := e.reg.ListActive(ev.Interval)
	if len(traders) == 0 {
		return
	}

	for _, tr := range traders {
		tr := tr
		key := helper.EvalKey(tr.ID, ev.Symbol)
		if !e.inflight.TryAcquire(key) {
			// прошлая оценка этой пары ещё в полёте — debounce
			logger.Info("executor: skip busy pair trader=%s symbol=%s interval=%s close=%s",
				tr.ID, ev.Symbol, ev.Interval, ev.CloseTime.Format(time.RFC3339))
			continue
		}

		select {
		case e.sem <- struct{}{}:
			e.wg.Add(1)
			go func() {
				defer e.wg.Done()
				defer func() { <-e.sem }()
				defer e.inflight.Release(key)
				e.evaluate(ctx, tr, ev)
			}()
		default:
			// пул забит — этот цикл пара пропускает
			e.inflight.Release(key)
		}
	}
}

// Wait дожидается in-flight юнитов (graceful shutdown).
func (e *Executor) Wait() { e.wg.Wait() }

// evaluate — один юнит: снапшот -> условие -> (серии) -> запись.
// Любой исход юнита не трогает соседей и цикл диспетчера.
func (e *Executor) evaluate(ctx context.Context, tr models.TraderConfig, ev models.CloseEvent) {
	defer func() {
		if p := recover(); p != nil {
			logger.Error("executor: unit panic trader=%s symbol=%s: %v", tr.ID, ev.Symbol, p)
		}
	}()

	span := opentracing.StartSpan("evaluate_unit")
	span.SetTag("trader", tr.ID)
	span.SetTag("symbol", ev.Symbol)
	span.SetTag("interval", ev.Interval)
	defer span.Finish()

	started := time.Now()
	defer func() {
		metrics.EvaluationSeconds.WithLabelValues(tr.ID, ev.Symbol).Observe(time.Since(started).Seconds())
	}()

	view, err := e.cache.Snapshot(ev.Symbol, tr.RequiredTimeframes(), tr.Lookback)
	if err != nil {
		if errors.Is(err, mdsvc.ErrDataGap) {
			// мало истории — пропускаем символ, это не ошибка
			logger.Info("executor: data gap trader=%s symbol=%s interval=%s close=%s",
				tr.ID, ev.Symbol, ev.Interval, ev.CloseTime.Format(time.RFC3339))
			return
		}
		logger.Error("executor: snapshot failed trader=%s symbol=%s: %v", tr.ID, ev.Symbol, err)
		return
	}

	metrics.EvaluationsTotal.WithLabelValues(tr.ID, ev.Symbol).Inc()

	matched, err := e.sb.EvaluateCondition(ctx, tr.ConditionCode, view)
	if err != nil {
		if errors.Is(err, sbsvc.ErrTimeout) {
			span.SetTag("timeout", true)
			metrics.TimeoutsTotal.WithLabelValues(tr.ID, ev.Symbol).Inc()
			logger.Error("executor: condition timeout trader=%s symbol=%s interval=%s close=%s",
				tr.ID, ev.Symbol, ev.Interval, ev.CloseTime.Format(time.RFC3339))
			return
		}
		metrics.EvalErrorsTotal.WithLabelValues(tr.ID, ev.Symbol).Inc()
		logger.Error("executor: condition failed trader=%s symbol=%s interval=%s close=%s: %v",
			tr.ID, ev.Symbol, ev.Interval, ev.CloseTime.Format(time.RFC3339), err)
		return
	}
	if !matched {
		return
	}

	metrics.MatchesTotal.WithLabelValues(tr.ID, ev.Symbol).Inc()
	span.SetTag("matched", true)

	// серии — best effort: сигнал создаётся и без них
	var series models.IndicatorSeries
	if tr.SeriesCode != "" {
		series, err = e.sb.EvaluateSeries(ctx, tr.SeriesCode, view, tr.Indicators)
		if err != nil {
			metrics.SeriesFailuresTotal.WithLabelValues(tr.ID, ev.Symbol).Inc()
			logger.Info("executor: series failed trader=%s symbol=%s interval=%s close=%s: %v",
				tr.ID, ev.Symbol, ev.Interval, ev.CloseTime.Format(time.RFC3339), err)
			series = nil
		}
	}

	e.writer.Write(ctx, tr, ev, view, series)
}
