package service

import (
	"context"
	"sync/atomic"
	"time"

	"signal_engine/internal/helper"
	"signal_engine/internal/models"
	"signal_engine/pkg/logger"
)

// Source отдаёт включённые трейдеры в скоупе этого инстанса.
type Source interface {
	FetchEnabled(ctx context.Context) ([]models.TraderConfig, error)
}

type snapshot struct {
	byInterval map[string][]models.TraderConfig
	takenAt    time.Time
}

// Registry держит активный набор трейдеров. Снапшот меняется только целиком
// через atomic swap — читатели никогда не видят полуобновлённый набор.
type Registry struct {
	src     Source
	refresh time.Duration

	snap atomic.Value // *snapshot
}

func NewRegistry(src Source, refresh time.Duration) *Registry {
	r := &Registry{src: src, refresh: refresh}
	r.snap.Store(&snapshot{byInterval: map[string][]models.TraderConfig{}})
	return r
}

// ListActive — включённые трейдеры с триггерным интервалом interval.
func (r *Registry) ListActive(interval string) []models.TraderConfig {
	s := r.snap.Load().(*snapshot)
	return s.byInterval[helper.NormTF(interval)]
}

func (r *Registry) ActiveCount() int {
	s := r.snap.Load().(*snapshot)
	n := 0
	for _, list := range s.byInterval {
		n += len(list)
	}
	return n
}

// Refresh перечитывает источник и свопает снапшот. При ошибке старый
// набор остаётся жить — экзекьютор не блокируем.
func (r *Registry) Refresh(ctx context.Context) error {
	traders, err := r.src.FetchEnabled(ctx)
	if err != nil {
		logger.Warn("registry: refresh failed, keeping stale set: %v", err)
		return err
	}

	byInterval := make(map[string][]models.TraderConfig)
	for _, t := range traders {
		if !t.Enabled {
			continue
		}
		itv := helper.NormTF(t.Interval)
		byInterval[itv] = append(byInterval[itv], t)
	}

	r.snap.Store(&snapshot{byInterval: byInterval, takenAt: time.Now()})
	return nil
}

// Run — поллинг-цикл. Выключенный трейдер исчезает из активного набора
// не позже следующего тика.
func (r *Registry) Run(ctx context.Context) {
	if err := r.Refresh(ctx); err == nil {
		logger.Info("registry: initial refresh, %d active traders", r.ActiveCount())
	}

	t := time.NewTicker(r.refresh)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			_ = r.Refresh(ctx)
		}
	}
}
