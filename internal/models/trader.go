package models

import "time"

type IndicatorKind string

const (
	IndicatorOverlay IndicatorKind = "overlay" // рисуется поверх свечей
	IndicatorPanel   IndicatorKind = "panel"   // отдельная панель под графиком
)

type IndicatorDecl struct {
	ID          string        `json:"id" yaml:"id"`
	DisplayName string        `json:"displayName" yaml:"name"`
	Kind        IndicatorKind `json:"kind" yaml:"kind"`
	Lines       int           `json:"lineCount" yaml:"lines"`
}

// TraderConfig — сгенерённое условие + метаданные. Для движка read-only,
// автор/генерация живут снаружи.
type TraderConfig struct {
	ID            string
	OwnerID       int64 // 0 — системный (built-in)
	Enabled       bool
	Interval      string   // триггерный таймфрейм
	Timeframes    []string // все таймфреймы, которые условие читает
	Lookback      int      // минимум свечей под индикаторы
	ConditionCode string
	SeriesCode    string
	Indicators    []IndicatorDecl
	UpdatedAt     time.Time
}

// RequiredTimeframes — триггерный интервал всегда в наборе.
func (t TraderConfig) RequiredTimeframes() []string {
	for _, tf := range t.Timeframes {
		if tf == t.Interval {
			return t.Timeframes
		}
	}
	out := make([]string, 0, len(t.Timeframes)+1)
	out = append(out, t.Interval)
	out = append(out, t.Timeframes...)
	return out
}
