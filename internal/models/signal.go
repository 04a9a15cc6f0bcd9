package models

import "time"

type SignalSource string

const (
	SourceLocal SignalSource = "local" // выделенный инстанс юзера
	SourceCloud SignalSource = "cloud" // общий системный инстанс
)

// IndicatorPoint — точка серии для отрисовки. Y2/Y3 для многолинейных
// индикаторов (например, полосы Боллинджера).
type IndicatorPoint struct {
	X  int64    `json:"x"` // unix ms
	Y  float64  `json:"y"`
	Y2 *float64 `json:"y2,omitempty"`
	Y3 *float64 `json:"y3,omitempty"`
}

type IndicatorSeries map[string][]IndicatorPoint

// Signal — сматченное условие в момент времени. Создаётся один раз,
// апдейтов нет.
type Signal struct {
	ID            string
	TraderID      string
	Symbol        string
	Interval      string
	TriggeredAt   time.Time
	Price         float64
	IndicatorData IndicatorSeries // nil — серия не посчиталась, сигнал всё равно валиден
	Klines        []Candle        // снапшот последних K свечей триггерного интервала
	Source        SignalSource
	InstanceID    string
}
