package service

import (
	"errors"
	"fmt"
	"math"

	"signal_engine/internal/models"
)

// ErrSeriesInvalid — series-код вернул не то, что задекларировано.
// Нефатально: сигнал создаётся без индикаторов.
var ErrSeriesInvalid = errors.New("sandbox: invalid indicator series")

// ConvertSeries валидирует выхлоп series() против деклараций трейдера.
// Каждый задекларированный id обязан присутствовать с числовыми точками,
// незадекларированные ключи молча отбрасываются.
func ConvertSeries(raw interface{}, decls []models.IndicatorDecl) (models.IndicatorSeries, error) {
	m, ok := raw.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("%w: series() must return an object, got %T", ErrSeriesInvalid, raw)
	}

	out := make(models.IndicatorSeries, len(decls))
	for _, d := range decls {
		entry, found := m[d.ID]
		if !found {
			return nil, fmt.Errorf("%w: missing declared indicator %q", ErrSeriesInvalid, d.ID)
		}
		arr, ok := entry.([]interface{})
		if !ok {
			return nil, fmt.Errorf("%w: indicator %q is not an array", ErrSeriesInvalid, d.ID)
		}

		lines := d.Lines
		if lines <= 0 {
			lines = 1
		}

		points := make([]models.IndicatorPoint, 0, len(arr))
		for i, el := range arr {
			pm, ok := el.(map[string]interface{})
			if !ok {
				return nil, fmt.Errorf("%w: %s[%d] is not an object", ErrSeriesInvalid, d.ID, i)
			}

			x, err := intField(pm, "x")
			if err != nil {
				return nil, fmt.Errorf("%w: %s[%d]: %v", ErrSeriesInvalid, d.ID, i, err)
			}
			y, err := numField(pm, "y")
			if err != nil {
				return nil, fmt.Errorf("%w: %s[%d]: %v", ErrSeriesInvalid, d.ID, i, err)
			}

			p := models.IndicatorPoint{X: x, Y: y}
			if lines >= 2 {
				y2, err := numField(pm, "y2")
				if err != nil {
					return nil, fmt.Errorf("%w: %s[%d]: %v", ErrSeriesInvalid, d.ID, i, err)
				}
				p.Y2 = &y2
			}
			if lines >= 3 {
				y3, err := numField(pm, "y3")
				if err != nil {
					return nil, fmt.Errorf("%w: %s[%d]: %v", ErrSeriesInvalid, d.ID, i, err)
				}
				p.Y3 = &y3
			}
			points = append(points, p)
		}
		out[d.ID] = points
	}
	return out, nil
}

func numField(m map[string]interface{}, key string) (float64, error) {
	v, ok := m[key]
	if !ok {
		return 0, fmt.Errorf("missing field %q", key)
	}
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case int64:
		f = float64(n)
	default:
		return 0, fmt.Errorf("field %q is not numeric (%T)", key, v)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("field %q is not finite", key)
	}
	return f, nil
}

func intField(m map[string]interface{}, key string) (int64, error) {
	f, err := numField(m, key)
	if err != nil {
		return 0, err
	}
	return int64(f), nil
}
