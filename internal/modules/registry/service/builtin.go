package service

import (
	"context"
	"os"
	"time"

	"signal_engine/internal/models"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"
)

// BuiltinSource — системные (built-in) трейдеры из yaml-файла.
// Скоуп system не ходит в базу за конфигами вообще.
type BuiltinSource struct {
	path string
}

func NewBuiltinSource(path string) *BuiltinSource {
	return &BuiltinSource{path: path}
}

type builtinFile struct {
	Traders []builtinTrader `yaml:"traders"`
}

type builtinTrader struct {
	ID         string                 `yaml:"id"`
	Interval   string                 `yaml:"interval"`
	Timeframes []string               `yaml:"timeframes"`
	Lookback   int                    `yaml:"lookback"`
	Condition  string                 `yaml:"condition"`
	Series     string                 `yaml:"series"`
	Indicators []models.IndicatorDecl `yaml:"indicators"`
	Disabled   bool                   `yaml:"disabled"`
}

func (s *BuiltinSource) FetchEnabled(_ context.Context) ([]models.TraderConfig, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		return nil, errors.Wrap(err, "read builtin traders")
	}

	var file builtinFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, errors.Wrap(err, "parse builtin traders")
	}

	st, _ := os.Stat(s.path)
	var mtime time.Time
	if st != nil {
		mtime = st.ModTime()
	}

	out := make([]models.TraderConfig, 0, len(file.Traders))
	for _, bt := range file.Traders {
		if bt.Disabled || bt.ID == "" || bt.Condition == "" {
			continue
		}
		lookback := bt.Lookback
		if lookback <= 0 {
			lookback = 50
		}
		out = append(out, models.TraderConfig{
			ID:            bt.ID,
			OwnerID:       0,
			Enabled:       true,
			Interval:      bt.Interval,
			Timeframes:    bt.Timeframes,
			Lookback:      lookback,
			ConditionCode: bt.Condition,
			SeriesCode:    bt.Series,
			Indicators:    bt.Indicators,
			UpdatedAt:     mtime,
		})
	}
	return out, nil
}
