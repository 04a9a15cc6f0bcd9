package service

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const builtinYAML = `
traders:
  - id: rsi-oversold
    interval: 5m
    timeframes: [5m, 1h]
    lookback: 30
    indicators:
      - id: rsi_14
        name: RSI 14
        kind: panel
        lines: 1
    condition: |
      function evaluate(view) { return true; }
    series: |
      function series(view) { return {rsi_14: []}; }
  - id: broken-no-condition
    interval: 5m
  - id: switched-off
    interval: 5m
    disabled: true
    condition: "function evaluate(view) { return true; }"
  - id: defaults
    interval: 1h
    condition: "function evaluate(view) { return false; }"
`

func TestBuiltinSource_FetchEnabled(t *testing.T) {
	path := filepath.Join(t.TempDir(), "builtin_traders.yaml")
	require.NoError(t, os.WriteFile(path, []byte(builtinYAML), 0o644))

	src := NewBuiltinSource(path)
	traders, err := src.FetchEnabled(context.Background())
	require.NoError(t, err)

	// битый и выключенный отфильтрованы
	require.Len(t, traders, 2)

	first := traders[0]
	assert.Equal(t, "rsi-oversold", first.ID)
	assert.True(t, first.Enabled)
	assert.EqualValues(t, 0, first.OwnerID)
	assert.Equal(t, "5m", first.Interval)
	assert.Equal(t, []string{"5m", "1h"}, first.Timeframes)
	assert.Equal(t, 30, first.Lookback)
	require.Len(t, first.Indicators, 1)
	assert.Equal(t, "rsi_14", first.Indicators[0].ID)
	assert.NotEmpty(t, first.ConditionCode)
	assert.NotEmpty(t, first.SeriesCode)

	// lookback по умолчанию
	assert.Equal(t, 50, traders[1].Lookback)
}

func TestBuiltinSource_MissingFile(t *testing.T) {
	src := NewBuiltinSource(filepath.Join(t.TempDir(), "nope.yaml"))
	_, err := src.FetchEnabled(context.Background())
	require.Error(t, err)
}
