package service

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"signal_engine/internal/helper"
	"signal_engine/internal/models"
	"signal_engine/pkg/logger"

	"github.com/bytedance/sonic"
	"github.com/pkg/errors"
)

// Backfill прогревает кеш историей, чтобы длинные lookback-и считались
// с первого же закрытия, а не через часы стрима.
func (c *Client) Backfill(ctx context.Context) error {
	limit := c.cfg.BackfillLimit
	if limit <= 0 {
		return nil
	}

	for _, sym := range c.cfg.Symbols {
		for _, itv := range c.cfg.Intervals {
			itv = helper.NormTF(itv)
			candles, err := c.fetchKlines(ctx, sym, itv, limit)
			if err != nil {
				return errors.Wrapf(err, "backfill %s %s", sym, itv)
			}
			for _, k := range candles {
				c.sink.Append(k)
			}
			logger.Info("feed: backfill %s %s: %d candles", sym, itv, len(candles))
		}
	}
	return nil
}

func (c *Client) fetchKlines(ctx context.Context, symbol, interval string, limit int) ([]models.Candle, error) {
	url := fmt.Sprintf("%s/api/v3/klines?symbol=%s&interval=%s&limit=%d",
		restEndpoint, symbol, interval, limit)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("klines: http %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	// формат строки: [openTime, o, h, l, c, v, closeTime, q, n, ...]
	var rows [][]interface{}
	if err := sonic.Unmarshal(body, &rows); err != nil {
		return nil, errors.Wrap(err, "decode klines")
	}

	dur := helper.IntervalDuration(interval)
	out := make([]models.Candle, 0, len(rows))
	for _, row := range rows {
		if len(row) < 9 {
			continue
		}
		openMs, ok := row[0].(float64)
		if !ok {
			continue
		}
		open, err1 := parseField(row[1])
		high, err2 := parseField(row[2])
		low, err3 := parseField(row[3])
		closep, err4 := parseField(row[4])
		if err1 != nil || err2 != nil || err3 != nil || err4 != nil {
			continue
		}
		vol, _ := parseField(row[5])
		quote, _ := parseField(row[7])
		trades, _ := row[8].(float64)

		start := time.UnixMilli(int64(openMs))
		end := start
		if dur > 0 {
			end = start.Add(dur)
		}
		// последняя строка может быть ещё не закрытой свечой
		if time.Now().Before(end) {
			continue
		}

		out = append(out, models.Candle{
			Symbol:      symbol,
			Interval:    interval,
			OpenTime:    start,
			CloseTime:   end,
			Open:        open,
			High:        high,
			Low:         low,
			Close:       closep,
			Volume:      vol,
			QuoteVolume: quote,
			TradeCount:  int64(trades),
			Closed:      true,
		})
	}
	return out, nil
}

func parseField(v interface{}) (float64, error) {
	s, ok := v.(string)
	if !ok {
		return 0, errors.New("unexpected field type")
	}
	return strconv.ParseFloat(s, 64)
}
