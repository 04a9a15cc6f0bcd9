package service

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"signal_engine/internal/helper"
	"signal_engine/internal/models"
	"signal_engine/internal/modules/config"
	"signal_engine/pkg/logger"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
)

const (
	wsEndpoint   = "wss://stream.binance.com:9443/stream"
	restEndpoint = "https://api.binance.com"

	readDeadline = 30 * time.Second
	maxBackoff   = 30 * time.Second
)

// CandleSink — куда складываем рынок (кеш).
type CandleSink interface {
	Append(models.Candle)
	SetTicker(models.Ticker)
}

// CloseNotifier — кому сообщаем о закрытии свечи (clock).
type CloseNotifier interface {
	OnCandleClose(symbol, interval string, closeTime time.Time)
}

// Client — дефолтная реализация внешнего market-data коллаборатора:
// один combined-stream сокет на все (symbol, interval) пары.
type Client struct {
	cfg   *config.Config
	sink  CandleSink
	clock CloseNotifier

	wsDialer *websocket.Dialer
	http     *http.Client
}

func NewClient(cfg *config.Config, sink CandleSink, clock CloseNotifier) *Client {
	return &Client{
		cfg:      cfg,
		sink:     sink,
		clock:    clock,
		wsDialer: &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		http:     &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *Client) streamURL() string {
	streams := make([]string, 0, len(c.cfg.Symbols)*len(c.cfg.Intervals))
	for _, sym := range c.cfg.Symbols {
		for _, itv := range c.cfg.Intervals {
			streams = append(streams, strings.ToLower(sym)+"@kline_"+helper.NormTF(itv))
		}
	}
	return wsEndpoint + "?streams=" + strings.Join(streams, "/")
}

// Start прогревает кеш REST-ом и запускает стример.
func (c *Client) Start(ctx context.Context) {
	if err := c.Backfill(ctx); err != nil {
		// без прогрева тоже жить можно — первые циклы отсеет DataGap
		logger.Warn("feed: backfill failed: %v", err)
	}
	go c.run(ctx)
}

func (c *Client) run(ctx context.Context) {
	url := c.streamURL()
	backoff := time.Second

	for {
		if ctx.Err() != nil {
			return
		}
		err := c.consume(ctx, url)
		if ctx.Err() != nil {
			return
		}
		logger.Warn("feed: stream disconnected: %v, reconnect in %s", err, backoff)
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return
		}
		backoff = time.Duration(math.Min(float64(maxBackoff), float64(backoff)*1.8))
	}
}

func (c *Client) consume(ctx context.Context, url string) error {
	conn, _, err := c.wsDialer.DialContext(ctx, url, nil)
	if err != nil {
		return errors.Wrap(err, "dial")
	}
	defer func() { _ = conn.Close() }()

	logger.Info("feed: connected, %d symbols x %d intervals",
		len(c.cfg.Symbols), len(c.cfg.Intervals))

	conn.SetReadLimit(1 << 20)
	_ = conn.SetReadDeadline(time.Now().Add(readDeadline))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(readDeadline))
	})

	// keepalive ping — иначе binance рвёт соединение
	stopPing := make(chan struct{})
	defer close(stopPing)
	go func() {
		t := time.NewTicker(15 * time.Second)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-stopPing:
				return
			case <-t.C:
				_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		_, msg, err := conn.ReadMessage()
		if err != nil {
			return errors.Wrap(err, "read")
		}
		c.handleFrame(msg)
	}
}

type klineFrame struct {
	Stream string `json:"stream"`
	Data   struct {
		Symbol string `json:"s"`
		K      struct {
			Start       int64  `json:"t"`
			Interval    string `json:"i"`
			Open        string `json:"o"`
			High        string `json:"h"`
			Low         string `json:"l"`
			Close       string `json:"c"`
			Volume      string `json:"v"`
			QuoteVolume string `json:"q"`
			Trades      int64  `json:"n"`
			Final       bool   `json:"x"`
		} `json:"k"`
	} `json:"data"`
}

func (c *Client) handleFrame(msg []byte) {
	candle, final, err := parseKline(msg)
	if err != nil {
		return // служебный кадр или мусор
	}

	// тикер обновляем с каждого кадра, закрытия не ждём
	c.sink.SetTicker(models.Ticker{
		Symbol: candle.Symbol,
		Price:  candle.Close,
		At:     time.Now(),
	})

	if !final {
		return
	}
	c.sink.Append(candle)
	c.clock.OnCandleClose(candle.Symbol, candle.Interval, candle.CloseTime)
}

// parseKline разбирает combined-stream кадр. Второй результат — закрыта ли свеча.
func parseKline(msg []byte) (models.Candle, bool, error) {
	var frame klineFrame
	if err := sonic.Unmarshal(msg, &frame); err != nil {
		return models.Candle{}, false, errors.Wrap(err, "decode frame")
	}
	k := frame.Data.K
	if frame.Data.Symbol == "" || k.Start == 0 {
		return models.Candle{}, false, errors.New("not a kline frame")
	}

	open, err1 := strconv.ParseFloat(k.Open, 64)
	high, err2 := strconv.ParseFloat(k.High, 64)
	low, err3 := strconv.ParseFloat(k.Low, 64)
	closep, err4 := strconv.ParseFloat(k.Close, 64)
	if err1 != nil || err2 != nil || err3 != nil || err4 != nil {
		return models.Candle{}, false, errors.New("bad ohlc")
	}
	vol, _ := strconv.ParseFloat(k.Volume, 64)
	quote, _ := strconv.ParseFloat(k.QuoteVolume, 64)

	itv := helper.NormTF(k.Interval)
	start := time.UnixMilli(k.Start)
	end := start
	if d := helper.IntervalDuration(itv); d > 0 {
		end = start.Add(d)
	}

	return models.Candle{
		Symbol:      frame.Data.Symbol,
		Interval:    itv,
		OpenTime:    start,
		CloseTime:   end,
		Open:        open,
		High:        high,
		Low:         low,
		Close:       closep,
		Volume:      vol,
		QuoteVolume: quote,
		TradeCount:  k.Trades,
		Closed:      k.Final,
	}, k.Final, nil
}
