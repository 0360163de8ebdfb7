package service

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"smc_bot/internal/models"
	"smc_bot/pkg/logger"
)

type Config struct {
	URL          string
	AppID        string
	PingInterval time.Duration
	ReconnectMin time.Duration
	ReconnectMax time.Duration
	MaxCandles   int
	HistoryCount int
}

// Heartbeat receives connection and tick liveness, e.g. the health state.
type Heartbeat interface {
	SetWSConnected(v bool)
	TouchTick(t time.Time)
}

// Client streams Deriv ticks and candles. Every distinct subscription owns
// one websocket; subscribers of the same stream share it and the stream is
// torn down when the last one leaves.
type Client struct {
	cfg    Config
	dialer *websocket.Dialer
	hb     Heartbeat
	live   atomic.Int32

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	ticks   map[string]*fanout[models.Tick]
	candles map[string]*candleFeed
}

type candleFeed struct {
	*fanout[models.Candle]
	series *Series
}

func NewClient(cfg Config, hb Heartbeat) *Client {
	if cfg.URL == "" {
		cfg.URL = "wss://ws.binaryws.com/websockets/v3"
	}
	if cfg.AppID == "" {
		cfg.AppID = "1089"
	}
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = 30 * time.Second
	}
	if cfg.ReconnectMin <= 0 {
		cfg.ReconnectMin = time.Second
	}
	if cfg.ReconnectMax < cfg.ReconnectMin {
		cfg.ReconnectMax = 30 * time.Second
	}
	if cfg.HistoryCount <= 0 {
		cfg.HistoryCount = 200
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Client{
		cfg:     cfg,
		dialer:  &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		hb:      hb,
		ctx:     ctx,
		cancel:  cancel,
		ticks:   make(map[string]*fanout[models.Tick]),
		candles: make(map[string]*candleFeed),
	}
}

// Close stops every stream.
func (c *Client) Close() {
	c.cancel()
}

// SubscribeTicks streams quotes for symbol until ctx is done, then closes
// the returned channel.
func (c *Client) SubscribeTicks(ctx context.Context, symbol string) (<-chan models.Tick, error) {
	c.mu.Lock()
	f, ok := c.ticks[symbol]
	if !ok {
		sctx, cancel := context.WithCancel(c.ctx)
		f = newFanout[models.Tick](cancel)
		c.ticks[symbol] = f

		req := map[string]any{"ticks": DerivSymbol(symbol), "subscribe": 1}
		go c.stream(sctx, "ticks "+symbol, req, func(fr frame) {
			if fr.Tick == nil {
				return
			}
			t := fr.Tick.tick(symbol)
			if c.hb != nil {
				c.hb.TouchTick(t.Time)
			}
			f.publish(t)
		})
	}
	ch := f.add()
	c.mu.Unlock()

	go func() {
		<-ctx.Done()
		c.mu.Lock()
		defer c.mu.Unlock()
		if f.remove(ch) == 0 && c.ticks[symbol] == f {
			f.cancel()
			delete(c.ticks, symbol)
		}
	}()
	return ch, nil
}

// SubscribeCandles backfills history and then streams live bar updates for
// symbol at timeframe (M1..MN). Updates also land in the series behind
// Snapshot.
func (c *Client) SubscribeCandles(ctx context.Context, symbol, timeframe string) (<-chan models.Candle, error) {
	gran, err := Granularity(timeframe)
	if err != nil {
		return nil, err
	}
	key := seriesKey(symbol, timeframe)

	c.mu.Lock()
	f, ok := c.candles[key]
	if !ok {
		sctx, cancel := context.WithCancel(c.ctx)
		f = &candleFeed{fanout: newFanout[models.Candle](cancel), series: NewSeries(c.cfg.MaxCandles)}
		c.candles[key] = f

		req := map[string]any{
			"ticks_history": DerivSymbol(symbol),
			"end":           "latest",
			"count":         c.cfg.HistoryCount,
			"granularity":   gran,
			"style":         "candles",
			"subscribe":     1,
		}
		go c.stream(sctx, "candles "+key, req, func(fr frame) {
			switch {
			case len(fr.Candles) > 0:
				history := make([]models.Candle, 0, len(fr.Candles))
				for _, cf := range fr.Candles {
					history = append(history, cf.candle())
				}
				f.series.Reset(history)
				for _, cd := range history {
					f.publish(cd)
				}
			case fr.OHLC != nil:
				cd := fr.OHLC.candle()
				f.series.Upsert(cd)
				f.publish(cd)
			}
		})
	}
	ch := f.add()
	c.mu.Unlock()

	go func() {
		<-ctx.Done()
		c.mu.Lock()
		defer c.mu.Unlock()
		if f.remove(ch) == 0 && c.candles[key] == f {
			f.cancel()
			delete(c.candles, key)
		}
	}()
	return ch, nil
}

// Snapshot copies the current candle window, nil when nothing streams it.
func (c *Client) Snapshot(symbol, timeframe string) []models.Candle {
	c.mu.Lock()
	f, ok := c.candles[seriesKey(symbol, timeframe)]
	c.mu.Unlock()
	if !ok {
		return nil
	}
	return f.series.Snapshot()
}

// stream keeps one subscription alive: dial, send req, read frames until
// the socket drops, then reconnect with exponential backoff.
func (c *Client) stream(ctx context.Context, name string, req map[string]any, handle func(frame)) {
	url := c.cfg.URL + "?app_id=" + c.cfg.AppID
	backoff := c.cfg.ReconnectMin

	for {
		if ctx.Err() != nil {
			return
		}
		logger.Info("[WS] connect %s", name)
		conn, _, err := c.dialer.DialContext(ctx, url, nil)
		if err != nil {
			logger.Warn("[WS] dial %s: %v", name, err)
			if !sleep(ctx, backoff) {
				return
			}
			backoff = nextBackoff(backoff, c.cfg.ReconnectMax)
			continue
		}

		if err := writeJSON(conn, req); err != nil {
			logger.Warn("[WS] subscribe %s: %v", name, err)
			_ = conn.Close()
			if !sleep(ctx, backoff) {
				return
			}
			backoff = nextBackoff(backoff, c.cfg.ReconnectMax)
			continue
		}

		c.setLive(1)
		received := c.readLoop(ctx, conn, name, handle)
		c.setLive(-1)

		if received {
			backoff = c.cfg.ReconnectMin
		}
		if !sleep(ctx, backoff) {
			return
		}
		backoff = nextBackoff(backoff, c.cfg.ReconnectMax)
	}
}

// readLoop returns whether any data frame arrived before the socket dropped.
func (c *Client) readLoop(ctx context.Context, conn *websocket.Conn, name string, handle func(frame)) bool {
	connCtx, stop := context.WithCancel(ctx)
	defer stop()

	go func() {
		t := time.NewTicker(c.cfg.PingInterval)
		defer t.Stop()
		for {
			select {
			case <-connCtx.Done():
				// unblocks ReadMessage
				_ = conn.Close()
				return
			case <-t.C:
				if err := writeJSON(conn, map[string]any{"ping": 1}); err != nil {
					logger.Warn("[WS] ping %s: %v", name, err)
				}
			}
		}
	}()

	received := false
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				logger.Warn("[WS] read %s: %v", name, err)
			}
			return received
		}
		fr, err := decodeFrame(msg)
		if err != nil {
			logger.Debug("[WS] bad frame %s: %v", name, err)
			continue
		}
		if fr.Error != nil {
			logger.Error("[WS] %s rejected: %v", name, fr.Error)
			return received
		}
		if fr.MsgType == "ping" {
			continue
		}
		received = true
		handle(fr)
	}
}

func (c *Client) setLive(delta int32) {
	n := c.live.Add(delta)
	if c.hb != nil {
		c.hb.SetWSConnected(n > 0)
	}
}

func nextBackoff(cur, max time.Duration) time.Duration {
	cur *= 2
	if cur > max {
		return max
	}
	return cur
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
