package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smc_bot/internal/models"
)

type fakeHeartbeat struct {
	connected atomic.Bool
	ticks     atomic.Int32
}

func (h *fakeHeartbeat) SetWSConnected(v bool) { h.connected.Store(v) }
func (h *fakeHeartbeat) TouchTick(time.Time)   { h.ticks.Add(1) }

// derivServer answers tick and candle subscriptions with canned frames.
func derivServer(t *testing.T, conns *atomic.Int32) *httptest.Server {
	up := websocket.Upgrader{}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "1089", r.URL.Query().Get("app_id"))
		conn, err := up.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		conns.Add(1)

		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var req map[string]any
		if err := sonic.Unmarshal(msg, &req); err != nil {
			return
		}

		var frames []string
		switch {
		case req["ticks"] != nil:
			sym := req["ticks"].(string)
			frames = []string{
				`{"msg_type":"tick","tick":{"symbol":"` + sym + `","quote":2000.5,"epoch":1700000000}}`,
				`{"msg_type":"tick","tick":{"symbol":"` + sym + `","quote":2001.25,"epoch":1700000001}}`,
			}
		case req["ticks_history"] != nil:
			frames = []string{
				`{"msg_type":"candles","candles":[{"epoch":1700000000,"open":1,"high":2,"low":0.5,"close":1.5},{"epoch":1700000900,"open":1.5,"high":2.5,"low":1,"close":2}]}`,
				`{"msg_type":"ohlc","ohlc":{"open_time":1700000900,"epoch":1700000950,"open":"1.5","high":"3","low":"1","close":"2.8","symbol":"frxEURUSD"}}`,
			}
		}
		for _, f := range frames {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(f)); err != nil {
				return
			}
		}
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
}

func newTestClient(srv *httptest.Server, hb Heartbeat) *Client {
	return NewClient(Config{
		URL:          "ws" + strings.TrimPrefix(srv.URL, "http"),
		ReconnectMin: 10 * time.Millisecond,
		ReconnectMax: 20 * time.Millisecond,
	}, hb)
}

func recvTick(t *testing.T, ch <-chan models.Tick) models.Tick {
	t.Helper()
	select {
	case tk, ok := <-ch:
		require.True(t, ok)
		return tk
	case <-time.After(2 * time.Second):
		t.Fatal("no tick received")
	}
	return models.Tick{}
}

func TestSubscribeTicks(t *testing.T) {
	var conns atomic.Int32
	srv := derivServer(t, &conns)
	defer srv.Close()

	hb := &fakeHeartbeat{}
	c := newTestClient(srv, hb)
	defer c.Close()

	ctx, cancel := context.WithCancel(context.Background())
	ch, err := c.SubscribeTicks(ctx, "XAUUSD")
	require.NoError(t, err)

	first := recvTick(t, ch)
	assert.Equal(t, "XAUUSD", first.Symbol)
	assert.Equal(t, 2000.5, first.Price)
	assert.Equal(t, 2001.25, recvTick(t, ch).Price)
	assert.True(t, hb.connected.Load())
	assert.EqualValues(t, 2, hb.ticks.Load())

	cancel()
	require.Eventually(t, func() bool {
		_, ok := <-ch
		return !ok
	}, time.Second, 10*time.Millisecond)
	require.Eventually(t, func() bool {
		c.mu.Lock()
		defer c.mu.Unlock()
		return len(c.ticks) == 0
	}, time.Second, 10*time.Millisecond)
}

func TestSubscribeTicksSharesStream(t *testing.T) {
	var conns atomic.Int32
	srv := derivServer(t, &conns)
	defer srv.Close()

	c := newTestClient(srv, nil)
	defer c.Close()

	ctx := context.Background()
	a, err := c.SubscribeTicks(ctx, "EURUSD")
	require.NoError(t, err)
	recvTick(t, a)

	b, err := c.SubscribeTicks(ctx, "EURUSD")
	require.NoError(t, err)
	assert.NotNil(t, b)
	assert.EqualValues(t, 1, conns.Load())
}

func TestSubscribeCandlesFillsSnapshot(t *testing.T) {
	var conns atomic.Int32
	srv := derivServer(t, &conns)
	defer srv.Close()

	c := newTestClient(srv, nil)
	defer c.Close()

	_, err := c.SubscribeCandles(context.Background(), "EURUSD", "M7")
	require.Error(t, err)

	ch, err := c.SubscribeCandles(context.Background(), "EURUSD", "M15")
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		select {
		case <-ch:
		case <-time.After(2 * time.Second):
			t.Fatal("no candle received")
		}
	}

	snap := c.Snapshot("EURUSD", "M15")
	require.Len(t, snap, 2)
	assert.Equal(t, 3.0, snap[1].High)
	assert.Equal(t, 2.8, snap[1].Close)
	assert.Nil(t, c.Snapshot("GBPUSD", "M15"))
}
