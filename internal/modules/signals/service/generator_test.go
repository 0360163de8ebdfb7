package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smc_bot/internal/models"
	"smc_bot/internal/smc"
)

func series(n int) []models.Candle {
	t0 := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	out := make([]models.Candle, n)
	for i := range out {
		k := i % 12
		tri := float64(k) / 6
		if k > 6 {
			tri = float64(12-k) / 6
		}
		mid := 100 + 0.2*float64(i) + 6*tri
		out[i] = models.Candle{Time: t0.Add(time.Duration(i) * 15 * time.Minute), Open: mid, High: mid + 0.5, Low: mid - 0.5, Close: mid}
	}
	return out
}

type fakeFeed struct {
	mu      sync.Mutex
	candles []models.Candle
	subs    map[string]int
}

func (f *fakeFeed) SubscribeCandles(ctx context.Context, symbol, timeframe string) (<-chan models.Candle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.subs == nil {
		f.subs = make(map[string]int)
	}
	f.subs[symbol+"/"+timeframe]++
	ch := make(chan models.Candle)
	go func() {
		<-ctx.Done()
		close(ch)
	}()
	return ch, nil
}

func (f *fakeFeed) Snapshot(string, string) []models.Candle {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.Candle(nil), f.candles...)
}

type fakeStore struct {
	mu      sync.Mutex
	created []models.Signal
	err     error
}

func (s *fakeStore) Create(_ context.Context, sig models.Signal) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return "", s.err
	}
	s.created = append(s.created, sig)
	return "sig-1", nil
}

type fakeNews struct {
	bias  *models.NewsBias
	err   error
	calls int
}

func (n *fakeNews) Bias(context.Context, string) (*models.NewsBias, error) {
	n.calls++
	return n.bias, n.err
}

type notes struct {
	mu   sync.Mutex
	msgs []string
}

func (n *notes) Notify(_ context.Context, msg string) {
	n.mu.Lock()
	n.msgs = append(n.msgs, msg)
	n.mu.Unlock()
}

func newTestGenerator(t *testing.T, feed *fakeFeed, store *fakeStore, news *fakeNews) (*Generator, *notes) {
	t.Helper()
	settings, err := NewSettingsStore("")
	require.NoError(t, err)
	n := &notes{}
	g := NewGenerator(Config{
		UserID:     "op",
		CandleWait: 40 * time.Millisecond,
		Poll:       5 * time.Millisecond,
	}, feed, store, news, n, settings)
	g.now = func() time.Time { return time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC) }
	t.Cleanup(g.Close)
	return g, n
}

func TestGeneratePersistsUntracked(t *testing.T) {
	feed := &fakeFeed{candles: series(60)}
	store := &fakeStore{}
	g, n := newTestGenerator(t, feed, store, &fakeNews{})

	sig, err := g.Generate(context.Background(), "XAUUSD")
	require.NoError(t, err)

	want := smc.NewAnalyzer(smc.DefaultConfig()).Score("XAUUSD", series(60), nil)
	assert.Equal(t, "sig-1", sig.ID)
	assert.Equal(t, want.Direction, sig.Direction)
	assert.Equal(t, want.Entry, sig.Entry)
	assert.Equal(t, "op", sig.UserID)
	assert.False(t, sig.Tracked)
	assert.Equal(t, time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC), sig.CreatedAt)

	require.Len(t, store.created, 1)
	assert.Equal(t, "op", store.created[0].UserID)
	require.Len(t, n.msgs, 1)
	assert.Contains(t, n.msgs[0], "XAUUSD BUY")
	assert.Contains(t, n.msgs[0], "ID: sig-1")
}

func TestGenerateInsufficientData(t *testing.T) {
	store := &fakeStore{}
	g, n := newTestGenerator(t, &fakeFeed{candles: series(20)}, store, &fakeNews{})

	_, err := g.Generate(context.Background(), "EURUSD")
	require.ErrorIs(t, err, ErrInsufficientData)
	assert.Empty(t, store.created)
	assert.Empty(t, n.msgs)
}

func TestGenerateUsesNewsBias(t *testing.T) {
	bias := &models.NewsBias{Bias: models.BiasBullish, Strength: 80}
	news := &fakeNews{bias: bias}
	g, _ := newTestGenerator(t, &fakeFeed{candles: series(60)}, &fakeStore{}, news)

	sig, err := g.Generate(context.Background(), "EURUSD")
	require.NoError(t, err)
	want := smc.NewAnalyzer(smc.DefaultConfig()).Score("EURUSD", series(60), bias)
	assert.InDelta(t, want.Confidence, sig.Confidence, 1e-9)
	assert.Equal(t, 1, news.calls)
}

func TestGenerateNewsFailureIsSkipped(t *testing.T) {
	news := &fakeNews{err: errors.New("rate limited")}
	g, _ := newTestGenerator(t, &fakeFeed{candles: series(60)}, &fakeStore{}, news)

	sig, err := g.Generate(context.Background(), "EURUSD")
	require.NoError(t, err)
	want := smc.NewAnalyzer(smc.DefaultConfig()).Score("EURUSD", series(60), nil)
	assert.InDelta(t, want.Confidence, sig.Confidence, 1e-9)
}

func TestGenerateRespectsSettings(t *testing.T) {
	news := &fakeNews{bias: &models.NewsBias{Bias: models.BiasBullish, Strength: 80}}
	g, _ := newTestGenerator(t, &fakeFeed{candles: series(60)}, &fakeStore{}, news)

	_, err := g.settings.Toggle("news_analysis")
	require.NoError(t, err)
	_, err = g.settings.Toggle("market_structure")
	require.NoError(t, err)

	r, err := g.Analyze(context.Background(), "EURUSD")
	require.NoError(t, err)
	assert.Nil(t, r.Structure)
	assert.Equal(t, 0, news.calls)
}

func TestGenerateStoreFailure(t *testing.T) {
	g, n := newTestGenerator(t, &fakeFeed{candles: series(60)}, &fakeStore{err: errors.New("down")}, &fakeNews{})

	_, err := g.Generate(context.Background(), "EURUSD")
	assert.Error(t, err)
	assert.Empty(t, n.msgs)
}

func TestGenerateSubscribesOncePerSymbol(t *testing.T) {
	feed := &fakeFeed{candles: series(60)}
	g, _ := newTestGenerator(t, feed, &fakeStore{}, &fakeNews{})

	for i := 0; i < 3; i++ {
		_, err := g.Analyze(context.Background(), "XAUUSD")
		require.NoError(t, err)
	}
	_, err := g.Analyze(context.Background(), "EURUSD")
	require.NoError(t, err)

	feed.mu.Lock()
	defer feed.mu.Unlock()
	assert.Equal(t, map[string]int{"XAUUSD/M15": 1, "EURUSD/M15": 1}, feed.subs)
}

func TestFormatSignal(t *testing.T) {
	msg := FormatSignal(models.Signal{
		ID: "abc", Symbol: "EURUSD", Direction: models.DirectionSell, Confidence: 64.2,
		Entry: 1.08345, SL: 1.0851, TP1: 1.082, TP2: 1.081, TP3: 1.08,
		Reasoning: []string{"Bearish break of structure at 1.09"},
	})
	assert.Contains(t, msg, "🔴 EURUSD SELL (64%)")
	assert.Contains(t, msg, "Entry: 1.08345")
	assert.Contains(t, msg, "• Bearish break of structure at 1.09")
	assert.Contains(t, msg, "ID: abc")

	neutral := FormatSignal(models.Signal{Symbol: "EURUSD", Direction: models.DirectionNeutral})
	assert.NotContains(t, neutral, "Entry")
}

func TestPrime(t *testing.T) {
	g, _ := newTestGenerator(t, &fakeFeed{candles: series(60)}, &fakeStore{}, &fakeNews{})
	n, err := g.Prime(context.Background(), "XAUUSD")
	require.NoError(t, err)
	assert.Equal(t, 60, n)

	g, _ = newTestGenerator(t, &fakeFeed{candles: series(3)}, &fakeStore{}, &fakeNews{})
	n, err = g.Prime(context.Background(), "XAUUSD")
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}
