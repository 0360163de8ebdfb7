package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smc_bot/internal/models"
	signals "smc_bot/internal/modules/signals/service"
	tracker "smc_bot/internal/modules/tracker/service"
	"smc_bot/internal/smc"
)

type fakeGen struct {
	err     error
	symbols []string
}

func (g *fakeGen) Generate(_ context.Context, symbol string) (models.Signal, error) {
	g.symbols = append(g.symbols, symbol)
	return models.Signal{Symbol: symbol}, g.err
}

func (g *fakeGen) Analyze(_ context.Context, symbol string) (smc.Report, error) {
	if g.err != nil {
		return smc.Report{}, g.err
	}
	return smc.Report{
		Signal:    models.Signal{Symbol: symbol, Direction: models.DirectionBuy, Confidence: 70, Entry: 2000, SL: 1985, TP1: 2010, TP2: 2020, TP3: 2030},
		Structure: &models.StructureResult{Trend: models.TrendBullish, Strength: 0.7},
		BOS:       &models.StructureEvent{Direction: models.BiasBullish, BrokenLevel: 1995, Strength: 0.8},
		ATR:       10,
	}, nil
}

type fakeTracking struct {
	trackErr  error
	forgotten []string
	stats     models.Stats
}

func (f *fakeTracking) Track(_ context.Context, id string) (models.Signal, error) {
	if f.trackErr != nil {
		return models.Signal{}, f.trackErr
	}
	return models.Signal{ID: id, Symbol: "EURUSD", Direction: models.DirectionSell, Entry: 1.0834}, nil
}

func (f *fakeTracking) Untrack(_ context.Context, id string) error {
	if id == "missing" {
		return models.ErrSignalNotFound
	}
	return nil
}

func (f *fakeTracking) Forget(id string) { f.forgotten = append(f.forgotten, id) }

func (f *fakeTracking) Stats(context.Context) (models.Stats, error) { return f.stats, nil }

type fakeStore struct {
	list    []models.Signal
	limit   int
	deleted []string
}

func (s *fakeStore) List(_ context.Context, _ string, limit int) ([]models.Signal, error) {
	s.limit = limit
	return s.list, nil
}

func (s *fakeStore) Delete(_ context.Context, id string) error {
	if id == "missing" {
		return models.ErrSignalNotFound
	}
	s.deleted = append(s.deleted, id)
	return nil
}

func newTestCommands(t *testing.T) (*Commands, *fakeGen, *fakeTracking, *fakeStore) {
	t.Helper()
	sender, err := NewSender("", 0)
	require.NoError(t, err)
	settings, err := signals.NewSettingsStore("")
	require.NoError(t, err)
	gen, tr, store := &fakeGen{}, &fakeTracking{}, &fakeStore{}
	return NewCommands(sender, "op", gen, tr, store, settings), gen, tr, store
}

func TestCommandsGenerate(t *testing.T) {
	c, gen, _, _ := newTestCommands(t)
	ctx := context.Background()

	assert.Empty(t, c.Handle(ctx, "/generate xau/usd").Text)
	assert.Equal(t, []string{"XAUUSD"}, gen.symbols)

	assert.Contains(t, c.Handle(ctx, "/generate").Text, "Usage")

	gen.err = signals.ErrInsufficientData
	assert.Contains(t, c.Handle(ctx, "/generate EURUSD").Text, "insufficient data")
}

func TestCommandsAnalyze(t *testing.T) {
	c, _, _, _ := newTestCommands(t)
	text := c.Handle(context.Background(), "/analyze@smc_bot xauusd").Text
	assert.Contains(t, text, "XAUUSD analysis")
	assert.Contains(t, text, "Structure: BULLISH (70%)")
	assert.Contains(t, text, "BOS: BULLISH through 1995.00")
	assert.Contains(t, text, "XAUUSD BUY")
}

func TestCommandsSignals(t *testing.T) {
	c, _, _, store := newTestCommands(t)
	ctx := context.Background()

	assert.Contains(t, c.Handle(ctx, "/signals").Text, "No signals")
	assert.Equal(t, defaultListLimit, store.limit)

	store.list = []models.Signal{{
		ID: "a1", Symbol: "EURUSD", Direction: models.DirectionBuy, Confidence: 60, Entry: 1.1,
		Tracked: true, TP1Hit: true, CreatedAt: time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC),
	}}
	text := c.Handle(ctx, "/signals 500").Text
	assert.Equal(t, maxListLimit, store.limit)
	assert.Contains(t, text, "EURUSD BUY 60% @ 1.10000 [tracking, TP1 hit]")
	assert.Contains(t, text, "id a1")
}

func TestCommandsTrack(t *testing.T) {
	c, _, tr, _ := newTestCommands(t)
	ctx := context.Background()

	assert.Contains(t, c.Handle(ctx, "/track s1").Text, "Tracking EURUSD SELL from 1.08340")

	tests := []struct {
		err  error
		want string
	}{
		{models.ErrSignalNotFound, "not found"},
		{tracker.ErrClosed, "already closed"},
		{tracker.ErrNotTradeable, "neutral"},
		{errors.New("db down"), "Track failed"},
	}
	for _, tt := range tests {
		tr.trackErr = tt.err
		assert.Contains(t, c.Handle(ctx, "/track s1").Text, tt.want)
	}
}

func TestCommandsUntrack(t *testing.T) {
	c, _, _, _ := newTestCommands(t)
	ctx := context.Background()
	assert.Contains(t, c.Handle(ctx, "/untrack s1").Text, "Stopped tracking s1")
	assert.Contains(t, c.Handle(ctx, "/untrack missing").Text, "not found")
	assert.Contains(t, c.Handle(ctx, "/untrack").Text, "Usage")
}

func TestCommandsDeleteConfirm(t *testing.T) {
	c, _, tr, store := newTestCommands(t)
	ctx := context.Background()

	r := c.Handle(ctx, "/delete s1")
	require.NotNil(t, r.Keyboard)
	row := r.Keyboard.InlineKeyboard[0]
	require.Len(t, row, 2)
	assert.Equal(t, "DEL::s1", *row[0].CallbackData)
	assert.Equal(t, "KEEP::s1", *row[1].CallbackData)
	assert.Empty(t, store.deleted)

	assert.Contains(t, c.HandleCallback(ctx, "KEEP::s1"), "kept")
	assert.Empty(t, store.deleted)

	assert.Contains(t, c.HandleCallback(ctx, "DEL::s1"), "deleted")
	assert.Equal(t, []string{"s1"}, store.deleted)
	assert.Equal(t, []string{"s1"}, tr.forgotten)

	assert.Contains(t, c.HandleCallback(ctx, "DEL::missing"), "already gone")
	assert.Empty(t, c.HandleCallback(ctx, "garbage"))
}

func TestCommandsStats(t *testing.T) {
	c, _, tr, _ := newTestCommands(t)
	tr.stats = models.Stats{Total: 4, Active: 1, Closed: 3, Winning: 2, Losing: 1, WinRate: 200.0 / 3}
	text := c.Handle(context.Background(), "/stats").Text
	assert.Contains(t, text, "Closed: 3")
	assert.Contains(t, text, "Win rate: 66.7%")
}

func TestCommandsSettingsAndToggle(t *testing.T) {
	c, _, _, _ := newTestCommands(t)
	ctx := context.Background()

	assert.Contains(t, c.Handle(ctx, "/settings").Text, "auto_generate: off")
	assert.Equal(t, "auto_generate is now on", c.Handle(ctx, "/toggle auto_generate").Text)
	assert.Contains(t, c.Handle(ctx, "/settings").Text, "auto_generate: on")
	assert.Contains(t, c.Handle(ctx, "/toggle nope").Text, "unknown setting")
	assert.Contains(t, c.Handle(ctx, "/toggle").Text, "market_structure")
}

func TestCommandsUnknown(t *testing.T) {
	c, _, _, _ := newTestCommands(t)
	assert.Contains(t, c.Handle(context.Background(), "/dance").Text, "/help")
	assert.Contains(t, c.Handle(context.Background(), "/help").Text, "/generate SYMBOL")
}

func TestSplitCommand(t *testing.T) {
	cmd, args := splitCommand("/Track@smc_bot  abc ")
	assert.Equal(t, "track", cmd)
	assert.Equal(t, "abc", args)

	cmd, args = splitCommand("hello")
	assert.Empty(t, cmd)
	assert.Equal(t, "hello", args)
}

func TestSenderWithoutToken(t *testing.T) {
	s, err := NewSender("", 42)
	require.NoError(t, err)
	assert.False(t, s.Enabled())
	s.Notify(context.Background(), "hello")
	_, err = s.Send(context.Background(), 42, "hello")
	assert.NoError(t, err)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 5))
	assert.Equal(t, "ab…", truncate("abcdef", 3))
}
