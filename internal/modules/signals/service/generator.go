package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/opentracing/opentracing-go"

	"smc_bot/internal/helper"
	"smc_bot/internal/models"
	"smc_bot/internal/smc"
	"smc_bot/pkg/logger"
	"smc_bot/pkg/tracing"
)

var ErrInsufficientData = errors.New("insufficient data for analysis")

type CandleFeed interface {
	SubscribeCandles(ctx context.Context, symbol, timeframe string) (<-chan models.Candle, error)
	Snapshot(symbol, timeframe string) []models.Candle
}

type Store interface {
	Create(ctx context.Context, s models.Signal) (string, error)
}

// NewsSource returns nil when there is no fundamental read for symbol.
type NewsSource interface {
	Bias(ctx context.Context, symbol string) (*models.NewsBias, error)
}

type Notifier interface {
	Notify(ctx context.Context, msg string)
}

type Config struct {
	UserID    string
	Timeframe string
	// CandleWait bounds how long Generate waits for history on a cold symbol.
	CandleWait time.Duration
	Poll       time.Duration
}

// Generator turns the live candle window of a symbol into a stored signal.
type Generator struct {
	cfg      Config
	feed     CandleFeed
	store    Store
	news     NewsSource
	notifier Notifier
	settings *SettingsStore
	now      func() time.Time

	ctx    context.Context
	cancel context.CancelFunc

	mu   sync.Mutex
	subs map[string]struct{}
}

func NewGenerator(cfg Config, feed CandleFeed, store Store, news NewsSource, notifier Notifier, settings *SettingsStore) *Generator {
	if cfg.Timeframe == "" {
		cfg.Timeframe = "M15"
	}
	if cfg.CandleWait <= 0 {
		cfg.CandleWait = 10 * time.Second
	}
	if cfg.Poll <= 0 {
		cfg.Poll = 500 * time.Millisecond
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Generator{
		cfg:      cfg,
		feed:     feed,
		store:    store,
		news:     news,
		notifier: notifier,
		settings: settings,
		now:      time.Now,
		ctx:      ctx,
		cancel:   cancel,
		subs:     make(map[string]struct{}),
	}
}

// Close drops the candle subscriptions opened by Generate and Analyze.
func (g *Generator) Close() {
	g.cancel()
}

// Generate analyses symbol, stores the result untracked and announces it.
// Nothing is stored when the feed cannot supply enough history in time.
func (g *Generator) Generate(ctx context.Context, symbol string) (models.Signal, error) {
	span, ctx := tracing.StartSpan(ctx, "signals.generate", opentracing.Tag{Key: "symbol", Value: symbol})
	defer span.Finish()

	report, err := g.Analyze(ctx, symbol)
	if err != nil {
		span.SetTag("error", true)
		return models.Signal{}, err
	}

	sig := report.Signal
	sig.UserID = g.cfg.UserID
	sig.CreatedAt = g.now().UTC()
	sig.Tracked = false

	id, err := g.store.Create(ctx, sig)
	if err != nil {
		span.SetTag("error", true)
		return models.Signal{}, fmt.Errorf("store signal: %w", err)
	}
	sig.ID = id

	logger.Info("[SIGNALS] %s %s %s confidence=%.1f", id, symbol, sig.Direction, sig.Confidence)
	g.notifier.Notify(ctx, FormatSignal(sig))
	return sig, nil
}

// Analyze runs the analysis with the current settings without storing
// anything.
func (g *Generator) Analyze(ctx context.Context, symbol string) (smc.Report, error) {
	candles, err := g.candles(ctx, symbol)
	if err != nil {
		return smc.Report{}, err
	}
	if len(candles) < smc.MinCandles {
		return smc.Report{}, fmt.Errorf("%s: %w (%d candles)", symbol, ErrInsufficientData, len(candles))
	}

	st := g.settings.Get()
	var nb *models.NewsBias
	if st.NewsAnalysis && g.news != nil {
		nb, err = g.news.Bias(ctx, symbol)
		if err != nil {
			logger.Warn("[SIGNALS] news bias %s: %v", symbol, err)
			nb = nil
		}
	}
	return smc.NewAnalyzer(st.Config).Analyze(symbol, candles, nb), nil
}

// Prime opens the candle stream for symbol and waits for history like
// Generate would. It returns how many candles are available.
func (g *Generator) Prime(ctx context.Context, symbol string) (int, error) {
	c, err := g.candles(ctx, symbol)
	return len(c), err
}

// candles keeps a subscription per symbol open for the life of the
// generator and waits for the window to fill.
func (g *Generator) candles(ctx context.Context, symbol string) ([]models.Candle, error) {
	if err := g.ensureSubscribed(symbol); err != nil {
		return nil, err
	}

	deadline := time.NewTimer(g.cfg.CandleWait)
	defer deadline.Stop()
	poll := time.NewTicker(g.cfg.Poll)
	defer poll.Stop()

	for {
		c := g.feed.Snapshot(symbol, g.cfg.Timeframe)
		if len(c) >= smc.MinCandles {
			return c, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-deadline.C:
			return c, nil
		case <-poll.C:
		}
	}
}

func (g *Generator) ensureSubscribed(symbol string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.subs[symbol]; ok {
		return nil
	}
	ch, err := g.feed.SubscribeCandles(g.ctx, symbol, g.cfg.Timeframe)
	if err != nil {
		return fmt.Errorf("subscribe candles %s: %w", symbol, err)
	}
	g.subs[symbol] = struct{}{}
	// the window is read through Snapshot; the channel only has to be drained
	go func() {
		for range ch {
		}
	}()
	return nil
}

// FormatSignal renders a signal for the operator chat.
func FormatSignal(s models.Signal) string {
	var b strings.Builder
	icon := "⚪"
	switch s.Direction {
	case models.DirectionBuy:
		icon = "🟢"
	case models.DirectionSell:
		icon = "🔴"
	}
	fmt.Fprintf(&b, "%s %s %s (%.0f%%)\n", icon, s.Symbol, s.Direction, s.Confidence)
	if s.Direction != models.DirectionNeutral {
		fmt.Fprintf(&b, "Entry: %s\nSL: %s\nTP1: %s\nTP2: %s\nTP3: %s\n",
			helper.FormatPrice(s.Entry), helper.FormatPrice(s.SL),
			helper.FormatPrice(s.TP1), helper.FormatPrice(s.TP2), helper.FormatPrice(s.TP3))
	}
	for _, r := range s.Reasoning {
		b.WriteString("• " + r + "\n")
	}
	if s.ID != "" {
		b.WriteString("ID: " + s.ID)
	}
	return strings.TrimRight(b.String(), "\n")
}
