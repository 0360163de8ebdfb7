package service

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"smc_bot/internal/smc"
	"smc_bot/pkg/logger"
)

// Primer opens a symbol's candle stream and reports the candles on hand.
type Primer interface {
	Prime(ctx context.Context, symbol string) (int, error)
}

type Notifier interface {
	Notify(ctx context.Context, msg string)
}

// Warmuper subscribes the scan symbols at startup so the first signal
// request does not wait for history.
type Warmuper struct {
	p Primer
	n Notifier

	// ограничитель параллелизма, чтобы не словить rate limit
	sem chan struct{}
}

func NewWarmuper(p Primer, n Notifier, parallel int) *Warmuper {
	if parallel <= 0 {
		parallel = 4
	}
	return &Warmuper{p: p, n: n, sem: make(chan struct{}, parallel)}
}

// Warmup returns the number of symbols with enough history for analysis.
func (w *Warmuper) Warmup(ctx context.Context, symbols []string) int {
	if len(symbols) == 0 {
		return 0
	}

	var ready atomic.Int32
	var wg sync.WaitGroup
	for _, sym := range symbols {
		wg.Add(1)
		go func() {
			defer wg.Done()
			select {
			case w.sem <- struct{}{}:
			case <-ctx.Done():
				return
			}
			defer func() { <-w.sem }()

			n, err := w.p.Prime(ctx, sym)
			switch {
			case err != nil:
				logger.Warn("[BOOT] %s warmup: %v", sym, err)
			case n < smc.MinCandles:
				logger.Warn("[BOOT] %s warmup: only %d candles", sym, n)
			default:
				ready.Add(1)
			}
		}()
	}
	wg.Wait()

	n := int(ready.Load())
	w.n.Notify(ctx, fmt.Sprintf("🔥 Warmup done: %d/%d symbols ready", n, len(symbols)))
	return n
}
