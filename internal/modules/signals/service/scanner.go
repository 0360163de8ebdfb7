package service

import (
	"context"
	"sync"
	"time"

	"smc_bot/internal/models"
	"smc_bot/pkg/logger"
)

type SignalGenerator interface {
	Generate(ctx context.Context, symbol string) (models.Signal, error)
}

type ScannerConfig struct {
	Symbols  []string
	Interval time.Duration
	// Spacing separates consecutive symbols within one pass.
	Spacing time.Duration
}

// Scanner generates a signal for every configured symbol once per interval
// while auto generation is switched on.
type Scanner struct {
	cfg      ScannerConfig
	gen      SignalGenerator
	settings *SettingsStore

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewScanner(cfg ScannerConfig, gen SignalGenerator, settings *SettingsStore) *Scanner {
	if cfg.Interval <= 0 {
		cfg.Interval = 5 * time.Minute
	}
	if len(cfg.Symbols) == 0 {
		cfg.Symbols = []string{"XAUUSD", "EURUSD", "GBPUSD", "BTCUSD"}
	}
	return &Scanner{cfg: cfg, gen: gen, settings: settings}
}

func (s *Scanner) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		t := time.NewTicker(s.cfg.Interval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				if s.settings.Get().AutoGenerate {
					s.Scan(ctx)
				}
			}
		}
	}()
}

func (s *Scanner) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
}

// Scan runs one pass. A failing symbol does not stop the pass.
func (s *Scanner) Scan(ctx context.Context) {
	logger.Info("[SCAN] auto generation over %d symbols", len(s.cfg.Symbols))
	for i, sym := range s.cfg.Symbols {
		if i > 0 && s.cfg.Spacing > 0 {
			t := time.NewTimer(s.cfg.Spacing)
			select {
			case <-ctx.Done():
				t.Stop()
				return
			case <-t.C:
			}
		}
		if ctx.Err() != nil {
			return
		}
		if _, err := s.gen.Generate(ctx, sym); err != nil {
			logger.Warn("[SCAN] %s: %v", sym, err)
		}
	}
}
