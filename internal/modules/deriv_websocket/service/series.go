package service

import (
	"sync"

	"smc_bot/internal/models"
)

// Series is a bounded, time-ordered candle window. The last bar is replaced
// in place while its period is open.
type Series struct {
	mu      sync.RWMutex
	max     int
	candles []models.Candle
}

func NewSeries(max int) *Series {
	if max <= 0 {
		max = 500
	}
	return &Series{max: max}
}

// Upsert appends a newer bar, replaces the live bar, and ignores anything
// older than the live bar.
func (s *Series) Upsert(c models.Candle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.upsertLocked(c)
}

func (s *Series) upsertLocked(c models.Candle) {
	n := len(s.candles)
	switch {
	case n == 0 || c.Time.After(s.candles[n-1].Time):
		s.candles = append(s.candles, c)
		if len(s.candles) > s.max {
			s.candles = append(s.candles[:0:0], s.candles[len(s.candles)-s.max:]...)
		}
	case c.Time.Equal(s.candles[n-1].Time):
		s.candles[n-1] = c
	}
}

// Reset replaces the window with a fresh history.
func (s *Series) Reset(history []models.Candle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.candles = nil
	for _, c := range history {
		s.upsertLocked(c)
	}
}

// Snapshot returns a copy safe to analyse while the feed keeps writing.
func (s *Series) Snapshot() []models.Candle {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Candle(nil), s.candles...)
}

func (s *Series) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.candles)
}
