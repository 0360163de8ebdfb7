package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePrimer struct {
	counts   map[string]int
	inflight atomic.Int32
	peak     atomic.Int32
}

func (p *fakePrimer) Prime(_ context.Context, symbol string) (int, error) {
	n := p.inflight.Add(1)
	defer p.inflight.Add(-1)
	for {
		old := p.peak.Load()
		if n <= old || p.peak.CompareAndSwap(old, n) {
			break
		}
	}
	time.Sleep(5 * time.Millisecond)
	if symbol == "BAD" {
		return 0, errors.New("unknown symbol")
	}
	return p.counts[symbol], nil
}

type msgs struct {
	mu  sync.Mutex
	out []string
}

func (m *msgs) Notify(_ context.Context, msg string) {
	m.mu.Lock()
	m.out = append(m.out, msg)
	m.mu.Unlock()
}

func TestWarmup(t *testing.T) {
	p := &fakePrimer{counts: map[string]int{"XAUUSD": 200, "EURUSD": 200, "GBPUSD": 12}}
	n := &msgs{}
	w := NewWarmuper(p, n, 2)

	ready := w.Warmup(context.Background(), []string{"XAUUSD", "EURUSD", "GBPUSD", "BAD"})
	assert.Equal(t, 2, ready)
	require.Len(t, n.out, 1)
	assert.Equal(t, "🔥 Warmup done: 2/4 symbols ready", n.out[0])
	assert.LessOrEqual(t, p.peak.Load(), int32(2))
}

func TestWarmupNothingToDo(t *testing.T) {
	n := &msgs{}
	assert.Zero(t, NewWarmuper(&fakePrimer{}, n, 0).Warmup(context.Background(), nil))
	assert.Empty(t, n.out)
}
