package service

import (
	"context"
	"sync"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"

	"smc_bot/pkg/logger"
)

const subscriberBuffer = 1024

// fanout copies every published value to all subscriber channels. Slow
// subscribers lose values rather than stall the socket reader.
type fanout[T any] struct {
	mu     sync.Mutex
	subs   map[chan T]struct{}
	cancel context.CancelFunc
}

func newFanout[T any](cancel context.CancelFunc) *fanout[T] {
	return &fanout[T]{subs: make(map[chan T]struct{}), cancel: cancel}
}

func (f *fanout[T]) add() chan T {
	ch := make(chan T, subscriberBuffer)
	f.mu.Lock()
	f.subs[ch] = struct{}{}
	f.mu.Unlock()
	return ch
}

// remove closes ch and returns the number of subscribers left.
func (f *fanout[T]) remove(ch chan T) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.subs[ch]; ok {
		delete(f.subs, ch)
		close(ch)
	}
	return len(f.subs)
}

func (f *fanout[T]) publish(v T) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for ch := range f.subs {
		select {
		case ch <- v:
		default:
			logger.Warn("[WS] subscriber buffer full, value dropped")
		}
	}
}

func writeJSON(conn *websocket.Conn, v any) error {
	b, err := sonic.Marshal(v)
	if err != nil {
		return err
	}
	return conn.WriteMessage(websocket.TextMessage, b)
}
