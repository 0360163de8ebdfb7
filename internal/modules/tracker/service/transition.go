package service

import (
	"fmt"
	"time"

	"smc_bot/internal/helper"
	"smc_bot/internal/models"
)

type EventKind string

const (
	EventStopLoss EventKind = "STOP_LOSS"
	EventTP1      EventKind = "TP1"
	EventTP2      EventKind = "TP2"
	EventTP3      EventKind = "TP3"
)

// Event is one committed lifecycle transition.
type Event struct {
	Kind      EventKind
	SignalID  string
	Symbol    string
	Direction models.Direction
	Price     float64
	At        time.Time

	// Breakeven is set when TP1 also moved the stop to entry.
	Breakeven bool
	Entry     float64
}

// Closes reports whether the event is terminal for the signal.
func (e Event) Closes() bool { return e.Kind == EventStopLoss || e.Kind == EventTP3 }

func (e Event) String() string {
	px := helper.FormatPrice(e.Price)
	switch e.Kind {
	case EventStopLoss:
		return fmt.Sprintf("🛑 [%s] %s stopped out at %s", e.Symbol, e.Direction, px)
	case EventTP1:
		if e.Breakeven {
			return fmt.Sprintf("🎯 [%s] %s TP1 hit at %s | SL moved to breakeven %s",
				e.Symbol, e.Direction, px, helper.FormatPrice(e.Entry))
		}
		return fmt.Sprintf("🎯 [%s] %s TP1 hit at %s", e.Symbol, e.Direction, px)
	case EventTP2:
		return fmt.Sprintf("🎯 [%s] %s TP2 hit at %s", e.Symbol, e.Direction, px)
	case EventTP3:
		return fmt.Sprintf("🏁 [%s] %s TP3 hit at %s | all targets reached, signal closed", e.Symbol, e.Direction, px)
	}
	return fmt.Sprintf("[%s] %s", e.Symbol, e.Kind)
}

// Evaluate checks one tick against the pre-tick state of s. Rules run in
// order (stop loss, TP1, TP2, TP3) and the first match wins, so a single tick
// never advances more than one target.
func Evaluate(s models.Signal, price float64, at time.Time) (Event, models.SignalPatch, bool) {
	var sign float64
	switch s.Direction {
	case models.DirectionBuy:
		sign = 1
	case models.DirectionSell:
		sign = -1
	default:
		return Event{}, models.SignalPatch{}, false
	}
	if s.Closed {
		return Event{}, models.SignalPatch{}, false
	}
	// reached(level) is price >= level for buys and price <= level for sells.
	reached := func(level float64) bool { return sign*(price-level) >= 0 }

	ev := Event{
		SignalID:  s.ID,
		Symbol:    s.Symbol,
		Direction: s.Direction,
		Price:     price,
		At:        at,
	}
	var p models.SignalPatch

	switch {
	case sign*(s.SL-price) >= 0:
		ev.Kind = EventStopLoss
		closeWith(&p, price, at, models.ReasonStopLoss)

	case !s.TP1Hit && reached(s.TP1):
		ev.Kind = EventTP1
		p.TP1Hit = models.Ptr(true)
		p.TP1HitAt = models.Ptr(at)
		if !s.BreakevenSet {
			ev.Breakeven = true
			ev.Entry = s.Entry
			p.BreakevenSet = models.Ptr(true)
			p.SL = models.Ptr(s.Entry)
		}

	case s.TP1Hit && !s.TP2Hit && reached(s.TP2):
		ev.Kind = EventTP2
		p.TP2Hit = models.Ptr(true)
		p.TP2HitAt = models.Ptr(at)

	case s.TP2Hit && !s.TP3Hit && reached(s.TP3):
		ev.Kind = EventTP3
		p.TP3Hit = models.Ptr(true)
		p.TP3HitAt = models.Ptr(at)
		closeWith(&p, price, at, models.ReasonAllTPsHit)

	default:
		return Event{}, models.SignalPatch{}, false
	}
	return ev, p, true
}

func closeWith(p *models.SignalPatch, price float64, at time.Time, reason string) {
	p.Closed = models.Ptr(true)
	p.ClosedAt = models.Ptr(at)
	p.ClosedPrice = models.Ptr(price)
	p.ClosedReason = models.Ptr(reason)
}
