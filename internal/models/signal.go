package models

import (
	"errors"
	"time"
)

var ErrSignalNotFound = errors.New("signal not found")

// Direction is the side a signal calls for: BUY, SELL or NEUTRAL.
type Direction string

const (
	DirectionBuy     Direction = "BUY"
	DirectionSell    Direction = "SELL"
	DirectionNeutral Direction = "NEUTRAL"
)

const (
	ReasonStopLoss  = "Stop Loss Hit"
	ReasonAllTPsHit = "All TPs Hit"
)

// Signal is the persisted trade idea and its tracking state.
type Signal struct {
	ID     string `json:"id,omitempty"`
	UserID string `json:"userId"`
	Symbol string `json:"symbol"`

	Direction  Direction `json:"signal"`
	Entry      float64   `json:"entry"`
	SL         float64   `json:"sl"`
	TP1        float64   `json:"tp1"`
	TP2        float64   `json:"tp2"`
	TP3        float64   `json:"tp3"`
	Confidence float64   `json:"confidence"`
	Reasoning  []string  `json:"reasoning"`
	CreatedAt  time.Time `json:"createdAt"`

	// tracking
	Tracked      bool       `json:"tracked"`
	TP1Hit       bool       `json:"tp1Hit"`
	TP2Hit       bool       `json:"tp2Hit"`
	TP3Hit       bool       `json:"tp3Hit"`
	TP1HitAt     *time.Time `json:"tp1HitAt,omitempty"`
	TP2HitAt     *time.Time `json:"tp2HitAt,omitempty"`
	TP3HitAt     *time.Time `json:"tp3HitAt,omitempty"`
	BreakevenSet bool       `json:"breakevenSet"`

	Closed       bool       `json:"closed"`
	ClosedAt     *time.Time `json:"closedAt,omitempty"`
	ClosedPrice  float64    `json:"closedPrice,omitempty"`
	ClosedReason string     `json:"closedReason,omitempty"`
}

// Active reports whether the tracker should still watch the signal.
func (s Signal) Active() bool { return s.Tracked && !s.Closed }

// Winning is only meaningful for closed signals.
func (s Signal) Winning() bool {
	return s.ClosedReason == ReasonAllTPsHit || s.TP1Hit
}

// Stats — tracker summary.
type Stats struct {
	Total   int     `json:"total"`
	Active  int     `json:"active"`
	Closed  int     `json:"closed"`
	Winning int     `json:"winning"`
	Losing  int     `json:"losing"`
	WinRate float64 `json:"winRate"`
}
