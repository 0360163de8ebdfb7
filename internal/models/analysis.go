package models

import "time"

// Bias is a directional read shared by structure, zones and news.
type Bias string

const (
	BiasBullish Bias = "BULLISH"
	BiasBearish Bias = "BEARISH"
	BiasNeutral Bias = "NEUTRAL"
)

type Trend = Bias

const (
	TrendBullish Trend = BiasBullish
	TrendBearish Trend = BiasBearish
	TrendRanging Trend = "RANGING"
)

type SwingKind string

const (
	SwingHigh SwingKind = "HIGH"
	SwingLow  SwingKind = "LOW"
)

// SwingPoint — local extremum; Index is the position inside the analysed window.
type SwingPoint struct {
	Price float64   `json:"price"`
	Kind  SwingKind `json:"kind"`
	Index int       `json:"index"`
}

type StructureResult struct {
	Trend    Trend     `json:"trend"`
	Strength float64   `json:"strength"`
	Highs    []float64 `json:"highs"`
	Lows     []float64 `json:"lows"`
}

// StructureEvent is a BOS or CHoCH read. BrokenLevel is zero for CHoCH.
type StructureEvent struct {
	Direction   Bias    `json:"direction"`
	BrokenLevel float64 `json:"brokenLevel,omitempty"`
	Strength    float64 `json:"strength"`
}

type ZoneKind string

const (
	ZoneOrderBlock ZoneKind = "ORDER_BLOCK"
	ZoneFVG        ZoneKind = "FVG"
	ZoneLiquidity  ZoneKind = "LIQUIDITY"
	ZoneSupport    ZoneKind = "SUPPORT"
	ZoneResistance ZoneKind = "RESISTANCE"
)

// Zone — price band produced by one analysis pass. Zones have no identity
// across passes.
type Zone struct {
	Kind      ZoneKind  `json:"kind"`
	Direction Bias      `json:"direction,omitempty"`
	Low       float64   `json:"low"`
	High      float64   `json:"high"`
	Strength  float64   `json:"strength,omitempty"`
	Touches   int       `json:"touches,omitempty"`
	Time      time.Time `json:"time,omitempty"`
}

// Level returns the representative price of a single-price zone.
func (z Zone) Level() float64 { return (z.Low + z.High) / 2 }

// NewsBias — external fundamental read for a currency pair.
type NewsBias struct {
	Bias     Bias    `json:"bias"`
	Strength float64 `json:"strength"` // 0..100
}
