package smc

import (
	"math"
	"sort"

	"smc_bot/internal/models"
)

const (
	zoneWindow     = 100
	zoneKeepRecent = 5

	orderBlockMinBars = 20
	fvgMinBars        = 3

	liquidityMinBars   = 50
	liquidityRadius    = 5
	liquidityTolerance = 0.001
	liquidityMinHits   = 3

	levelsMinBars   = 20
	levelsTolerance = 0.02
	levelsMinTouch  = 2
	levelsKeep      = 5
)

// DetectOrderBlocks finds reversal-then-continuation candles over the last
// 100 bars and returns the five most recent, oldest first.
func DetectOrderBlocks(candles []models.Candle) []models.Zone {
	if len(candles) < orderBlockMinBars {
		return nil
	}
	recent := tail(candles, zoneWindow)

	var out []models.Zone
	for i := 1; i < len(recent)-1; i++ {
		prev, curr, next := recent[i-1], recent[i], recent[i+1]

		var dir models.Bias
		switch {
		case prev.Bearish() && curr.Bullish() && curr.Close > prev.High && next.Close > curr.Close:
			dir = models.BiasBullish
		case prev.Bullish() && curr.Bearish() && curr.Close < prev.Low && next.Close < curr.Close:
			dir = models.BiasBearish
		default:
			continue
		}
		out = append(out, models.Zone{
			Kind:      models.ZoneOrderBlock,
			Direction: dir,
			Low:       curr.Low,
			High:      curr.High,
			Time:      curr.Time,
		})
	}
	return keepRecent(out)
}

// DetectFVG finds three-candle gaps over the last 100 bars and returns the
// five most recent, oldest first.
func DetectFVG(candles []models.Candle) []models.Zone {
	if len(candles) < fvgMinBars {
		return nil
	}
	recent := tail(candles, zoneWindow)

	var out []models.Zone
	for i := 1; i < len(recent)-1; i++ {
		prev, curr, next := recent[i-1], recent[i], recent[i+1]

		if prev.High < next.Low {
			out = append(out, models.Zone{
				Kind: models.ZoneFVG, Direction: models.BiasBullish,
				Low: prev.High, High: next.Low, Time: curr.Time,
			})
		}
		if prev.Low > next.High {
			out = append(out, models.Zone{
				Kind: models.ZoneFVG, Direction: models.BiasBearish,
				Low: next.High, High: prev.Low, Time: curr.Time,
			})
		}
	}
	return keepRecent(out)
}

// Liquidity groups equal highs (sell side) and equal lows (buy side).
type Liquidity struct {
	Buy  []models.Zone `json:"buy"`
	Sell []models.Zone `json:"sell"`
}

// DetectLiquidity reports clusters of >=3 highs (lows) within 0.1% of the
// candle at i, counted in the half-open window [i-5, i+5) of the last 100
// bars, so bar i+5 is not included. Returns nil under 50 bars.
func DetectLiquidity(candles []models.Candle) *Liquidity {
	if len(candles) < liquidityMinBars {
		return nil
	}
	recent := tail(candles, zoneWindow)
	liq := &Liquidity{}

	for i := liquidityRadius; i < len(recent)-liquidityRadius; i++ {
		window := recent[i-liquidityRadius : i+liquidityRadius]
		c := recent[i]

		if n := countNear(window, c.High, func(x models.Candle) float64 { return x.High }); n >= liquidityMinHits {
			liq.Sell = append(liq.Sell, models.Zone{
				Kind: models.ZoneLiquidity, Direction: models.BiasBearish,
				Low: c.High, High: c.High, Strength: float64(n) / liquidityRadius, Time: c.Time,
			})
		}
		if n := countNear(window, c.Low, func(x models.Candle) float64 { return x.Low }); n >= liquidityMinHits {
			liq.Buy = append(liq.Buy, models.Zone{
				Kind: models.ZoneLiquidity, Direction: models.BiasBullish,
				Low: c.Low, High: c.Low, Strength: float64(n) / liquidityRadius, Time: c.Time,
			})
		}
	}
	return liq
}

func countNear(window []models.Candle, ref float64, px func(models.Candle) float64) int {
	if ref == 0 {
		return 0
	}
	n := 0
	for _, c := range window {
		if math.Abs(px(c)-ref)/ref < liquidityTolerance {
			n++
		}
	}
	return n
}

// DetectSupportResistance clusters swing points of the last 100 bars into
// horizontal levels. Levels need at least two touches; the five strongest are
// returned, ties kept in detection order.
func DetectSupportResistance(candles []models.Candle) []models.Zone {
	if len(candles) < levelsMinBars {
		return nil
	}
	recent := tail(candles, zoneWindow)

	hi, lo := recent[0].High, recent[0].Low
	for _, c := range recent[1:] {
		hi = math.Max(hi, c.High)
		lo = math.Min(lo, c.Low)
	}
	tolerance := (hi - lo) * levelsTolerance

	var levels []models.Zone
	for _, p := range DetectSwings(recent, DefaultSwingRadius) {
		kind := models.ZoneResistance
		if p.Kind == models.SwingLow {
			kind = models.ZoneSupport
		}

		merged := false
		for i := range levels {
			l := &levels[i]
			if l.Kind == kind && math.Abs(l.Low-p.Price) < tolerance {
				l.Touches++
				px := (l.Low + p.Price) / 2
				l.Low, l.High = px, px
				merged = true
				break
			}
		}
		if !merged {
			levels = append(levels, models.Zone{Kind: kind, Low: p.Price, High: p.Price, Touches: 1, Time: recent[p.Index].Time})
		}
	}

	strong := levels[:0]
	for _, l := range levels {
		if l.Touches >= levelsMinTouch {
			strong = append(strong, l)
		}
	}
	sort.SliceStable(strong, func(i, j int) bool { return strong[i].Touches > strong[j].Touches })
	if len(strong) > levelsKeep {
		strong = strong[:levelsKeep]
	}
	return strong
}

func keepRecent(z []models.Zone) []models.Zone {
	if len(z) > zoneKeepRecent {
		return z[len(z)-zoneKeepRecent:]
	}
	return z
}
