package smc

import "smc_bot/internal/models"

// DefaultSwingRadius — half-window used by every detector in this package.
const DefaultSwingRadius = 5

// DetectSwings returns swing highs and lows of the window in index order.
//
// A candle is a swing high when its High is >= every High in [i-r, i+r]
// (swing low mirrored on Low). Indices closer than r to either edge are never
// reported. Ties qualify, so adjacent equal candles may both be swings. When a
// candle is both, the high comes first.
func DetectSwings(candles []models.Candle, r int) []models.SwingPoint {
	if r <= 0 {
		r = DefaultSwingRadius
	}
	var out []models.SwingPoint
	for i := r; i < len(candles)-r; i++ {
		c := candles[i]
		isHigh, isLow := true, true
		for j := i - r; j <= i+r; j++ {
			if j == i {
				continue
			}
			if candles[j].High > c.High {
				isHigh = false
			}
			if candles[j].Low < c.Low {
				isLow = false
			}
			if !isHigh && !isLow {
				break
			}
		}
		if isHigh {
			out = append(out, models.SwingPoint{Price: c.High, Kind: models.SwingHigh, Index: i})
		}
		if isLow {
			out = append(out, models.SwingPoint{Price: c.Low, Kind: models.SwingLow, Index: i})
		}
	}
	return out
}

// splitSwings separates swing prices by kind, keeping order.
func splitSwings(points []models.SwingPoint) (highs, lows []float64) {
	for _, p := range points {
		switch p.Kind {
		case models.SwingHigh:
			highs = append(highs, p.Price)
		case models.SwingLow:
			lows = append(lows, p.Price)
		}
	}
	return highs, lows
}

func tail(c []models.Candle, n int) []models.Candle {
	if len(c) <= n {
		return c
	}
	return c[len(c)-n:]
}

func tailF(v []float64, n int) []float64 {
	if len(v) <= n {
		return v
	}
	return v[len(v)-n:]
}

func maxSlice(v []float64) float64 {
	m := v[0]
	for _, x := range v[1:] {
		if x > m {
			m = x
		}
	}
	return m
}

func minSlice(v []float64) float64 {
	m := v[0]
	for _, x := range v[1:] {
		if x < m {
			m = x
		}
	}
	return m
}

func mean(v []float64) float64 {
	var s float64
	for _, x := range v {
		s += x
	}
	return s / float64(len(v))
}
