package smc

import (
	"time"

	"smc_bot/internal/models"
)

var t0 = time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

// bar builds a doji-bodied candle around mid with a unit range.
func bar(i int, mid float64) models.Candle {
	return models.Candle{
		Time:  t0.Add(time.Duration(i) * 15 * time.Minute),
		Open:  mid,
		High:  mid + 0.5,
		Low:   mid - 0.5,
		Close: mid,
	}
}

// zigzag: triangular wave of period 12 and amplitude 6 over a linear drift.
// Peaks sit at i%12 == 6, troughs at i%12 == 0.
func zigzag(n int, drift float64) []models.Candle {
	out := make([]models.Candle, n)
	for i := 0; i < n; i++ {
		k := i % 12
		var tri float64
		if k <= 6 {
			tri = float64(k) / 6
		} else {
			tri = float64(12-k) / 6
		}
		out[i] = bar(i, 100+drift*float64(i)+6*tri)
	}
	return out
}

// mirror reflects a series around price 100 so every bullish read becomes
// bearish and vice versa.
func mirror(in []models.Candle) []models.Candle {
	out := make([]models.Candle, len(in))
	for i, c := range in {
		out[i] = models.Candle{
			Time:  c.Time,
			Open:  200 - c.Open,
			High:  200 - c.Low,
			Low:   200 - c.High,
			Close: 200 - c.Close,
		}
	}
	return out
}

func flat(n int, px float64) []models.Candle {
	out := make([]models.Candle, n)
	for i := range out {
		out[i] = bar(i, px)
	}
	return out
}
