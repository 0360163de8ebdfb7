package smc

import "smc_bot/internal/models"

const (
	structureLookback = 50
	structureMinBars  = 20

	bosWindow  = 30
	bosMinBars = 20

	chochWindow  = 50
	chochMinBars = 30

	// Categorical strengths, not continuous metrics.
	trendStrength = 0.7
	bosStrength   = 0.8
	chochStrength = 0.7
)

// AnalyzeStructure classifies the trend from the last three swing highs and
// lows of the last lookback candles.
func AnalyzeStructure(candles []models.Candle, lookback int) models.StructureResult {
	res := models.StructureResult{Trend: models.TrendRanging}
	if len(candles) < structureMinBars {
		return res
	}
	if lookback <= 0 {
		lookback = structureLookback
	}

	res.Highs, res.Lows = splitSwings(DetectSwings(tail(candles, lookback), DefaultSwingRadius))
	if len(res.Highs) < 2 || len(res.Lows) < 2 {
		return res
	}

	h, l := tailF(res.Highs, 3), tailF(res.Lows, 3)
	switch {
	case strictlyUp(h) && strictlyUp(l):
		res.Trend, res.Strength = models.TrendBullish, trendStrength
	case strictlyDown(h) && strictlyDown(l):
		res.Trend, res.Strength = models.TrendBearish, trendStrength
	}
	return res
}

// DetectBOS reports a close beyond the prior swing extreme of the last 30 bars.
// The last swing of each kind is excluded from the reference level.
func DetectBOS(candles []models.Candle) *models.StructureEvent {
	if len(candles) < bosMinBars {
		return nil
	}
	recent := tail(candles, bosWindow)
	st := AnalyzeStructure(recent, structureLookback)
	last := recent[len(recent)-1]

	if len(st.Highs) >= 2 {
		prevHigh := maxSlice(st.Highs[:len(st.Highs)-1])
		if last.Close > prevHigh {
			return &models.StructureEvent{Direction: models.BiasBullish, BrokenLevel: prevHigh, Strength: bosStrength}
		}
	}
	if len(st.Lows) >= 2 {
		prevLow := minSlice(st.Lows[:len(st.Lows)-1])
		if last.Close < prevLow {
			return &models.StructureEvent{Direction: models.BiasBearish, BrokenLevel: prevLow, Strength: bosStrength}
		}
	}
	return nil
}

// DetectCHoCH is a one-step reversal detector over the last three swings.
func DetectCHoCH(candles []models.Candle) *models.StructureEvent {
	if len(candles) < chochMinBars {
		return nil
	}
	st := AnalyzeStructure(tail(candles, chochWindow), structureLookback)
	if len(st.Highs) < 3 || len(st.Lows) < 3 {
		return nil
	}

	h := st.Highs[len(st.Highs)-3:]
	if h[0] > h[1] && h[1] < h[2] {
		return &models.StructureEvent{Direction: models.BiasBullish, Strength: chochStrength}
	}
	l := st.Lows[len(st.Lows)-3:]
	if l[0] < l[1] && l[1] > l[2] {
		return &models.StructureEvent{Direction: models.BiasBearish, Strength: chochStrength}
	}
	return nil
}

func strictlyUp(v []float64) bool {
	for i := 1; i < len(v); i++ {
		if v[i] <= v[i-1] {
			return false
		}
	}
	return true
}

func strictlyDown(v []float64) bool {
	for i := 1; i < len(v); i++ {
		if v[i] >= v[i-1] {
			return false
		}
	}
	return true
}
