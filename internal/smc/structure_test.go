package smc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smc_bot/internal/models"
)

func TestAnalyzeStructure(t *testing.T) {
	tests := []struct {
		name     string
		candles  []models.Candle
		trend    models.Trend
		strength float64
	}{
		{name: "ascending swings", candles: zigzag(60, 0.2), trend: models.TrendBullish, strength: 0.7},
		{name: "descending swings", candles: mirror(zigzag(60, 0.2)), trend: models.TrendBearish, strength: 0.7},
		{name: "flat swings", candles: zigzag(60, 0), trend: models.TrendRanging},
		{name: "too short", candles: zigzag(19, 0.2), trend: models.TrendRanging},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := AnalyzeStructure(tt.candles, 50)
			assert.Equal(t, tt.trend, res.Trend)
			assert.Equal(t, tt.strength, res.Strength)
		})
	}
}

func TestAnalyzeStructureUsesLookback(t *testing.T) {
	res := AnalyzeStructure(zigzag(60, 0.2), 50)
	// window is bars 10..59: peaks 18,30,42,54 and troughs 24,36,48
	assert.Len(t, res.Highs, 4)
	assert.Len(t, res.Lows, 3)
}

func TestDetectBOS(t *testing.T) {
	assert.Nil(t, DetectBOS(zigzag(19, 0.2)))

	// no close beyond the prior extremes in a clean zigzag
	assert.Nil(t, DetectBOS(zigzag(60, 0.2)))

	c := zigzag(61, 0.2)
	c[60] = bar(60, 130)

	ev := DetectBOS(c)
	require.NotNil(t, ev)
	assert.Equal(t, models.BiasBullish, ev.Direction)
	assert.Equal(t, 0.8, ev.Strength)
	// structure over bars 31..60 has highs at 42 and 54; the level is the 42 peak
	assert.InDelta(t, 100+0.2*42+6+0.5, ev.BrokenLevel, 1e-9)

	m := mirror(c)
	ev = DetectBOS(m)
	require.NotNil(t, ev)
	assert.Equal(t, models.BiasBearish, ev.Direction)
}

func TestDetectCHoCH(t *testing.T) {
	assert.Nil(t, DetectCHoCH(zigzag(29, 0.2)))
	assert.Nil(t, DetectCHoCH(zigzag(60, 0.2)))

	// down-drifting waves whose last peak breaks higher
	c := zigzag(60, -0.2)
	for i := 49; i <= 59; i++ {
		k := float64(6 - abs(i-54))
		c[i] = bar(i, 95+k)
	}
	ev := DetectCHoCH(c)
	require.NotNil(t, ev)
	assert.Equal(t, models.BiasBullish, ev.Direction)
	assert.Equal(t, 0.7, ev.Strength)

	ev = DetectCHoCH(mirror(c))
	require.NotNil(t, ev)
	assert.Equal(t, models.BiasBearish, ev.Direction)
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
