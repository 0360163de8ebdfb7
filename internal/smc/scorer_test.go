package smc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smc_bot/internal/models"
)

func TestScoreInsufficientData(t *testing.T) {
	sig := NewAnalyzer(DefaultConfig()).Score("EURUSD", zigzag(49, 0.2), nil)

	assert.Equal(t, models.DirectionNeutral, sig.Direction)
	assert.Zero(t, sig.Confidence)
	assert.Zero(t, sig.Entry)
	assert.Zero(t, sig.SL)
	assert.Zero(t, sig.TP3)
	assert.Equal(t, []string{"Insufficient data for analysis"}, sig.Reasoning)
}

func TestScoreBuy(t *testing.T) {
	r := NewAnalyzer(DefaultConfig()).Analyze("XAUUSD", zigzag(60, 0.2), nil)
	sig := r.Signal

	require.Equal(t, models.DirectionBuy, sig.Direction)
	// trend 21 against a bearish gap fill of 15
	assert.InDelta(t, 21.0/36*100, sig.Confidence, 1e-9)
	assert.InDelta(t, 3.5, r.ATR, 1e-9)

	assert.InDelta(t, 112.8, sig.Entry, 1e-9)
	assert.InDelta(t, 107.55, sig.SL, 1e-9)
	assert.InDelta(t, 116.3, sig.TP1, 1e-9)
	assert.InDelta(t, 119.8, sig.TP2, 1e-9)
	assert.InDelta(t, 123.3, sig.TP3, 1e-9)
	assert.True(t, sig.SL < sig.Entry && sig.Entry < sig.TP1 && sig.TP1 < sig.TP2 && sig.TP2 < sig.TP3)

	assert.Equal(t, []string{
		"Bullish market structure detected with 4 higher highs",
		"Bearish FVG filled, expecting continuation",
	}, sig.Reasoning)
}

func TestScoreSell(t *testing.T) {
	sig := NewAnalyzer(DefaultConfig()).Score("XAUUSD", mirror(zigzag(60, 0.2)), nil)

	require.Equal(t, models.DirectionSell, sig.Direction)
	assert.InDelta(t, 21.0/36*100, sig.Confidence, 1e-9)
	assert.InDelta(t, 87.2, sig.Entry, 1e-9)
	assert.InDelta(t, 92.45, sig.SL, 1e-9)
	assert.InDelta(t, 83.7, sig.TP1, 1e-9)
	assert.InDelta(t, 80.2, sig.TP2, 1e-9)
	assert.InDelta(t, 76.7, sig.TP3, 1e-9)
	assert.True(t, sig.SL > sig.Entry && sig.Entry > sig.TP1 && sig.TP1 > sig.TP2 && sig.TP2 > sig.TP3)
	assert.Contains(t, sig.Reasoning, "Bearish market structure detected with 4 lower lows")
}

func TestScoreDisabledStructureFallsBackOnATR(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MarketStructure = false

	r := NewAnalyzer(cfg).Analyze("XAUUSD", zigzag(60, 0.2), nil)
	assert.Nil(t, r.Structure)
	assert.Equal(t, 10.0, r.ATR)

	sig := r.Signal
	require.Equal(t, models.DirectionSell, sig.Direction)
	assert.Equal(t, 100.0, sig.Confidence)
	assert.InDelta(t, 127.8, sig.SL, 1e-9)
	assert.InDelta(t, 102.8, sig.TP1, 1e-9)
}

func TestScoreNewsBias(t *testing.T) {
	news := &models.NewsBias{Bias: models.BiasBullish, Strength: 80}
	sig := NewAnalyzer(DefaultConfig()).Score("EURUSD", zigzag(60, 0.2), news)

	require.Equal(t, models.DirectionBuy, sig.Direction)
	assert.InDelta(t, 29.0/44*100, sig.Confidence, 1e-9)
	assert.Contains(t, sig.Reasoning, "Fundamental analysis shows 80% bullish bias")
}

func TestScoreAllFactorsDisabled(t *testing.T) {
	sig := NewAnalyzer(Config{}).Score("EURUSD", zigzag(60, 0.2), nil)

	assert.Equal(t, models.DirectionNeutral, sig.Direction)
	assert.Zero(t, sig.Confidence)
	assert.Empty(t, sig.Reasoning)
	assert.Zero(t, sig.Entry)
}

func TestScoreFactorWeights(t *testing.T) {
	last := models.Candle{Open: 99.8, High: 100.4, Low: 99.6, Close: 100}
	bullOB := models.Zone{Kind: models.ZoneOrderBlock, Direction: models.BiasBullish, Low: 99.5, High: 100.5}
	bearOB := models.Zone{Kind: models.ZoneOrderBlock, Direction: models.BiasBearish, Low: 99.5, High: 100.5}
	bullBOS := &models.StructureEvent{Direction: models.BiasBullish, BrokenLevel: 99, Strength: bosStrength}
	bearBOS := &models.StructureEvent{Direction: models.BiasBearish, BrokenLevel: 101, Strength: bosStrength}
	bullCHoCH := &models.StructureEvent{Direction: models.BiasBullish, Strength: chochStrength}
	bearCHoCH := &models.StructureEvent{Direction: models.BiasBearish, Strength: chochStrength}

	const (
		obPts    = 20.0
		bosPts   = 20.0 * 0.8
		chochPts = 15.0 * 0.7
	)

	tests := []struct {
		name       string
		report     Report
		direction  models.Direction
		confidence float64
		reasoning  []string
	}{
		{
			name:       "bullish order block alone",
			report:     Report{OrderBlocks: []models.Zone{bullOB}},
			direction:  models.DirectionBuy,
			confidence: 100,
			reasoning:  []string{"Price bouncing from bullish order block at 99.50"},
		},
		{
			name:       "bearish order block alone",
			report:     Report{OrderBlocks: []models.Zone{bearOB}},
			direction:  models.DirectionSell,
			confidence: 100,
			reasoning:  []string{"Price rejecting from bearish order block at 100.50"},
		},
		{
			name:       "only the latest order block counts",
			report:     Report{OrderBlocks: []models.Zone{bullOB, bearOB}},
			direction:  models.DirectionSell,
			confidence: 100,
			reasoning:  []string{"Price rejecting from bearish order block at 100.50"},
		},
		{
			name: "bullish order block needs close above its low",
			report: Report{OrderBlocks: []models.Zone{
				{Kind: models.ZoneOrderBlock, Direction: models.BiasBullish, Low: 100, High: 101},
			}},
			direction: models.DirectionNeutral,
			reasoning: []string{},
		},
		{
			name: "bearish order block needs close below its high",
			report: Report{OrderBlocks: []models.Zone{
				{Kind: models.ZoneOrderBlock, Direction: models.BiasBearish, Low: 99, High: 100},
			}},
			direction: models.DirectionNeutral,
			reasoning: []string{},
		},
		{
			name:       "bullish BOS alone",
			report:     Report{BOS: bullBOS},
			direction:  models.DirectionBuy,
			confidence: 100,
			reasoning:  []string{"Bullish break of structure at 99.00"},
		},
		{
			name:       "bearish BOS alone",
			report:     Report{BOS: bearBOS},
			direction:  models.DirectionSell,
			confidence: 100,
			reasoning:  []string{"Bearish break of structure at 101.00"},
		},
		{
			name:       "bullish CHoCH alone",
			report:     Report{CHoCH: bullCHoCH},
			direction:  models.DirectionBuy,
			confidence: 100,
			reasoning:  []string{"Change of character detected - potential bullish reversal"},
		},
		{
			name:       "bearish CHoCH alone",
			report:     Report{CHoCH: bearCHoCH},
			direction:  models.DirectionSell,
			confidence: 100,
			reasoning:  []string{"Change of character detected - potential bearish reversal"},
		},
		{
			name:       "order block outweighed by BOS and CHoCH",
			report:     Report{OrderBlocks: []models.Zone{bullOB}, BOS: bearBOS, CHoCH: bearCHoCH},
			direction:  models.DirectionSell,
			confidence: (bosPts + chochPts) / (obPts + bosPts + chochPts) * 100,
			reasoning: []string{
				"Price bouncing from bullish order block at 99.50",
				"Bearish break of structure at 101.00",
				"Change of character detected - potential bearish reversal",
			},
		},
		{
			name: "every factor in evaluation order",
			report: Report{
				Structure: &models.StructureResult{
					Trend: models.TrendBullish, Strength: trendStrength,
					Highs: []float64{98, 99, 100}, Lows: []float64{97, 98, 99},
				},
				OrderBlocks: []models.Zone{bearOB},
				FVG:         []models.Zone{{Kind: models.ZoneFVG, Direction: models.BiasBullish, Low: 99, High: 99.5}},
				BOS:         bullBOS,
				CHoCH:       bearCHoCH,
			},
			direction:  models.DirectionBuy,
			confidence: (21 + 15 + bosPts) / (21 + 15 + bosPts + obPts + chochPts) * 100,
			reasoning: []string{
				"Bullish market structure detected with 3 higher highs",
				"Price rejecting from bearish order block at 100.50",
				"Bullish FVG filled, expecting continuation",
				"Bullish break of structure at 99.00",
				"Change of character detected - potential bearish reversal",
			},
		},
		{
			name: "tie stays neutral",
			report: Report{
				OrderBlocks: []models.Zone{bearOB},
				BOS:         &models.StructureEvent{Direction: models.BiasBullish, BrokenLevel: 99, Strength: 1},
			},
			direction: models.DirectionNeutral,
			reasoning: []string{
				"Price rejecting from bearish order block at 100.50",
				"Bullish break of structure at 99.00",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := tt.report
			r.ATR = 2
			sig := score("XAUUSD", last, &r, nil)

			assert.Equal(t, tt.direction, sig.Direction)
			assert.InDelta(t, tt.confidence, sig.Confidence, 1e-9)
			assert.Equal(t, tt.reasoning, sig.Reasoning)

			switch tt.direction {
			case models.DirectionBuy:
				assert.Equal(t, []float64{100, 97, 102, 104, 106}, []float64{sig.Entry, sig.SL, sig.TP1, sig.TP2, sig.TP3})
			case models.DirectionSell:
				assert.Equal(t, []float64{100, 103, 98, 96, 94}, []float64{sig.Entry, sig.SL, sig.TP1, sig.TP2, sig.TP3})
			default:
				assert.Zero(t, sig.Entry)
				assert.Zero(t, sig.SL)
			}
		})
	}
}
