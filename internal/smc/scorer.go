// Package smc implements the Smart Money Concepts analysis: swing detection,
// market structure, zones and the weighted scorer that turns them into a
// trade signal. Everything here is pure and synchronous.
package smc

import (
	"fmt"
	"math"

	"smc_bot/internal/models"
)

const (
	MinCandles = 50

	weightTrend      = 30.0
	weightOrderBlock = 20.0
	weightFVG        = 15.0
	weightBOS        = 20.0
	weightCHoCH      = 15.0
	weightNews       = 0.1

	atrPeriod   = 14
	atrFallback = 10.0

	slMultiplier = 1.5
)

const insufficientData = "Insufficient data for analysis"

// Config enables individual factors. Disabled factors are not computed.
type Config struct {
	OrderBlocks     bool `yaml:"order_blocks" json:"orderBlocks"`
	FVG             bool `yaml:"fvg" json:"fvg"`
	BOS             bool `yaml:"bos" json:"bos"`
	CHoCH           bool `yaml:"choch" json:"choch"`
	Liquidity       bool `yaml:"liquidity" json:"liquidity"`
	MarketStructure bool `yaml:"market_structure" json:"marketStructure"`
}

func DefaultConfig() Config {
	return Config{
		OrderBlocks:     true,
		FVG:             true,
		BOS:             true,
		CHoCH:           true,
		Liquidity:       true,
		MarketStructure: true,
	}
}

// Report is the full output of one analysis pass.
type Report struct {
	Signal      models.Signal           `json:"signal"`
	Structure   *models.StructureResult `json:"structure,omitempty"`
	OrderBlocks []models.Zone           `json:"orderBlocks,omitempty"`
	FVG         []models.Zone           `json:"fvg,omitempty"`
	BOS         *models.StructureEvent  `json:"bos,omitempty"`
	CHoCH       *models.StructureEvent  `json:"choch,omitempty"`
	Liquidity   *Liquidity              `json:"liquidity,omitempty"`
	Levels      []models.Zone           `json:"levels,omitempty"`
	ATR         float64                 `json:"atr"`
}

type Analyzer struct {
	cfg Config
}

func NewAnalyzer(cfg Config) *Analyzer {
	return &Analyzer{cfg: cfg}
}

// Score is Analyze without the intermediate results.
func (a *Analyzer) Score(symbol string, candles []models.Candle, news *models.NewsBias) models.Signal {
	return a.Analyze(symbol, candles, news).Signal
}

// Analyze runs every enabled detector and scores the result. It never fails:
// the worst case is a neutral signal with zero confidence.
func (a *Analyzer) Analyze(symbol string, candles []models.Candle, news *models.NewsBias) Report {
	if len(candles) < MinCandles {
		return Report{Signal: models.Signal{
			Symbol:    symbol,
			Direction: models.DirectionNeutral,
			Reasoning: []string{insufficientData},
		}}
	}

	var r Report
	if a.cfg.MarketStructure {
		st := AnalyzeStructure(candles, structureLookback)
		r.Structure = &st
	}
	if a.cfg.OrderBlocks {
		r.OrderBlocks = DetectOrderBlocks(candles)
	}
	if a.cfg.FVG {
		r.FVG = DetectFVG(candles)
	}
	if a.cfg.BOS {
		r.BOS = DetectBOS(candles)
	}
	if a.cfg.CHoCH {
		r.CHoCH = DetectCHoCH(candles)
	}
	if a.cfg.Liquidity {
		r.Liquidity = DetectLiquidity(candles)
	}
	r.Levels = DetectSupportResistance(candles)
	r.ATR = atrProxy(r.Structure)
	r.Signal = score(symbol, candles[len(candles)-1], &r, news)
	return r
}

func score(symbol string, last models.Candle, r *Report, news *models.NewsBias) models.Signal {
	var bull, bear float64
	reasons := make([]string, 0, 6)

	if st := r.Structure; st != nil {
		switch st.Trend {
		case models.TrendBullish:
			bull += weightTrend * st.Strength
			reasons = append(reasons, fmt.Sprintf("Bullish market structure detected with %d higher highs", len(st.Highs)))
		case models.TrendBearish:
			bear += weightTrend * st.Strength
			reasons = append(reasons, fmt.Sprintf("Bearish market structure detected with %d lower lows", len(st.Lows)))
		}
	}

	if n := len(r.OrderBlocks); n > 0 {
		ob := r.OrderBlocks[n-1]
		switch {
		case ob.Direction == models.BiasBullish && last.Close > ob.Low:
			bull += weightOrderBlock
			reasons = append(reasons, fmt.Sprintf("Price bouncing from bullish order block at %.2f", ob.Low))
		case ob.Direction == models.BiasBearish && last.Close < ob.High:
			bear += weightOrderBlock
			reasons = append(reasons, fmt.Sprintf("Price rejecting from bearish order block at %.2f", ob.High))
		}
	}

	if n := len(r.FVG); n > 0 {
		gap := r.FVG[n-1]
		switch {
		case gap.Direction == models.BiasBullish && last.Close >= gap.Low:
			bull += weightFVG
			reasons = append(reasons, "Bullish FVG filled, expecting continuation")
		case gap.Direction == models.BiasBearish && last.Close <= gap.High:
			bear += weightFVG
			reasons = append(reasons, "Bearish FVG filled, expecting continuation")
		}
	}

	if ev := r.BOS; ev != nil {
		switch ev.Direction {
		case models.BiasBullish:
			bull += weightBOS * ev.Strength
			reasons = append(reasons, fmt.Sprintf("Bullish break of structure at %.2f", ev.BrokenLevel))
		case models.BiasBearish:
			bear += weightBOS * ev.Strength
			reasons = append(reasons, fmt.Sprintf("Bearish break of structure at %.2f", ev.BrokenLevel))
		}
	}

	if ev := r.CHoCH; ev != nil {
		switch ev.Direction {
		case models.BiasBullish:
			bull += weightCHoCH * ev.Strength
			reasons = append(reasons, "Change of character detected - potential bullish reversal")
		case models.BiasBearish:
			bear += weightCHoCH * ev.Strength
			reasons = append(reasons, "Change of character detected - potential bearish reversal")
		}
	}

	if news != nil && news.Strength > 0 {
		switch news.Bias {
		case models.BiasBullish:
			bull += news.Strength * weightNews
			reasons = append(reasons, fmt.Sprintf("Fundamental analysis shows %.0f%% bullish bias", news.Strength))
		case models.BiasBearish:
			bear += news.Strength * weightNews
			reasons = append(reasons, fmt.Sprintf("Fundamental analysis shows %.0f%% bearish bias", news.Strength))
		}
	}

	sig := models.Signal{
		Symbol:    symbol,
		Direction: models.DirectionNeutral,
		Reasoning: reasons,
	}
	total := bull + bear
	switch {
	case total > 0 && bull > bear:
		sig.Direction = models.DirectionBuy
		sig.Confidence = math.Min(100, bull/total*100)
	case total > 0 && bear > bull:
		sig.Direction = models.DirectionSell
		sig.Confidence = math.Min(100, bear/total*100)
	}

	setLevels(&sig, last.Close, r.ATR)
	return sig
}

// atrProxy is half the distance between the mean recent swing high and the
// mean recent swing low.
func atrProxy(st *models.StructureResult) float64 {
	if st == nil || len(st.Highs) == 0 || len(st.Lows) == 0 {
		return atrFallback
	}
	v := (mean(tailF(st.Highs, atrPeriod)) - mean(tailF(st.Lows, atrPeriod))) / 2
	if v <= 0 || math.IsNaN(v) {
		return atrFallback
	}
	return v
}

func setLevels(s *models.Signal, entry, atr float64) {
	var sign float64
	switch s.Direction {
	case models.DirectionBuy:
		sign = 1
	case models.DirectionSell:
		sign = -1
	default:
		return
	}
	s.Entry = entry
	s.SL = entry - sign*slMultiplier*atr
	s.TP1 = entry + sign*atr
	s.TP2 = entry + sign*2*atr
	s.TP3 = entry + sign*3*atr
}
