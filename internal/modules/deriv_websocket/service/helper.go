package service

import (
	"fmt"
	"strings"
	"time"
)

var symbolMap = map[string]string{
	"XAUUSD": "frxXAUUSD",
	"EURUSD": "frxEURUSD",
	"GBPUSD": "frxGBPUSD",
	"AUDUSD": "frxAUDUSD",
	"AUDCAD": "frxAUDCAD",
	"USDCAD": "frxUSDCAD",
	"USDJPY": "frxUSDJPY",
	"GBPJPY": "frxGBPJPY",
	"CADJPY": "frxCADJPY",
	"AUDJPY": "frxAUDJPY",
	"BTCUSD": "cryBTCUSD",
}

var granularity = map[string]int{
	"M1":  60,
	"M5":  300,
	"M15": 900,
	"M30": 1800,
	"H1":  3600,
	"H4":  14400,
	"D1":  86400,
	"W1":  604800,
	"MN":  2592000,
}

// DerivSymbol maps a display symbol to the feed's instrument code. Unknown
// symbols are passed through unchanged.
func DerivSymbol(symbol string) string {
	s := strings.ToUpper(strings.TrimSpace(symbol))
	if d, ok := symbolMap[s]; ok {
		return d
	}
	return symbol
}

// Granularity returns the bar length in seconds for M1..MN.
func Granularity(tf string) (int, error) {
	g, ok := granularity[strings.ToUpper(strings.TrimSpace(tf))]
	if !ok {
		return 0, fmt.Errorf("unsupported timeframe %q", tf)
	}
	return g, nil
}

func TimeframeDuration(tf string) time.Duration {
	g, err := Granularity(tf)
	if err != nil {
		return 0
	}
	return time.Duration(g) * time.Second
}

// Symbols lists the display symbols with a known mapping.
func Symbols() []string {
	out := make([]string, 0, len(symbolMap))
	for s := range symbolMap {
		out = append(out, s)
	}
	return out
}

func seriesKey(symbol, tf string) string {
	return strings.ToUpper(symbol) + "|" + strings.ToUpper(tf)
}
