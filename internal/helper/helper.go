package helper

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// NormTimeframe maps loose user input ("15m", "m15", "1h", "h1") onto the
// feed's M1..MN names. Unknown input comes back upper-cased.
func NormTimeframe(raw string) string {
	s := strings.TrimSpace(strings.ToUpper(raw))
	switch s {
	case "1M", "M1":
		return "M1"
	case "5M", "M5":
		return "M5"
	case "15M", "M15":
		return "M15"
	case "30M", "M30":
		return "M30"
	case "60M", "1H", "H1":
		return "H1"
	case "4H", "H4":
		return "H4"
	case "1D", "D", "D1":
		return "D1"
	case "1W", "W", "W1":
		return "W1"
	case "MN", "1MO", "MN1":
		return "MN"
	default:
		return s
	}
}

// NormSymbol turns "eur/usd" or " xauusd " into "EURUSD".
func NormSymbol(raw string) string {
	s := strings.ToUpper(strings.TrimSpace(raw))
	s = strings.ReplaceAll(s, "/", "")
	return strings.ReplaceAll(s, "_", "")
}

// PricePlaces is the display precision: five places for FX-sized quotes,
// two for everything above 10.
func PricePlaces(px float64) int32 {
	if math.Abs(px) < 10 {
		return 5
	}
	return 2
}

func FormatPrice(px float64) string {
	return decimal.NewFromFloat(px).StringFixed(PricePlaces(px))
}

// RoundPrice rounds px to its display precision.
func RoundPrice(px float64) float64 {
	f, _ := decimal.NewFromFloat(px).Round(PricePlaces(px)).Float64()
	return f
}
