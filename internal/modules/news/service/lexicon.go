package service

// pairs lists the instruments with a fundamental read. Gold is keyed as
// its own "currency".
var pairs = map[string][2]string{
	"XAUUSD": {"GOLD", "USD"},
	"EURUSD": {"EUR", "USD"},
	"GBPUSD": {"GBP", "USD"},
	"AUDUSD": {"AUD", "USD"},
	"AUDCAD": {"AUD", "CAD"},
	"USDCAD": {"USD", "CAD"},
	"USDJPY": {"USD", "JPY"},
	"GBPJPY": {"GBP", "JPY"},
	"CADJPY": {"CAD", "JPY"},
	"AUDJPY": {"AUD", "JPY"},
	"BTCUSD": {"BTC", "USD"},
}

var searchTerms = map[string][]string{
	"USD":  {"dollar", "usd", "federal reserve", "fed", "us economy", "united states"},
	"EUR":  {"euro", "eur", "ecb", "european central bank", "eurozone", "europe"},
	"GBP":  {"pound", "sterling", "gbp", "bank of england", "uk", "britain"},
	"JPY":  {"yen", "jpy", "bank of japan", "boj", "japan"},
	"AUD":  {"australian dollar", "aud", "rba", "australia"},
	"CAD":  {"canadian dollar", "cad", "bank of canada", "canada"},
	"GOLD": {"gold", "xau", "precious metals"},
	"BTC":  {"bitcoin", "btc", "cryptocurrency", "crypto"},
}

var (
	positiveWords = []string{
		"growth", "positive", "strong", "bullish", "surge", "gain",
		"rise", "increase", "up", "rally", "boost", "improve",
	}
	negativeWords = []string{
		"decline", "negative", "weak", "bearish", "fall", "loss",
		"drop", "decrease", "down", "crash", "concern", "worry",
	}
)

// Currencies splits a supported symbol into its base and quote legs.
func Currencies(symbol string) (base, quote string, ok bool) {
	p, ok := pairs[symbol]
	if !ok {
		return "", "", false
	}
	return p[0], p[1], true
}
